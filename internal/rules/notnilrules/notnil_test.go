package notnilrules

import (
	"errors"
	"testing"

	"github.com/discochess/lookahead/internal/fen"
	"github.com/discochess/lookahead/internal/rules"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestProvider_ApplyMove(t *testing.T) {
	p := New()

	tests := []struct {
		name    string
		move    string
		wantSAN string
		wantUCI string
	}{
		{"uci", "e2e4", "e4", "e2e4"},
		{"san", "Nf3", "Nf3", "g1f3"},
		{"san with annotation", "e4!", "e4", "e2e4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ApplyMove(startFEN, tt.move)
			if err != nil {
				t.Fatalf("ApplyMove() error = %v", err)
			}
			if got.Move.SAN != tt.wantSAN || got.Move.UCI != tt.wantUCI {
				t.Errorf("ApplyMove() move = %+v, want %s/%s", got.Move, tt.wantSAN, tt.wantUCI)
			}
		})
	}
}

func TestProvider_ApplyMove_Illegal(t *testing.T) {
	p := New()

	_, err := p.ApplyMove(startFEN, "e2e5")
	if !errors.Is(err, rules.ErrIllegalMove) {
		t.Fatalf("ApplyMove() error = %v, want ErrIllegalMove", err)
	}

	var illegal *rules.IllegalMoveError
	if !errors.As(err, &illegal) {
		t.Fatalf("error should be *IllegalMoveError, got %T", err)
	}
	if len(illegal.Legal) != 20 {
		t.Errorf("Legal has %d moves, want 20", len(illegal.Legal))
	}
	if illegal.Move != "e2e5" {
		t.Errorf("Move = %q, want e2e5", illegal.Move)
	}
}

func TestProvider_Transposition(t *testing.T) {
	p := New()

	play := func(moves ...string) string {
		t.Helper()
		cur := startFEN
		for _, m := range moves {
			applied, err := p.ApplyMove(cur, m)
			if err != nil {
				t.Fatalf("ApplyMove(%s) error = %v", m, err)
			}
			cur = applied.FEN
		}
		key, err := fen.Normalize(cur)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		return key
	}

	a := play("g1f3", "g8f6", "b1c3")
	b := play("b1c3", "g8f6", "g1f3")
	if a != b {
		t.Errorf("transposed keys differ:\n%s\n%s", a, b)
	}
}

func TestProvider_Status(t *testing.T) {
	p := New()

	// Fool's mate.
	mated := "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	if ok, err := p.IsCheckmate(mated); err != nil || !ok {
		t.Errorf("IsCheckmate() = %v, %v, want true", ok, err)
	}
	if ok, err := p.IsCheck(mated); err != nil || !ok {
		t.Errorf("IsCheck() = %v, %v, want true", ok, err)
	}

	stalemate := "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	if ok, err := p.IsStalemate(stalemate); err != nil || !ok {
		t.Errorf("IsStalemate() = %v, %v, want true", ok, err)
	}
	if ok, err := p.IsCheck(startFEN); err != nil || ok {
		t.Errorf("IsCheck(start) = %v, %v, want false", ok, err)
	}
}

func TestProvider_NormalizedKey(t *testing.T) {
	p := New()
	moves, err := p.LegalMoves("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
	if err != nil {
		t.Fatalf("LegalMoves() error = %v", err)
	}
	if len(moves) != 20 {
		t.Errorf("LegalMoves() = %d moves, want 20", len(moves))
	}
}

func TestProvider_InvalidFEN(t *testing.T) {
	p := New()
	if _, err := p.LegalMoves("not a fen"); !errors.Is(err, rules.ErrInvalidPosition) {
		t.Errorf("LegalMoves() error = %v, want ErrInvalidPosition", err)
	}
}
