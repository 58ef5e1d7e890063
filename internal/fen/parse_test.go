package fen

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "starting position",
			input: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			want:  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		},
		{
			name:  "position after e4",
			input: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
			want:  "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3",
		},
		{
			name:  "no castling rights",
			input: "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w - - 10 20",
			want:  "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w - -",
		},
		{
			name:  "complex middlegame",
			input: "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
			want:  "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq -",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "too few fields",
			input:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w",
			wantErr: true,
		},
		{
			name:    "invalid side to move",
			input:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
			wantErr: true,
		},
		{
			name:    "invalid piece placement - wrong rank count",
			input:   "rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			wantErr: true,
		},
		{
			name:    "invalid piece placement - wrong square count",
			input:   "rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseMaterial(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Material
		wantErr bool
	}{
		{
			name:  "starting position",
			input: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			want: Material{
				WhitePawns: 8, WhiteKnights: 2, WhiteBishops: 2, WhiteRooks: 2, WhiteQueens: 1,
				BlackPawns: 8, BlackKnights: 2, BlackBishops: 2, BlackRooks: 2, BlackQueens: 1,
			},
		},
		{
			name:  "king and rook endgame",
			input: "8/8/8/4k3/8/8/4K3/4R3 w - - 0 1",
			want: Material{
				WhiteRooks: 1,
			},
		},
		{
			name:  "queen vs two rooks",
			input: "8/8/8/4k3/8/8/4K3/Q3RR2 w - - 0 1",
			want: Material{
				WhiteQueens: 1,
				WhiteRooks:  2,
			},
		},
		{
			name:  "multiple queens (promotion)",
			input: "QQQQk3/8/8/8/8/8/8/4K3 w - - 0 1",
			want: Material{
				WhiteQueens: 4,
			},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "invalid piece character",
			input:   "rnbxkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMaterial(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMaterial() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMaterial() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSideToMove(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "white to move",
			input: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			want:  "w",
		},
		{
			name:  "black to move",
			input: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
			want:  "b",
		},
		{
			name:    "invalid side",
			input:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
			wantErr: true,
		},
		{
			name:    "missing side",
			input:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SideToMove(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("SideToMove() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("SideToMove() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_ClocksCollapse(t *testing.T) {
	a, err := Normalize("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	b, err := Normalize("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 14 27")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestParsePlacement(t *testing.T) {
	squares, err := ParsePlacement("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	if err != nil {
		t.Fatalf("ParsePlacement() error = %v", err)
	}

	tests := []struct {
		square int
		want   byte
	}{
		{0, 'R'},      // a1
		{4, 'K'},      // e1
		{12, 0},       // e2 vacated
		{28, 'P'},     // e4
		{60, 'k'},     // e8
		{63, 'r'},     // h8
		{35, 0},       // d5
		{48 + 3, 'p'}, // d7
	}
	for _, tt := range tests {
		if got := squares[tt.square]; got != tt.want {
			t.Errorf("square %d = %q, want %q", tt.square, got, tt.want)
		}
	}

	if _, err := ParsePlacement("8/8/8 w - -"); err == nil {
		t.Error("ParsePlacement() should reject a short placement")
	}
}

func TestMaterial_ValueAndPhase(t *testing.T) {
	tests := []struct {
		name       string
		fen        string
		whiteValue int
		blackValue int
		phase      Phase
	}{
		{
			name:       "starting position",
			fen:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			whiteValue: 3900,
			blackValue: 3900,
			phase:      Opening,
		},
		{
			name:       "queens traded middlegame",
			fen:        "r1b1k2r/pppp1ppp/2n2n2/4p3/4P3/2N2N2/PPPP1PPP/R1B1K2R w KQkq - 0 1",
			whiteValue: 2700,
			blackValue: 2700,
			phase:      Middlegame,
		},
		{
			name:       "rook endgame",
			fen:        "8/5pk1/8/8/8/8/5PK1/4R3 w - - 0 1",
			whiteValue: 600,
			blackValue: 100,
			phase:      Endgame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMaterial(tt.fen)
			if err != nil {
				t.Fatalf("ParseMaterial() error = %v", err)
			}
			if got := m.Value(true); got != tt.whiteValue {
				t.Errorf("Value(white) = %d, want %d", got, tt.whiteValue)
			}
			if got := m.Value(false); got != tt.blackValue {
				t.Errorf("Value(black) = %d, want %d", got, tt.blackValue)
			}
			if got := m.Phase(); got != tt.phase {
				t.Errorf("Phase() = %v, want %v", got, tt.phase)
			}
		})
	}
}

func BenchmarkNormalize(b *testing.B) {
	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Normalize(fen)
	}
}
