// Package notnilrules implements rules.Provider with github.com/notnil/chess.
package notnilrules

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/discochess/lookahead/internal/board"
	"github.com/discochess/lookahead/internal/rules"
)

// Compile-time check that Provider implements rules.Provider.
var _ rules.Provider = (*Provider)(nil)

// Provider applies moves using notnil/chess. It is stateless and safe for
// concurrent use.
type Provider struct{}

// New returns a new Provider.
func New() *Provider {
	return &Provider{}
}

// ApplyMove plays a UCI or SAN move and returns the resulting position.
func (p *Provider) ApplyMove(fenStr, move string) (rules.Applied, error) {
	pos, err := position(fenStr)
	if err != nil {
		return rules.Applied{}, err
	}

	m, ok := findLegal(pos, move)
	if !ok {
		return rules.Applied{}, &rules.IllegalMoveError{
			Move:  move,
			FEN:   fenStr,
			Legal: uciList(pos.ValidMoves()),
		}
	}

	san := chess.AlgebraicNotation{}.Encode(pos, m)
	next := pos.Update(m)
	status := next.Status()

	return rules.Applied{
		Move:      rules.Move{SAN: san, UCI: m.String()},
		FEN:       next.String(),
		Check:     m.HasTag(chess.Check),
		Checkmate: status == chess.Checkmate,
		Stalemate: status == chess.Stalemate,
	}, nil
}

// LegalMoves returns the legal moves in fen.
func (p *Provider) LegalMoves(fenStr string) ([]rules.Move, error) {
	pos, err := position(fenStr)
	if err != nil {
		return nil, err
	}
	valid := pos.ValidMoves()
	out := make([]rules.Move, 0, len(valid))
	for _, m := range valid {
		out = append(out, rules.Move{
			SAN: chess.AlgebraicNotation{}.Encode(pos, m),
			UCI: m.String(),
		})
	}
	return out, nil
}

// IsCheck reports whether the side to move is in check.
func (p *Provider) IsCheck(fenStr string) (bool, error) {
	snap, err := board.FromFEN(fenStr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", rules.ErrInvalidPosition, err)
	}
	return snap.InCheck(snap.Turn), nil
}

// IsCheckmate reports whether the side to move is checkmated.
func (p *Provider) IsCheckmate(fenStr string) (bool, error) {
	pos, err := position(fenStr)
	if err != nil {
		return false, err
	}
	return pos.Status() == chess.Checkmate, nil
}

// IsStalemate reports whether the side to move is stalemated.
func (p *Provider) IsStalemate(fenStr string) (bool, error) {
	pos, err := position(fenStr)
	if err != nil {
		return false, err
	}
	return pos.Status() == chess.Stalemate, nil
}

// position decodes a FEN, accepting normalized four-field keys.
func position(fenStr string) (*chess.Position, error) {
	fields := strings.Fields(fenStr)
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}
	opt, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rules.ErrInvalidPosition, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// findLegal resolves move text against the legal moves, trying UCI first and
// SAN second.
func findLegal(pos *chess.Position, move string) (*chess.Move, bool) {
	valid := pos.ValidMoves()
	want := strings.ToLower(strings.TrimSpace(move))
	for _, m := range valid {
		if m.String() == want {
			return m, true
		}
	}

	san := strings.TrimSpace(move)
	for _, m := range valid {
		encoded := chess.AlgebraicNotation{}.Encode(pos, m)
		if encoded == san || strings.TrimRight(encoded, "+#") == strings.TrimRight(san, "+#!?") {
			return m, true
		}
	}
	return nil, false
}

func uciList(moves []*chess.Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.String())
	}
	return out
}
