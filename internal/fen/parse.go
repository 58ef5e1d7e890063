// Package fen provides FEN (Forsyth-Edwards Notation) parsing utilities.
package fen

import (
	"errors"
	"strings"
)

// ErrInvalidFEN indicates the FEN string is malformed.
var ErrInvalidFEN = errors.New("invalid FEN notation")

// Material represents the piece counts for both sides.
type Material struct {
	WhitePawns   int
	WhiteKnights int
	WhiteBishops int
	WhiteRooks   int
	WhiteQueens  int

	BlackPawns   int
	BlackKnights int
	BlackBishops int
	BlackRooks   int
	BlackQueens  int
}

// Phase is a coarse game phase derived from non-pawn material.
type Phase int

const (
	Opening Phase = iota
	Middlegame
	Endgame
)

func (p Phase) String() string {
	switch p {
	case Opening:
		return "opening"
	case Middlegame:
		return "middlegame"
	case Endgame:
		return "endgame"
	default:
		return "unknown"
	}
}

// Normalize returns the position key for a FEN string.
// It keeps only the placement, side to move, castling rights and en passant
// square, so positions differing only in halfmove/fullmove counters collapse
// to the same key.
func Normalize(fen string) (string, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return "", ErrInvalidFEN
	}

	if !isValidPiecePlacement(parts[0]) {
		return "", ErrInvalidFEN
	}

	if parts[1] != "w" && parts[1] != "b" {
		return "", ErrInvalidFEN
	}

	return strings.Join(parts[:4], " "), nil
}

// ParseMaterial extracts material counts from a FEN string.
func ParseMaterial(fen string) (Material, error) {
	parts := strings.Fields(fen)
	if len(parts) == 0 {
		return Material{}, ErrInvalidFEN
	}

	var m Material
	for _, ch := range parts[0] {
		switch ch {
		case 'P':
			m.WhitePawns++
		case 'N':
			m.WhiteKnights++
		case 'B':
			m.WhiteBishops++
		case 'R':
			m.WhiteRooks++
		case 'Q':
			m.WhiteQueens++
		case 'p':
			m.BlackPawns++
		case 'n':
			m.BlackKnights++
		case 'b':
			m.BlackBishops++
		case 'r':
			m.BlackRooks++
		case 'q':
			m.BlackQueens++
		case 'K', 'k':
			// Kings are always present, don't count
		case '/', '1', '2', '3', '4', '5', '6', '7', '8':
		default:
			return Material{}, ErrInvalidFEN
		}
	}

	return m, nil
}

// Value returns the material value in centipawns for one side.
func (m Material) Value(white bool) int {
	if white {
		return m.WhitePawns*100 + (m.WhiteKnights+m.WhiteBishops)*300 + m.WhiteRooks*500 + m.WhiteQueens*900
	}
	return m.BlackPawns*100 + (m.BlackKnights+m.BlackBishops)*300 + m.BlackRooks*500 + m.BlackQueens*900
}

// NonPawn returns the combined non-pawn material of both sides in centipawns.
func (m Material) NonPawn() int {
	return (m.WhiteKnights+m.WhiteBishops+m.BlackKnights+m.BlackBishops)*300 +
		(m.WhiteRooks+m.BlackRooks)*500 +
		(m.WhiteQueens+m.BlackQueens)*900
}

// Phase classifies the material into a game phase.
// Full starting non-pawn material is 6200cp.
func (m Material) Phase() Phase {
	np := m.NonPawn()
	switch {
	case np >= 5600:
		return Opening
	case np > 2600:
		return Middlegame
	default:
		return Endgame
	}
}

// SideToMove returns "w" or "b" from a FEN string.
func SideToMove(fen string) (string, error) {
	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return "", ErrInvalidFEN
	}
	if parts[1] != "w" && parts[1] != "b" {
		return "", ErrInvalidFEN
	}
	return parts[1], nil
}

// ParsePlacement decodes the piece placement field into a square-indexed
// array (a1 = 0, h8 = 63). Empty squares are 0; occupied squares hold the
// FEN piece letter.
func ParsePlacement(fen string) ([64]byte, error) {
	var squares [64]byte
	parts := strings.Fields(fen)
	if len(parts) == 0 || !isValidPiecePlacement(parts[0]) {
		return squares, ErrInvalidFEN
	}

	ranks := strings.Split(parts[0], "/")
	for i, rank := range ranks {
		r := 7 - i
		f := 0
		for _, ch := range rank {
			if ch >= '1' && ch <= '8' {
				f += int(ch - '0')
				continue
			}
			squares[r*8+f] = byte(ch)
			f++
		}
	}
	return squares, nil
}

// isValidPiecePlacement validates the piece placement part of a FEN.
func isValidPiecePlacement(placement string) bool {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return false
	}

	for _, rank := range ranks {
		squares := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				squares += int(ch - '0')
			case ch == 'P', ch == 'N', ch == 'B', ch == 'R', ch == 'Q', ch == 'K',
				ch == 'p', ch == 'n', ch == 'b', ch == 'r', ch == 'q', ch == 'k':
				squares++
			default:
				return false
			}
		}
		if squares != 8 {
			return false
		}
	}

	return true
}
