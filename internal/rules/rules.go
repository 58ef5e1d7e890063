// Package rules defines the move/position provider used to apply moves and
// list legal moves. Chess rule enforcement lives behind this interface.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIllegalMove indicates a move is not legal in the given position.
	ErrIllegalMove = errors.New("rules: illegal move")

	// ErrInvalidPosition indicates the FEN could not be decoded.
	ErrInvalidPosition = errors.New("rules: invalid position")
)

// Move is a move in both human-readable (SAN) and engine (UCI) notation.
type Move struct {
	SAN string `json:"san"`
	UCI string `json:"uci"`
}

func (m Move) String() string {
	if m.SAN != "" {
		return m.SAN
	}
	return m.UCI
}

// Applied is the result of applying a move.
type Applied struct {
	Move      Move
	FEN       string
	Check     bool
	Checkmate bool
	Stalemate bool
}

// Provider applies moves and answers rule queries for FEN positions.
type Provider interface {
	// ApplyMove plays move (UCI or SAN) in fen.
	// Illegal moves return an *IllegalMoveError.
	ApplyMove(fen, move string) (Applied, error)

	// LegalMoves lists the legal moves in fen.
	LegalMoves(fen string) ([]Move, error)

	IsCheck(fen string) (bool, error)
	IsCheckmate(fen string) (bool, error)
	IsStalemate(fen string) (bool, error)
}

// IllegalMoveError reports an illegal move together with the legal moves
// available in the position, for diagnostics.
type IllegalMoveError struct {
	Move  string
	FEN   string
	Legal []string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("rules: illegal move %q in %q (legal: %s)", e.Move, e.FEN, strings.Join(e.Legal, " "))
}

// Unwrap allows errors.Is(err, ErrIllegalMove).
func (e *IllegalMoveError) Unwrap() error {
	return ErrIllegalMove
}
