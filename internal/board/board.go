// Package board provides a read-only square-indexed snapshot of a chess
// position with the attack geometry needed by the theme detectors.
package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/discochess/lookahead/internal/fen"
)

// Color is a side.
type Color int8

const (
	White Color = iota
	Black
	NoColor
)

// Other returns the opposing side.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	switch string(b) {
	case "white":
		*c = White
	case "black":
		*c = Black
	case "none":
		*c = NoColor
	default:
		return fmt.Errorf("board: invalid color %q", b)
	}
	return nil
}

// PieceType is a piece kind without color.
type PieceType int8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = [...]string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (t PieceType) String() string {
	if t < 0 || int(t) >= len(pieceNames) {
		return ""
	}
	return pieceNames[t]
}

// Value returns the conventional material value in centipawns.
// The king has no material value.
func (t PieceType) Value() int {
	switch t {
	case Pawn:
		return 100
	case Knight, Bishop:
		return 300
	case Rook:
		return 500
	case Queen:
		return 900
	default:
		return 0
	}
}

// IsSlider reports whether the piece moves along rays.
func (t PieceType) IsSlider() bool {
	return t == Bishop || t == Rook || t == Queen
}

// Piece is a colored piece. The zero value is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

// Empty reports whether p represents an empty square.
func (p Piece) Empty() bool { return p.Type == NoPieceType }

// Value returns the material value of the piece.
func (p Piece) Value() int { return p.Type.Value() }

func (p Piece) String() string {
	if p.Empty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Type.String()
}

// Square is a board square, a1 = 0 through h8 = 63.
type Square int8

// NoSquare marks an absent square.
const NoSquare Square = -1

// SquareAt returns the square for zero-based file and rank, or NoSquare if
// either is off the board.
func SquareAt(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("board: invalid square %q", s)
	}
	return SquareAt(int(s[0]-'a'), int(s[1]-'1')), nil
}

// File returns the zero-based file.
func (s Square) File() int { return int(s) % 8 }

// Rank returns the zero-based rank.
func (s Square) Rank() int { return int(s) / 8 }

// Valid reports whether the square is on the board.
func (s Square) Valid() bool { return s >= 0 && s < 64 }

// Light reports whether the square is a light square.
func (s Square) Light() bool { return (s.File()+s.Rank())%2 == 1 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// MarshalText implements encoding.TextMarshaler.
func (s Square) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Square) UnmarshalText(b []byte) error {
	if string(b) == "-" {
		*s = NoSquare
		return nil
	}
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// RelativeRank returns the rank counted from c's own back rank.
func (s Square) RelativeRank(c Color) int {
	if c == Black {
		return 7 - s.Rank()
	}
	return s.Rank()
}

// Snapshot is an immutable view of one position.
type Snapshot struct {
	squares   [64]Piece
	Turn      Color
	Castling  string
	EnPassant Square
	Ply       int
}

// FromFEN builds a snapshot from a full or normalized FEN string. When the
// move counters are missing the ply defaults to 0 or 1 by side to move.
func FromFEN(s string) (*Snapshot, error) {
	placement, err := fen.ParsePlacement(s)
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return nil, fen.ErrInvalidFEN
	}

	snap := &Snapshot{EnPassant: NoSquare, Castling: "-"}
	for i, ch := range placement {
		if ch == 0 {
			continue
		}
		p, ok := pieceFromLetter(ch)
		if !ok {
			return nil, fen.ErrInvalidFEN
		}
		snap.squares[i] = p
	}

	switch parts[1] {
	case "w":
		snap.Turn = White
	case "b":
		snap.Turn = Black
	default:
		return nil, fen.ErrInvalidFEN
	}
	if len(parts) > 2 {
		snap.Castling = parts[2]
	}
	if len(parts) > 3 && parts[3] != "-" {
		if sq, err := ParseSquare(parts[3]); err == nil {
			snap.EnPassant = sq
		}
	}

	fullmove := 1
	if len(parts) > 5 {
		if n, err := strconv.Atoi(parts[5]); err == nil && n > 0 {
			fullmove = n
		}
	}
	snap.Ply = (fullmove - 1) * 2
	if snap.Turn == Black {
		snap.Ply++
	}
	return snap, nil
}

func pieceFromLetter(ch byte) (Piece, bool) {
	color := White
	if ch >= 'a' && ch <= 'z' {
		color = Black
		ch -= 'a' - 'A'
	}
	var t PieceType
	switch ch {
	case 'P':
		t = Pawn
	case 'N':
		t = Knight
	case 'B':
		t = Bishop
	case 'R':
		t = Rook
	case 'Q':
		t = Queen
	case 'K':
		t = King
	default:
		return Piece{}, false
	}
	return Piece{Type: t, Color: color}, true
}

// At returns the piece on sq.
func (s *Snapshot) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return s.squares[sq]
}

// Pieces returns the squares occupied by c, in square order.
func (s *Snapshot) Pieces(c Color) []Square {
	var out []Square
	for i, p := range s.squares {
		if !p.Empty() && p.Color == c {
			out = append(out, Square(i))
		}
	}
	return out
}

// PiecesOf returns the squares holding pieces of the given type and color.
func (s *Snapshot) PiecesOf(c Color, t PieceType) []Square {
	var out []Square
	for i, p := range s.squares {
		if p.Type == t && p.Color == c {
			out = append(out, Square(i))
		}
	}
	return out
}

// KingSquare returns the king square of c, or NoSquare.
func (s *Snapshot) KingSquare(c Color) Square {
	for i, p := range s.squares {
		if p.Type == King && p.Color == c {
			return Square(i)
		}
	}
	return NoSquare
}

// Material counts the non-king pieces of both sides.
func (s *Snapshot) Material() fen.Material {
	var m fen.Material
	for _, p := range s.squares {
		white := p.Color == White
		var w, b *int
		switch p.Type {
		case Pawn:
			w, b = &m.WhitePawns, &m.BlackPawns
		case Knight:
			w, b = &m.WhiteKnights, &m.BlackKnights
		case Bishop:
			w, b = &m.WhiteBishops, &m.BlackBishops
		case Rook:
			w, b = &m.WhiteRooks, &m.BlackRooks
		case Queen:
			w, b = &m.WhiteQueens, &m.BlackQueens
		default:
			continue
		}
		if white {
			*w++
		} else {
			*b++
		}
	}
	return m
}

// CanCastle reports whether c retains any castling right.
func (s *Snapshot) CanCastle(c Color) bool {
	if c == White {
		return strings.ContainsAny(s.Castling, "KQ")
	}
	return strings.ContainsAny(s.Castling, "kq")
}

// Direction is a (file, rank) step.
type Direction struct{ DF, DR int }

var (
	// Orthogonal are the rook directions.
	Orthogonal = []Direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	// Diagonal are the bishop directions.
	Diagonal = []Direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

	knightSteps = []Direction{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = []Direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// Directions returns the ray directions a slider moves along.
func Directions(t PieceType) []Direction {
	switch t {
	case Bishop:
		return Diagonal
	case Rook:
		return Orthogonal
	case Queen:
		return kingSteps
	default:
		return nil
	}
}

// Ray returns the squares from 'from' (exclusive) in direction d up to the
// board edge, ignoring occupancy.
func Ray(from Square, d Direction) []Square {
	var out []Square
	f, r := from.File()+d.DF, from.Rank()+d.DR
	for {
		sq := SquareAt(f, r)
		if sq == NoSquare {
			return out
		}
		out = append(out, sq)
		f += d.DF
		r += d.DR
	}
}

// Attacks returns the squares attacked by the piece on sq, including
// occupied squares that block a ray.
func (s *Snapshot) Attacks(sq Square) []Square {
	p := s.At(sq)
	if p.Empty() {
		return nil
	}

	var out []Square
	switch p.Type {
	case Pawn:
		dr := 1
		if p.Color == Black {
			dr = -1
		}
		for _, df := range []int{-1, 1} {
			if t := SquareAt(sq.File()+df, sq.Rank()+dr); t != NoSquare {
				out = append(out, t)
			}
		}
	case Knight:
		out = s.steps(sq, knightSteps)
	case King:
		out = s.steps(sq, kingSteps)
	default:
		for _, d := range Directions(p.Type) {
			for _, t := range Ray(sq, d) {
				out = append(out, t)
				if !s.At(t).Empty() {
					break
				}
			}
		}
	}
	return out
}

func (s *Snapshot) steps(sq Square, steps []Direction) []Square {
	out := make([]Square, 0, len(steps))
	for _, d := range steps {
		if t := SquareAt(sq.File()+d.DF, sq.Rank()+d.DR); t != NoSquare {
			out = append(out, t)
		}
	}
	return out
}

// AttackersOf returns the squares of c's pieces attacking target.
func (s *Snapshot) AttackersOf(target Square, c Color) []Square {
	var out []Square
	for _, from := range s.Pieces(c) {
		for _, t := range s.Attacks(from) {
			if t == target {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// IsAttacked reports whether c attacks sq.
func (s *Snapshot) IsAttacked(sq Square, c Color) bool {
	return len(s.AttackersOf(sq, c)) > 0
}

// InCheck reports whether c's king is attacked.
func (s *Snapshot) InCheck(c Color) bool {
	k := s.KingSquare(c)
	if k == NoSquare {
		return false
	}
	return s.IsAttacked(k, c.Other())
}

// KingZone returns the king square and its neighbours.
func (s *Snapshot) KingZone(c Color) []Square {
	k := s.KingSquare(c)
	if k == NoSquare {
		return nil
	}
	return append([]Square{k}, s.steps(k, kingSteps)...)
}

// FileHasPawn reports whether c has a pawn on file f.
func (s *Snapshot) FileHasPawn(f int, c Color) bool {
	for r := 0; r < 8; r++ {
		p := s.At(SquareAt(f, r))
		if p.Type == Pawn && p.Color == c {
			return true
		}
	}
	return false
}

// KingExposure is a centipawn-scaled estimate of how exposed c's king is:
// missing shield pawns, pawnless files around the king and enemy pressure
// on the king zone.
func (s *Snapshot) KingExposure(c Color) int {
	k := s.KingSquare(c)
	if k == NoSquare {
		return 0
	}

	forward := 1
	if c == Black {
		forward = -1
	}

	exposure := 0
	for df := -1; df <= 1; df++ {
		f := k.File() + df
		if f < 0 || f > 7 {
			continue
		}
		shielded := false
		for step := 1; step <= 2; step++ {
			p := s.At(SquareAt(f, k.Rank()+forward*step))
			if p.Type == Pawn && p.Color == c {
				shielded = true
				break
			}
		}
		if !shielded {
			exposure += 25
		}
		if !s.FileHasPawn(f, c) {
			exposure += 20
		}
	}

	for _, sq := range s.KingZone(c) {
		exposure += 15 * len(s.AttackersOf(sq, c.Other()))
	}
	return exposure
}
