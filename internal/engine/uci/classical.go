package uci

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/discochess/lookahead/internal/engine"
)

// Compile-time check that Classical implements engine.BreakdownProvider.
var _ engine.BreakdownProvider = (*Classical)(nil)

// Classical reports the classical evaluation terms of engines that still
// print them for the "eval" command, such as Stockfish 16 and earlier.
// Each call runs a short-lived engine process. A Classical is safe for
// concurrent use.
type Classical struct {
	path string
}

// NewClassical returns a breakdown provider for the engine binary at path.
func NewClassical(path string) (*Classical, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("uci: engine not found: %w", err)
	}
	return &Classical{path: resolved}, nil
}

// Breakdown runs "eval" on fen and parses the term table.
func (c *Classical) Breakdown(ctx context.Context, fenStr string) (*engine.Breakdown, error) {
	pos, err := decode(fenStr)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.path)
	cmd.Stdin = strings.NewReader(fmt.Sprintf("uci\nposition fen %s\neval\nquit\n", pos.String()))
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: running eval: %w", engine.ErrUnavailable, err)
	}
	return ParseBreakdown(&out)
}

// ParseBreakdown reads the term table printed by the "eval" command:
//
//	     Term    |    White    |    Black    |    Total
//	             |   MG    EG  |   MG    EG  |   MG    EG
//	 ------------+-------------+-------------+------------
//	    Material |  ----  ---- |  ----  ---- |  0.00  0.00
//	    Mobility |  0.77  0.97 |  0.61  0.72 |  0.16  0.25
//
// Cells that are not numbers count as zero. Output without a total row
// returns engine.ErrNoBreakdown.
func ParseBreakdown(r io.Reader) (*engine.Breakdown, error) {
	var (
		b        engine.Breakdown
		hasTotal bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cols := strings.Split(sc.Text(), "|")
		if len(cols) != 4 {
			continue
		}
		term, ok := b.Term(strings.ToLower(strings.TrimSpace(cols[0])))
		if !ok {
			continue
		}
		term.White = phase(cols[1])
		term.Black = phase(cols[2])
		term.Total = phase(cols[3])
		if term == &b.Total {
			hasTotal = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !hasTotal {
		return nil, engine.ErrNoBreakdown
	}
	b.CP = int(math.Round((b.Total.Total.MG + b.Total.Total.EG) / 2 * 100))
	return &b, nil
}

func phase(cell string) engine.PhaseScore {
	f := strings.Fields(cell)
	var p engine.PhaseScore
	if len(f) > 0 {
		p.MG = number(f[0])
	}
	if len(f) > 1 {
		p.EG = number(f[1])
	}
	return p
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
