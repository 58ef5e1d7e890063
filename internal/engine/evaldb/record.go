package evaldb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/discochess/lookahead/internal/engine"
)

// errNotInShard indicates the position is absent from a shard.
var errNotInShard = errors.New("evaldb: position not in shard")

// Record is one line of the evaluation database, in the Lichess cloud
// evaluation export format. FEN holds the four-field position key.
type Record struct {
	FEN   string `json:"fen"`
	Evals []Eval `json:"evals"`
}

// Eval is one multi-PV analysis of a position.
type Eval struct {
	PVs    []PV `json:"pvs"`
	Knodes int  `json:"knodes"`
	Depth  int  `json:"depth"`
}

// PV is one principal variation. Scores are from White's perspective.
type PV struct {
	CP   *int   `json:"cp,omitempty"`
	Mate *int   `json:"mate,omitempty"`
	Line string `json:"line"` // space-separated UCI moves
}

// best picks the analysis to serve a request for lines variations: one that
// covers the requested line count if any does, deepest first.
func (r *Record) best(lines int) (Eval, bool) {
	if len(r.Evals) == 0 {
		return Eval{}, false
	}
	evals := make([]Eval, len(r.Evals))
	copy(evals, r.Evals)
	sort.SliceStable(evals, func(i, j int) bool {
		ci, cj := len(evals[i].PVs) >= lines, len(evals[j].PVs) >= lines
		if ci != cj {
			return ci
		}
		return evals[i].Depth > evals[j].Depth
	})
	return evals[0], true
}

// toLines converts an analysis into engine lines.
func (e Eval) toLines(n int) []engine.Line {
	out := make([]engine.Line, 0, n)
	for _, pv := range e.PVs {
		if len(out) == n {
			break
		}
		moves := strings.Fields(pv.Line)
		if len(moves) == 0 {
			continue
		}
		out = append(out, engine.Line{
			Move:  moves[0],
			Score: engine.Score{CP: pv.CP, Mate: pv.Mate},
			PV:    moves,
			Depth: e.Depth,
		})
	}
	return out
}

// search finds key in sorted JSONL shard data by binary search.
func search(data []byte, key string) (*Record, error) {
	lines := splitLines(data)
	idx := sort.Search(len(lines), func(i int) bool {
		return extractFEN(lines[i]) >= key
	})
	if idx >= len(lines) || extractFEN(lines[idx]) != key {
		return nil, errNotInShard
	}

	var record Record
	if err := json.Unmarshal(lines[idx], &record); err != nil {
		return nil, fmt.Errorf("parsing eval record: %w", err)
	}
	return &record, nil
}

// splitLines splits data into non-empty lines.
func splitLines(data []byte) [][]byte {
	lines := make([][]byte, 0, bytes.Count(data, []byte{'\n'})+1)
	for len(data) > 0 {
		var line []byte
		if idx := bytes.IndexByte(data, '\n'); idx < 0 {
			line, data = data, nil
		} else {
			line, data = data[:idx], data[idx+1:]
		}
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// extractFEN reads the fen field without decoding the whole record, which
// keeps the binary search cheap.
func extractFEN(line []byte) string {
	const prefix = `"fen":"`
	idx := bytes.Index(line, []byte(prefix))
	if idx < 0 {
		return ""
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return ""
	}
	return string(line[start : start+end])
}
