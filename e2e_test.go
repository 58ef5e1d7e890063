//go:build e2e

package lookahead_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/config"
	"github.com/discochess/lookahead/internal/intent"
)

// TestE2E_Stockfish runs a full analysis against a real engine. It needs a
// stockfish binary on PATH.
func TestE2E_Stockfish(t *testing.T) {
	path, err := exec.LookPath("stockfish")
	if err != nil {
		t.Skip("Skipping: stockfish not found on PATH")
	}

	cfg := config.Default()
	cfg.Engine.Path = path
	cfg.Explore.MaxNodes = 12
	cfg.Explore.Budget = 20 * time.Second
	cfg.Store.Path = ":memory:"

	ctx := context.Background()
	a, err := lookahead.NewFromConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	defer a.Close()

	// 1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6?? allows Qxf7#.
	const fen = "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4"
	start := time.Now()
	res, err := a.Analyze(ctx, lookahead.Request{
		FEN:            fen,
		PlayedMove:     "Nc3",
		Classification: intent.Blunder,
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	t.Logf("explored %d nodes in %v (%s), %d intents",
		res.NodesExplored, time.Since(start), res.StoppingReason, len(res.Intents))

	if res.RootEval == nil || !res.RootEval.IsMate() {
		t.Errorf("RootEval = %v, want a mate score", res.RootEval)
	}

	var found bool
	for _, in := range res.Intents {
		if in.Content.UCI == "b1c3" {
			found = true
			if !in.Mandatory || in.Type != intent.TypeBlunder {
				t.Errorf("played intent = %+v, want mandatory blunder", in)
			}
			if in.Content.BestAlternative != "Qxf7#" {
				t.Errorf("BestAlternative = %q, want Qxf7#", in.Content.BestAlternative)
			}
		}
	}
	if !found {
		t.Error("no intent for the played blunder")
	}
	if res.RunID == "" {
		t.Error("run was not recorded")
	}
}
