package evaldb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/discochess/lookahead/internal/blob/memblob"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/gzipcodec"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/fen"
)

const source = `{"fen":"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -","evals":[{"pvs":[{"cp":20,"line":"e2e4 e7e5"}],"knodes":3000,"depth":30},{"pvs":[{"cp":18,"line":"e2e4 c7c5"},{"cp":15,"line":"d2d4 d7d5"},{"cp":12,"line":"g1f3 d7d5"}],"knodes":900,"depth":22}]}
{"fen":"8/8/8/4k3/8/8/4K3/4R3 w - - 0 1","evals":[{"pvs":[{"mate":12,"line":"e1e2"}],"knodes":1000,"depth":40}]}
not json
{"fen":"bad fen","evals":[]}
{"fen":"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq -","evals":[{"pvs":[{"cp":25,"line":"f1b5 a7a6"}],"knodes":2000,"depth":25}]}
`

func build(t *testing.T, opts BuildOptions) (*memblob.Store, *Manifest) {
	t.Helper()
	s := memblob.New()
	m, err := Build(context.Background(), s, strings.NewReader(source), opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return s, m
}

func TestBuild(t *testing.T) {
	s, m := build(t, BuildOptions{TotalShards: 16})

	if m.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", m.RecordCount)
	}
	if m.Strategy != "material" || m.Compression != "zstd" {
		t.Errorf("manifest = %+v", m)
	}

	read, err := ReadManifest(context.Background(), s)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if read.TotalShards != 16 || read.ShardCount != m.ShardCount {
		t.Errorf("ReadManifest() = %+v, want %+v", read, m)
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	for _, opts := range []BuildOptions{
		{TotalShards: 16},
		{TotalShards: 7, Strategy: FNVStrategy{}, Codec: gzipcodec.New()},
	} {
		s, _ := build(t, opts)
		e, err := Open(context.Background(), s, Config{})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		// Full FEN with counters resolves to the stored key.
		lines, err := e.Evaluate(context.Background(),
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 20, 3)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if len(lines) != 3 {
			t.Fatalf("Evaluate() returned %d lines, want 3 from the multi-PV analysis", len(lines))
		}
		if lines[1].Move != "d2d4" || lines[1].Depth != 22 {
			t.Errorf("line 1 = %+v, want d2d4 at depth 22", lines[1])
		}

		single, err := e.Evaluate(context.Background(),
			"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -", 20, 1)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if single[0].Depth != 30 || single[0].Score.Centipawns() != 20 {
			t.Errorf("single line = %+v, want the depth 30 analysis", single[0])
		}

		mate, err := e.Evaluate(context.Background(), "8/8/8/4k3/8/8/4K3/4R3 w - -", 20, 1)
		if err != nil {
			t.Fatalf("Evaluate(mate) error = %v", err)
		}
		if !mate[0].Score.IsMate() || *mate[0].Score.Mate != 12 {
			t.Errorf("mate line = %+v", mate[0])
		}

		_, err = e.Evaluate(context.Background(), "8/8/8/8/8/8/8/4K2k w - -", 20, 1)
		if !errors.Is(err, engine.ErrNoEvaluation) {
			t.Errorf("Evaluate(missing) error = %v, want ErrNoEvaluation", err)
		}
		if err := e.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
}

func TestOpen_MissingManifest(t *testing.T) {
	if _, err := Open(context.Background(), memblob.New(), Config{}); err == nil {
		t.Error("Open() should fail without a manifest")
	}
}

func TestStrategies(t *testing.T) {
	const a = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	const b = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 5 40"

	for _, s := range []Strategy{MaterialStrategy{}, FNVStrategy{}} {
		got, err := StrategyByName(s.Name())
		if err != nil || got.Name() != s.Name() {
			t.Errorf("StrategyByName(%q) = %v, %v", s.Name(), got, err)
		}
		if s.ShardID(a, 1024) != s.ShardID(b, 1024) {
			t.Errorf("%s: move counters changed the shard", s.Name())
		}
		for _, total := range []int{1, 7, 32768} {
			if id := s.ShardID(a, total); id < 0 || id >= total {
				t.Errorf("%s: ShardID out of range [0,%d): %d", s.Name(), total, id)
			}
		}
	}

	// Same material, different side to move.
	white := MaterialStrategy{}.ShardID("4k3/8/8/8/8/8/8/4K2R w - -", 1<<19)
	black := MaterialStrategy{}.ShardID("4k3/8/8/8/8/8/8/4K2R b - -", 1<<19)
	if white == black {
		t.Error("side to move should change the material signature")
	}

	if _, err := StrategyByName("nope"); err == nil {
		t.Error("StrategyByName(nope) should fail")
	}
}

func TestSearch(t *testing.T) {
	data := []byte(`{"fen":"a w - -","evals":[]}
{"fen":"b w - -","evals":[{"pvs":[{"cp":1,"line":"e2e4"}],"depth":1}]}

{"fen":"c w - -","evals":[]}
`)
	rec, err := search(data, "b w - -")
	if err != nil {
		t.Fatalf("search() error = %v", err)
	}
	if len(rec.Evals) != 1 {
		t.Errorf("search() = %+v", rec)
	}
	if _, err := search(data, "bb w - -"); !errors.Is(err, errNotInShard) {
		t.Errorf("search(missing) error = %v, want errNotInShard", err)
	}
	if _, err := search(nil, "a w - -"); !errors.Is(err, errNotInShard) {
		t.Errorf("search(empty) error = %v, want errNotInShard", err)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	s, m := build(t, BuildOptions{TotalShards: 16})

	r, err := Verify(ctx, s, false)
	if err != nil {
		t.Fatalf("Verify() error = %v, problems = %v", err, r.Problems)
	}
	if r.Records != m.RecordCount || r.Shards != m.ShardCount {
		t.Errorf("Verify() = %+v, want %d records in %d shards", r, m.RecordCount, m.ShardCount)
	}

	key, err := fen.Normalize("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	id := MaterialStrategy{}.ShardID(key, 16)
	if err := s.Write(ctx, codec.Path(zstdcodec.New(), shardName(id)), []byte("junk")); err != nil {
		t.Fatal(err)
	}

	r, err = Verify(ctx, s, true)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Verify() error = %v, want ErrCorrupt", err)
	}
	if len(r.Problems) == 0 {
		t.Error("Verify() reported no problems")
	}
}
