package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/artifact/lru"
	"github.com/discochess/lookahead/internal/artifact/memory"
	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/blob/memblob"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/gzipcodec"
	"github.com/discochess/lookahead/internal/codec/noopcodec"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
)

const version = "uci/stockfish"

func newCache(t *testing.T) *memory.Backend {
	t.Helper()
	s, err := lru.New(32, 0)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	return memory.New(s, nil)
}

func fill(t *testing.T, c *memory.Backend) {
	t.Helper()
	ctx := context.Background()
	for i, pos := range []string{"a", "b", "c"} {
		c.Set(ctx, &artifact.Artifact{
			PositionKey:     pos,
			Depth:           10 + i,
			Lines:           []engine.Line{{Move: "e2e4", Score: engine.CPScore(i * 10)}},
			Tier:            criticality.Standard,
			ProviderVersion: version,
		})
	}
	c.Set(ctx, &artifact.Artifact{PositionKey: "old", Depth: 5, ProviderVersion: "uci/older"})
}

func TestSaveRestore(t *testing.T) {
	for _, c := range []codec.Codec{zstdcodec.New(), gzipcodec.New(), noopcodec.New()} {
		t.Run(c.Name(), func(t *testing.T) {
			ctx := context.Background()
			store := memblob.New()
			src := newCache(t)
			fill(t, src)

			name := Name(c, "cache")
			n, err := Save(ctx, store, name, c, src, version)
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if n != 3 {
				t.Errorf("Save() wrote %d entries, want 3", n)
			}

			dst := newCache(t)
			n, err = Restore(ctx, store, name, c, dst, version)
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if n != 3 || dst.Len() != 3 {
				t.Errorf("Restore() = %d entries, cache has %d; want 3", n, dst.Len())
			}

			got, ok := dst.Get(ctx, artifact.Key{Position: "c", Depth: 12, Version: version})
			if !ok {
				t.Fatal("restored entry missing")
			}
			if *got.Lines[0].Score.CP != 20 || got.Tier != criticality.Standard {
				t.Errorf("restored entry = %+v", got)
			}
		})
	}
}

func TestRestore_VersionMismatch(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()
	c := zstdcodec.New()
	src := newCache(t)
	fill(t, src)

	name := Name(c, "cache")
	if _, err := Save(ctx, store, name, c, src, version); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dst := newCache(t)
	n, err := Restore(ctx, store, name, c, dst, "uci/newer")
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("Restore() error = %v, want ErrMismatch", err)
	}
	if n != 0 || dst.Len() != 0 {
		t.Error("mismatched snapshot should be discarded wholesale")
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()
	c := zstdcodec.New()

	if _, _, err := Load(ctx, store, "missing", c, For(version)); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}

	if err := store.Write(ctx, "garbage", []byte("not compressed")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(ctx, store, "garbage", c, For(version)); err == nil {
		t.Error("Load() should fail on garbage")
	}
}

func TestName(t *testing.T) {
	if got := Name(zstdcodec.New(), "cache"); got != "cache.json.zst" {
		t.Errorf("Name() = %q", got)
	}
	if got := Name(noopcodec.New(), "cache"); got != "cache.json" {
		t.Errorf("Name() = %q", got)
	}
}
