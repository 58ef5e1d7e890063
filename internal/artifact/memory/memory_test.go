package memory

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/artifact/lru"
	"github.com/discochess/lookahead/internal/engine"
)

const (
	pos     = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq -"
	version = "scripted/1"
)

func newBackend(t *testing.T, capacity int, ttl time.Duration) *Backend {
	t.Helper()
	strategy, err := lru.New(capacity, ttl)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	return New(strategy, nil)
}

func entry(position string, depth, cp int) *artifact.Artifact {
	return &artifact.Artifact{
		PositionKey:     position,
		Depth:           depth,
		Lines:           []engine.Line{{Move: "e7e5", Score: engine.CPScore(cp), PV: []string{"e7e5", "g1f3"}}},
		ProviderVersion: version,
	}
}

func key(position string, depth int) artifact.Key {
	return artifact.Key{Position: position, Depth: depth, Version: version}
}

func TestBackend_GetSet(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 0)

	if _, ok := b.Get(ctx, key(pos, 10)); ok {
		t.Error("Get() should return false for missing key")
	}

	b.Set(ctx, entry(pos, 10, 25))
	got, ok := b.Get(ctx, key(pos, 10))
	if !ok {
		t.Fatal("Get() should return true after Set")
	}
	if got.Depth != 10 || *got.Lines[0].Score.CP != 25 {
		t.Errorf("Get() = %+v", got)
	}
}

func TestBackend_DepthRule(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 0)
	b.Set(ctx, entry(pos, 12, 25))

	tests := []struct {
		depth int
		want  bool
	}{
		{8, true},
		{12, true},
		{13, false},
	}
	for _, tt := range tests {
		if _, ok := b.Get(ctx, key(pos, tt.depth)); ok != tt.want {
			t.Errorf("Get(depth %d) ok = %v, want %v", tt.depth, ok, tt.want)
		}
	}

	// A shallower write never replaces the deeper entry.
	b.Set(ctx, entry(pos, 6, -40))
	got, ok := b.Get(ctx, key(pos, 12))
	if !ok || *got.Lines[0].Score.CP != 25 {
		t.Errorf("deeper entry was replaced: %+v", got)
	}

	// Equal depth is last write wins.
	b.Set(ctx, entry(pos, 12, 31))
	got, _ = b.Get(ctx, key(pos, 12))
	if *got.Lines[0].Score.CP != 31 {
		t.Errorf("Get() cp = %d, want 31", *got.Lines[0].Score.CP)
	}
}

func TestBackend_VersionNamespace(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 0)
	b.Set(ctx, entry(pos, 10, 25))

	k := key(pos, 10)
	k.Version = "uci/other"
	if _, ok := b.Get(ctx, k); ok {
		t.Error("Get() should miss for a different provider version")
	}
}

func TestBackend_Idempotent(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 0)
	b.Set(ctx, entry(pos, 10, 25))

	first, _ := b.Get(ctx, key(pos, 10))
	second, _ := b.Get(ctx, key(pos, 10))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Get() differ:\n%+v\n%+v", first, second)
	}

	// Mutating a returned copy does not leak into the cache.
	first.Lines[0].PV[0] = "a7a6"
	third, _ := b.Get(ctx, key(pos, 10))
	if third.Lines[0].PV[0] != "e7e5" {
		t.Error("Get() returned shared state")
	}
}

func TestBackend_Stats(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 0)

	b.Set(ctx, entry(pos, 10, 25))
	b.Get(ctx, key(pos, 10))
	b.Get(ctx, key("missing", 10))

	stats := b.Stats()
	if stats.Hits != 1 {
		t.Errorf("Stats().Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", stats.Misses)
	}
	if stats.Size != 1 {
		t.Errorf("Stats().Size = %d, want 1", stats.Size)
	}
	if stats.HitRate() != 50 {
		t.Errorf("Stats().HitRate() = %v, want 50", stats.HitRate())
	}
}

func TestBackend_LRUEviction(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 2, 0)

	b.Set(ctx, entry("one", 10, 1))
	b.Set(ctx, entry("two", 10, 2))
	b.Get(ctx, key("one", 10)) // one is now most recent
	b.Set(ctx, entry("three", 10, 3))

	if _, ok := b.Get(ctx, key("two", 10)); ok {
		t.Error("Get(two) should return false after eviction")
	}
	if _, ok := b.Get(ctx, key("one", 10)); !ok {
		t.Error("Get(one) should return true")
	}
	if _, ok := b.Get(ctx, key("three", 10)); !ok {
		t.Error("Get(three) should return true")
	}
}

func TestBackend_TTL(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 20*time.Millisecond)

	b.Set(ctx, entry(pos, 10, 25))
	time.Sleep(80 * time.Millisecond)

	if _, ok := b.Get(ctx, key(pos, 10)); ok {
		t.Error("Get() should miss after the ttl")
	}
}

func TestBackend_Entries(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 10, 0)
	b.Set(ctx, entry("one", 10, 1))
	b.Set(ctx, entry("two", 10, 2))

	entries := b.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() = %d, want 2", len(entries))
	}
	if entries[0].PositionKey != "one" {
		t.Errorf("Entries()[0] = %s, want one", entries[0].PositionKey)
	}

	b.Purge()
	if b.Len() != 0 {
		t.Errorf("Len() after Purge = %d", b.Len())
	}
}

func TestBackend_ConcurrentSet(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, 100, 0)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Set(ctx, entry(pos, i%20, i))
		}()
		go func() {
			defer wg.Done()
			b.Get(ctx, key(pos, 5))
		}()
	}
	wg.Wait()

	got, ok := b.Get(ctx, key(pos, 19))
	if !ok || got.Depth != 19 {
		t.Errorf("deepest entry should survive concurrent writes, got %+v", got)
	}
}

func TestLRU_InvalidCapacity(t *testing.T) {
	if _, err := lru.New(0, 0); err == nil {
		t.Error("lru.New(0) should fail")
	}
}
