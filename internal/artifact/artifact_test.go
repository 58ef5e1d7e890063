package artifact_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/artifact/lru"
	"github.com/discochess/lookahead/internal/artifact/memory"
	"github.com/discochess/lookahead/internal/criticality"
	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/themes"
)

const version = "scripted/1"

func newMemory(t *testing.T) *memory.Backend {
	t.Helper()
	s, err := lru.New(16, 0)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	return memory.New(s, nil)
}

func entry(position string, depth int) *artifact.Artifact {
	return &artifact.Artifact{
		PositionKey:     position,
		Depth:           depth,
		Lines:           []engine.Line{{Move: "e2e4", Score: engine.CPScore(30)}},
		Themes:          []themes.Instance{{Type: themes.Fork, Pieces: []string{"black rook a8"}}},
		Criticality:     &criticality.Result{Score: 55, Tier: criticality.Full},
		ProviderVersion: version,
		ComputedAt:      time.Unix(1700000000, 0),
	}
}

func TestArtifact_Satisfies(t *testing.T) {
	a := entry("p", 10)
	tests := []struct {
		name string
		key  artifact.Key
		want bool
	}{
		{"same depth", artifact.Key{Position: "p", Depth: 10, Version: version}, true},
		{"shallower request", artifact.Key{Position: "p", Depth: 4, Version: version}, true},
		{"deeper request", artifact.Key{Position: "p", Depth: 11, Version: version}, false},
		{"other position", artifact.Key{Position: "q", Depth: 10, Version: version}, false},
		{"other version", artifact.Key{Position: "p", Depth: 10, Version: "v2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Satisfies(tt.key); got != tt.want {
				t.Errorf("Satisfies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtifact_Clone(t *testing.T) {
	a := entry("p", 10)
	c := a.Clone()

	*c.Lines[0].Score.CP = 99
	c.Themes[0].Pieces[0] = "changed"
	c.Criticality.Score = 1

	if *a.Lines[0].Score.CP != 30 || a.Themes[0].Pieces[0] != "black rook a8" || a.Criticality.Score != 55 {
		t.Error("Clone() shares state with the original")
	}
	if (*artifact.Artifact)(nil).Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestTiered(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newMemory(t), newMemory(t)
	tiered := artifact.NewTiered(l1, l2)

	l2.Set(ctx, entry("p", 10))
	k := artifact.Key{Position: "p", Depth: 10, Version: version}

	if _, ok := tiered.Get(ctx, k); !ok {
		t.Fatal("Get() should fall through to L2")
	}
	if l1.Len() != 1 {
		t.Error("L2 hit should populate L1")
	}

	tiered.Set(ctx, entry("q", 5))
	if l1.Len() != 2 || l2.Len() != 2 {
		t.Errorf("Set() should write both levels, got %d/%d", l1.Len(), l2.Len())
	}

	if _, ok := tiered.Get(ctx, artifact.Key{Position: "r", Version: version}); ok {
		t.Error("Get() should miss")
	}
	s := tiered.Stats()
	if s.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", s.Misses)
	}
	if n := len(tiered.Entries()); n != 2 {
		t.Errorf("Entries() returned %d, want 2", n)
	}
	if err := tiered.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLoader_ComputesOnce(t *testing.T) {
	ctx := context.Background()
	loader := artifact.NewLoader(newMemory(t))
	k := artifact.Key{Position: "p", Depth: 10, Version: version}

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (*artifact.Artifact, error) {
		calls.Add(1)
		<-release
		return entry("p", 10), nil
	}

	var wg sync.WaitGroup
	results := make([]*artifact.Artifact, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, _, err := loader.GetOrCompute(ctx, k, fn)
			if err != nil {
				t.Errorf("GetOrCompute() error = %v", err)
			}
			results[i] = a
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("compute ran %d times, want 1", n)
	}
	for _, a := range results {
		if a == nil || a.PositionKey != "p" {
			t.Fatalf("GetOrCompute() = %+v", a)
		}
	}

	_, hit, err := loader.GetOrCompute(ctx, k, fn)
	if err != nil || !hit {
		t.Errorf("second call hit = %v, err = %v; want cached", hit, err)
	}
}

func TestLoader_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	cache := newMemory(t)
	loader := artifact.NewLoader(cache)
	k := artifact.Key{Position: "p", Depth: 10, Version: version}

	boom := errors.New("engine down")
	_, _, err := loader.GetOrCompute(ctx, k, func(context.Context) (*artifact.Artifact, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, boom)
	}
	if cache.Len() != 0 {
		t.Error("failed computation should not be cached")
	}

	a, hit, err := loader.GetOrCompute(ctx, k, func(context.Context) (*artifact.Artifact, error) {
		return entry("p", 10), nil
	})
	if err != nil || hit || a == nil {
		t.Errorf("GetOrCompute() = %v, %v, %v", a, hit, err)
	}
}

func TestNop(t *testing.T) {
	var c artifact.Cache = artifact.Nop{}
	c.Set(context.Background(), entry("p", 1))
	if _, ok := c.Get(context.Background(), artifact.Key{Position: "p", Version: version}); ok {
		t.Error("Nop should never hit")
	}
}
