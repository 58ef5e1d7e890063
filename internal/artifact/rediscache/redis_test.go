package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/engine"
)

// fakeRedis implements Client over in-memory hashes.
type fakeRedis struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
	readErr error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return redis.NewMapStringStringResult(nil, f.readErr)
	}
	out := make(map[string]string)
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		field := fmt.Sprint(values[i])
		switch v := values[i+1].(type) {
		case []byte:
			h[field] = string(v)
		default:
			h[field] = fmt.Sprint(v)
		}
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

const (
	pos     = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq -"
	version = "uci/stockfish"
)

func entry(depth, cp int) *artifact.Artifact {
	return &artifact.Artifact{
		PositionKey:     pos,
		Depth:           depth,
		Lines:           []engine.Line{{Move: "e7e5", Score: engine.CPScore(cp)}},
		ProviderVersion: version,
	}
}

func TestCache_KeyFormat(t *testing.T) {
	fake := newFakeRedis()
	c := New(fake, WithPrefix("test:"), WithTTL(time.Hour))
	c.Set(context.Background(), entry(12, 20))

	hash := "test:" + version + ":" + pos
	h, ok := fake.hashes[hash]
	if !ok {
		t.Fatalf("hash %q not written; have %v", hash, fake.hashes)
	}
	if _, ok := h["d12"]; !ok {
		t.Errorf("field d12 missing: %v", h)
	}
	if fake.ttls[hash] != time.Hour {
		t.Errorf("ttl = %v, want 1h", fake.ttls[hash])
	}
}

func TestCache_DepthSelection(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeRedis())

	c.Set(ctx, entry(8, 10))
	c.Set(ctx, entry(16, 35))

	tests := []struct {
		depth  int
		wantOK bool
		wantCP int
	}{
		{4, true, 35},
		{8, true, 35},
		{16, true, 35},
		{17, false, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth%d", tt.depth), func(t *testing.T) {
			got, ok := c.Get(ctx, artifact.Key{Position: pos, Depth: tt.depth, Version: version})
			if ok != tt.wantOK {
				t.Fatalf("Get() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && *got.Lines[0].Score.CP != tt.wantCP {
				t.Errorf("Get() cp = %d, want %d", *got.Lines[0].Score.CP, tt.wantCP)
			}
		})
	}
}

func TestCache_VersionNamespace(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeRedis())
	c.Set(ctx, entry(10, 10))

	if _, ok := c.Get(ctx, artifact.Key{Position: pos, Depth: 10, Version: "uci/other"}); ok {
		t.Error("Get() should miss under another provider version")
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := New(fake)
	fake.hashes[c.Key(version, pos)] = map[string]string{"d10": "{not json", "junk": "x"}

	if _, ok := c.Get(ctx, artifact.Key{Position: pos, Depth: 10, Version: version}); ok {
		t.Error("corrupt entry should be a miss")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", c.Stats().Misses)
	}
}

func TestCache_CorruptDeepestFallsThrough(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := New(fake)
	c.Set(ctx, entry(12, 25))
	fake.hashes[c.Key(version, pos)]["d20"] = "{not json"

	got, ok := c.Get(ctx, artifact.Key{Position: pos, Depth: 10, Version: version})
	if !ok {
		t.Fatal("a valid shallower field should still satisfy depth 10")
	}
	if got.Depth != 12 || *got.Lines[0].Score.CP != 25 {
		t.Errorf("Get() = depth %d cp %d, want depth 12 cp 25", got.Depth, *got.Lines[0].Score.CP)
	}

	if _, ok := c.Get(ctx, artifact.Key{Position: pos, Depth: 16, Version: version}); ok {
		t.Error("only the corrupt field satisfies depth 16; want a miss")
	}
}

func TestCache_ReadErrorIsMiss(t *testing.T) {
	fake := newFakeRedis()
	fake.readErr = errors.New("connection refused")
	c := New(fake)

	if _, ok := c.Get(context.Background(), artifact.Key{Position: pos, Version: version}); ok {
		t.Error("read error should be a miss")
	}
}

func TestCache_Close(t *testing.T) {
	fake := newFakeRedis()
	if err := New(fake).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.closed {
		t.Error("Close() should close the client")
	}
}

func TestDial_InvalidURL(t *testing.T) {
	if _, err := Dial("not-a-url"); err == nil {
		t.Error("Dial() should reject an invalid url")
	}
}
