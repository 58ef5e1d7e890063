package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/discochess/lookahead/internal/intent"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *Run {
	return &Run{
		RootFEN:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		RootKey:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		Played:         "f3",
		Classification: "blunder",
		StoppingReason: "exhausted",
		NodesExplored:  7,
		NodesSkipped:   2,
		CacheHits:      1,
		MaxDepth:       3,
		Elapsed:        1500 * time.Millisecond,
		Warnings:       []string{"candidate dropped: timeout"},
		Intents: []intent.Intent{
			{Type: intent.TypeBlunder, Ply: 1, Priority: 0.9, Mandatory: true, Content: intent.Content{Move: "f3", UCI: "f2f3"}},
			{Type: intent.TypeAlternative, Ply: 1, Priority: 0.4, Content: intent.Content{Move: "e4", UCI: "e2e4"}},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	r := sampleRun()
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected an assigned run ID")
	}

	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RootKey != r.RootKey || got.NodesExplored != 7 || got.Elapsed != r.Elapsed {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != r.Warnings[0] {
		t.Errorf("Warnings = %v", got.Warnings)
	}
	if len(got.Intents) != 2 {
		t.Fatalf("Intents = %d, want 2", len(got.Intents))
	}
	if got.Intents[0].Type != intent.TypeBlunder || !got.Intents[0].Mandatory {
		t.Errorf("first intent = %+v", got.Intents[0])
	}
	if got.Intents[1].Content.UCI != "e2e4" {
		t.Errorf("second intent = %+v", got.Intents[1])
	}
}

func TestGet_NotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		r := sampleRun()
		r.ID = string(rune('a' + i))
		r.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List() = %d runs, want 2", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("List() order = %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Intents != nil {
		t.Error("List() should not load intents")
	}
}

func TestSave_DuplicateID(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	r := sampleRun()
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dup := sampleRun()
	dup.ID = r.ID
	if err := s.Save(ctx, dup); err == nil {
		t.Error("Save() with duplicate ID should fail")
	}

	in, err := s.Intents(ctx, r.ID)
	if err != nil {
		t.Fatalf("Intents: %v", err)
	}
	if len(in) != 2 {
		t.Errorf("Intents() = %d, want 2 (failed save must roll back)", len(in))
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Save(context.Background(), sampleRun()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	runs, err := s.List(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Errorf("List() = %d, %v", len(runs), err)
	}
}
