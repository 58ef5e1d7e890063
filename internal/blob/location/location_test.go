package location

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/discochess/lookahead/internal/blob/diskblob"
	"github.com/discochess/lookahead/internal/blob/memblob"
)

func TestOpen_Local(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, loc := range []string{dir, "file://" + filepath.ToSlash(dir)} {
		s, err := Open(ctx, loc)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", loc, err)
		}
		if _, ok := s.(*diskblob.Store); !ok {
			t.Errorf("Open(%q) = %T, want *diskblob.Store", loc, s)
		}
		if err := s.Write(ctx, "a/b.json", []byte("x")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		s.Close()
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := s.(*memblob.Store); !ok {
		t.Errorf("Open() = %T, want *memblob.Store", s)
	}
}

func TestOpen_Invalid(t *testing.T) {
	for _, loc := range []string{"", "ftp://host/x", "gs:///prefix", "s3:///prefix"} {
		if _, err := Open(context.Background(), loc); !errors.Is(err, ErrInvalid) {
			t.Errorf("Open(%q) error = %v, want ErrInvalid", loc, err)
		}
	}
}
