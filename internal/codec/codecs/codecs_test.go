package codecs

import (
	"errors"
	"testing"
)

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "zstd"},
		{"zstd", "zstd"},
		{"gzip", "gzip"},
		{"none", "none"},
	}
	for _, tt := range tests {
		c, err := ByName(tt.name)
		if err != nil {
			t.Fatalf("ByName(%q) error = %v", tt.name, err)
		}
		if c.Name() != tt.want {
			t.Errorf("ByName(%q).Name() = %q, want %q", tt.name, c.Name(), tt.want)
		}
	}

	if _, err := ByName("brotli"); !errors.Is(err, ErrUnknown) {
		t.Errorf("ByName(brotli) error = %v, want ErrUnknown", err)
	}
}
