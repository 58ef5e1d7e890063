package codec_test

import (
	"bytes"
	"testing"

	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/gzipcodec"
	"github.com/discochess/lookahead/internal/codec/noopcodec"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
)

func TestCodecs(t *testing.T) {
	tests := []struct {
		codec    codec.Codec
		name     string
		ext      string
		compress bool
	}{
		{zstdcodec.New(), "zstd", "zst", true},
		{zstdcodec.NewBest(), "zstd", "zst", true},
		{gzipcodec.New(), "gzip", "gz", true},
		{noopcodec.New(), "none", "", false},
	}

	large := bytes.Repeat([]byte(`{"fen":"8/8/8/8/8/8/8/K6k w - -"}`+"\n"), 2000)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.codec.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", tt.codec.Name(), tt.name)
			}
			if tt.codec.Extension() != tt.ext {
				t.Errorf("Extension() = %q, want %q", tt.codec.Extension(), tt.ext)
			}

			for _, original := range [][]byte{[]byte("hello"), large} {
				encoded, err := codec.Encode(tt.codec, original)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				decoded, err := codec.Decode(tt.codec, encoded)
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if !bytes.Equal(decoded, original) {
					t.Errorf("round trip of %d bytes returned %d bytes", len(original), len(decoded))
				}
			}

			encoded, err := codec.Encode(tt.codec, large)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if tt.compress && len(encoded) >= len(large) {
				t.Errorf("expected compression, got %d bytes from %d", len(encoded), len(large))
			}
		})
	}
}

func TestDecode_InvalidData(t *testing.T) {
	for _, c := range []codec.Codec{zstdcodec.New(), gzipcodec.New()} {
		if _, err := codec.Decode(c, []byte("not compressed data")); err == nil {
			t.Errorf("%s Decode() should fail on garbage", c.Name())
		}
	}
}

func TestPath(t *testing.T) {
	if got := codec.Path(zstdcodec.New(), "shards/00001.jsonl"); got != "shards/00001.jsonl.zst" {
		t.Errorf("Path() = %q", got)
	}
	if got := codec.Path(noopcodec.New(), "snapshot"); got != "snapshot" {
		t.Errorf("Path() = %q", got)
	}
}
