// Package zstdcodec provides a zstd compression codec.
package zstdcodec

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/discochess/lookahead/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements zstd compression.
type Codec struct {
	level zstd.EncoderLevel
}

// New returns a zstd codec using the default encoder level.
func New() *Codec {
	return &Codec{level: zstd.SpeedDefault}
}

// NewBest returns a zstd codec tuned for size. Shard builds use it since
// shards are written once and read many times.
func NewBest() *Codec {
	return &Codec{level: zstd.SpeedBestCompression}
}

// Reader wraps r to decompress zstd data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// Writer wraps w to compress data with zstd.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(c.level))
}

// Extension returns "zst".
func (c *Codec) Extension() string {
	return "zst"
}

// Name returns "zstd".
func (c *Codec) Name() string {
	return "zstd"
}
