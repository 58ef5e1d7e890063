// Package codec provides compression for persisted blobs: evaluation
// database shards and artifact cache snapshots.
package codec

import (
	"bytes"
	"fmt"
	"io"
)

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for no compression.
	Extension() string
	// Name identifies the codec in manifests and snapshot headers.
	Name() string
}

// Encode compresses data in one shot.
func Encode(c Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.Writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating %s writer: %w", c.Name(), err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flushing %s writer: %w", c.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses data in one shot.
func Decode(c Codec, data []byte) ([]byte, error) {
	r, err := c.Reader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating %s reader: %w", c.Name(), err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}

// Path appends the codec extension to name.
func Path(c Codec, name string) string {
	if ext := c.Extension(); ext != "" {
		return name + "." + ext
	}
	return name
}
