// Package codecs resolves codecs by the names recorded in manifests,
// snapshot headers and configuration files.
package codecs

import (
	"errors"
	"fmt"

	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/gzipcodec"
	"github.com/discochess/lookahead/internal/codec/noopcodec"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
)

// ErrUnknown indicates a codec name with no implementation.
var ErrUnknown = errors.New("codecs: unknown codec")

// ByName returns the codec called name. The empty name selects zstd.
func ByName(name string) (codec.Codec, error) {
	switch name {
	case "zstd", "":
		return zstdcodec.New(), nil
	case "gzip":
		return gzipcodec.New(), nil
	case "none":
		return noopcodec.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}
