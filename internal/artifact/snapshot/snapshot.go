// Package snapshot persists artifact cache contents to blob storage.
//
// A snapshot is one codec-compressed JSON document holding a header and the
// entries. Restoring a snapshot whose header does not match the running
// provider discards it wholesale.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/discochess/lookahead/internal/artifact"
	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/codec"
)

// FormatVersion is the snapshot document version written by Save.
const FormatVersion = 1

// DepthSemantics names how artifact depths are measured.
const DepthSemantics = "engine-ply"

// ErrMismatch indicates a snapshot written for a different format,
// provider version or depth semantics.
var ErrMismatch = errors.New("snapshot: header mismatch")

// Header identifies what a snapshot is valid for.
type Header struct {
	FormatVersion   int       `json:"formatVersion"`
	ProviderVersion string    `json:"providerVersion"`
	DepthSemantics  string    `json:"depthSemantics"`
	Codec           string    `json:"codec"`
	CreatedAt       time.Time `json:"createdAt"`
	Entries         int       `json:"entries"`
}

// Compatible reports whether h can be restored where want is expected.
func (h Header) Compatible(want Header) bool {
	return h.FormatVersion == want.FormatVersion &&
		h.ProviderVersion == want.ProviderVersion &&
		h.DepthSemantics == want.DepthSemantics
}

// For returns the header expected for a provider version.
func For(providerVersion string) Header {
	return Header{
		FormatVersion:   FormatVersion,
		ProviderVersion: providerVersion,
		DepthSemantics:  DepthSemantics,
	}
}

// Source lists cache entries to persist.
type Source interface {
	Entries() []*artifact.Artifact
}

type document struct {
	Header  Header               `json:"header"`
	Entries []*artifact.Artifact `json:"entries"`
}

// Name returns the object name for a snapshot, with the codec extension.
func Name(c codec.Codec, base string) string {
	return codec.Path(c, base+".json")
}

// Save writes the entries of src produced by providerVersion to dst under
// name. Entries of other versions are skipped. It returns the number of
// entries written.
func Save(ctx context.Context, dst blob.Store, name string, c codec.Codec, src Source, providerVersion string) (int, error) {
	h := For(providerVersion)
	h.Codec = c.Name()
	h.CreatedAt = time.Now().UTC()

	var entries []*artifact.Artifact
	for _, a := range src.Entries() {
		if a.ProviderVersion == providerVersion {
			entries = append(entries, a)
		}
	}
	h.Entries = len(entries)

	data, err := json.Marshal(document{Header: h, Entries: entries})
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	compressed, err := codec.Encode(c, data)
	if err != nil {
		return 0, err
	}
	if err := dst.Write(ctx, name, compressed); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}
	return len(entries), nil
}

// Load reads and validates a snapshot. A header that is not compatible with
// want returns ErrMismatch and no entries.
func Load(ctx context.Context, src blob.Store, name string, c codec.Codec, want Header) (Header, []*artifact.Artifact, error) {
	compressed, err := src.Read(ctx, name)
	if err != nil {
		return Header{}, nil, fmt.Errorf("reading snapshot: %w", err)
	}
	data, err := codec.Decode(c, compressed)
	if err != nil {
		return Header{}, nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Header{}, nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if !doc.Header.Compatible(want) {
		return doc.Header, nil, fmt.Errorf("%w: have %s/%s/v%d, want %s/%s/v%d", ErrMismatch,
			doc.Header.ProviderVersion, doc.Header.DepthSemantics, doc.Header.FormatVersion,
			want.ProviderVersion, want.DepthSemantics, want.FormatVersion)
	}
	return doc.Header, doc.Entries, nil
}

// Restore loads a snapshot into dst and returns the number of entries set.
func Restore(ctx context.Context, src blob.Store, name string, c codec.Codec, dst artifact.Cache, providerVersion string) (int, error) {
	_, entries, err := Load(ctx, src, name, c, For(providerVersion))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range entries {
		if a == nil || a.ProviderVersion != providerVersion {
			continue
		}
		dst.Set(ctx, a)
		n++
	}
	return n, nil
}
