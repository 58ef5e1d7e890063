package artifact

import (
	"context"
	"errors"
	"io"
)

// Compile-time check that Tiered implements Cache.
var _ Cache = (*Tiered)(nil)

// Tiered layers a fast local cache over a shared one. L2 hits are copied
// into L1; writes go to both.
type Tiered struct {
	l1 Cache
	l2 Cache
}

// NewTiered creates a two-level cache.
func NewTiered(l1, l2 Cache) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

// Get checks L1, then L2.
func (t *Tiered) Get(ctx context.Context, key Key) (*Artifact, bool) {
	if a, ok := t.l1.Get(ctx, key); ok {
		return a, true
	}

	a, ok := t.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	t.l1.Set(ctx, a)
	return a, true
}

// Set writes through to both levels.
func (t *Tiered) Set(ctx context.Context, a *Artifact) {
	t.l1.Set(ctx, a)
	t.l2.Set(ctx, a)
}

// Stats combines both levels: hits from either, misses from L2 and the size
// of L1.
func (t *Tiered) Stats() Stats {
	s1, s2 := t.l1.Stats(), t.l2.Stats()
	return Stats{
		Hits:   s1.Hits + s2.Hits,
		Misses: s2.Misses,
		Size:   s1.Size,
	}
}

// Entries lists the L1 entries when L1 can enumerate them.
func (t *Tiered) Entries() []*Artifact {
	if src, ok := t.l1.(interface{ Entries() []*Artifact }); ok {
		return src.Entries()
	}
	return nil
}

// Close closes whichever levels hold resources.
func (t *Tiered) Close() error {
	var errs []error
	for _, c := range []Cache{t.l1, t.l2} {
		if cl, ok := c.(io.Closer); ok {
			errs = append(errs, cl.Close())
		}
	}
	return errors.Join(errs...)
}
