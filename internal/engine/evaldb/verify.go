package evaldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/codecs"
)

// ErrCorrupt is returned by Verify when the database does not match its
// manifest.
var ErrCorrupt = errors.New("evaldb: corrupt database")

// VerifyReport summarizes a database check.
type VerifyReport struct {
	Manifest Manifest
	Shards   int
	Records  int64
	// Problems lists one line per failed check.
	Problems []string
}

// Verify checks that every shard decompresses, holds sorted records that
// belong to it, and that the totals match the manifest. With quick set only
// the first and last record of each shard are checked. The returned error
// wraps ErrCorrupt when any check failed; the report is valid either way.
func Verify(ctx context.Context, s blob.Store, quick bool) (*VerifyReport, error) {
	m, err := ReadManifest(ctx, s)
	if err != nil {
		return nil, err
	}
	strategy, err := StrategyByName(m.Strategy)
	if err != nil {
		return nil, err
	}
	c, err := codecs.ByName(m.Compression)
	if err != nil {
		return nil, err
	}

	r := &VerifyReport{Manifest: *m}
	for id := range m.TotalShards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := codec.Path(c, shardName(id))
		compressed, err := s.Read(ctx, name)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		r.Shards++

		data, err := codec.Decode(c, compressed)
		if err != nil {
			r.Problems = append(r.Problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		lines := splitLines(data)
		r.Records += int64(len(lines))
		if len(lines) == 0 {
			r.Problems = append(r.Problems, fmt.Sprintf("%s: empty shard", name))
			continue
		}

		check := make([]int, 0, len(lines))
		if quick {
			check = append(check, 0)
			if len(lines) > 1 {
				check = append(check, len(lines)-1)
			}
		} else {
			for i := range lines {
				check = append(check, i)
			}
		}

		var prev string
		for _, i := range check {
			key := extractFEN(lines[i])
			if key == "" {
				r.Problems = append(r.Problems, fmt.Sprintf("%s: line %d: missing fen", name, i+1))
				break
			}
			if prev != "" && key <= prev {
				r.Problems = append(r.Problems, fmt.Sprintf("%s: %q not sorted after %q", name, key, prev))
				break
			}
			if got := strategy.ShardID(key, m.TotalShards); got != id {
				r.Problems = append(r.Problems, fmt.Sprintf("%s: %q belongs in shard %d", name, key, got))
				break
			}
			prev = key
		}
	}

	if r.Shards != m.ShardCount {
		r.Problems = append(r.Problems, fmt.Sprintf("found %d shards, manifest lists %d", r.Shards, m.ShardCount))
	}
	if r.Records != m.RecordCount {
		r.Problems = append(r.Problems, fmt.Sprintf("found %d records, manifest lists %d", r.Records, m.RecordCount))
	}
	if len(r.Problems) > 0 {
		return r, fmt.Errorf("%w: %d problems", ErrCorrupt, len(r.Problems))
	}
	return r, nil
}
