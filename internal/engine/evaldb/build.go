package evaldb

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/discochess/lookahead/internal/blob"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
	"github.com/discochess/lookahead/internal/fen"
)

// DefaultTotalShards is the default number of shards to create.
const DefaultTotalShards = 4096

// BuildOptions configures Build.
type BuildOptions struct {
	TotalShards int
	Strategy    Strategy
	Codec       codec.Codec
	Workers     int
	Logger      *zap.Logger
}

func (o *BuildOptions) setDefaults() {
	if o.TotalShards <= 0 {
		o.TotalShards = DefaultTotalShards
	}
	if o.Strategy == nil {
		o.Strategy = MaterialStrategy{}
	}
	if o.Codec == nil {
		o.Codec = zstdcodec.NewBest()
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Build reads JSONL evaluation records from src, distributes them into
// sorted compressed shards in dst and writes the manifest. Record FENs are
// normalized to position keys; records without a valid FEN are skipped.
// When the same position appears twice the later record wins.
func Build(ctx context.Context, dst blob.Store, src io.Reader, opts BuildOptions) (*Manifest, error) {
	opts.setDefaults()
	logger := opts.Logger.Named("evaldb")

	shards := make(map[int]map[string][]byte)
	var skipped int64

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		key, err := fen.Normalize(rec.FEN)
		if err != nil {
			skipped++
			continue
		}
		rec.FEN = key
		encoded, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding record %s: %w", key, err)
		}

		id := opts.Strategy.ShardID(key, opts.TotalShards)
		if shards[id] == nil {
			shards[id] = make(map[string][]byte)
		}
		shards[id][key] = encoded
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	var records int64
	for id, recs := range shards {
		records += int64(len(recs))
		g.Go(func() error {
			if err := writeShard(gctx, dst, opts.Codec, id, recs); err != nil {
				return fmt.Errorf("writing shard %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:     1,
		TotalShards: opts.TotalShards,
		Strategy:    opts.Strategy.Name(),
		RecordCount: records,
		ShardCount:  len(shards),
		BuiltAt:     time.Now().UTC(),
		Compression: opts.Codec.Name(),
	}
	if err := WriteManifest(ctx, dst, m); err != nil {
		return nil, err
	}

	logger.Info("evaluation database built",
		zap.Int64("records", records),
		zap.Int64("skipped", skipped),
		zap.Int("shards", len(shards)),
		zap.String("strategy", m.Strategy),
	)
	return m, nil
}

func writeShard(ctx context.Context, dst blob.Store, c codec.Codec, id int, recs map[string][]byte) error {
	keys := make([]string, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var body []byte
	for _, k := range keys {
		body = append(body, recs[k]...)
		body = append(body, '\n')
	}

	compressed, err := codec.Encode(c, body)
	if err != nil {
		return err
	}
	return dst.Write(ctx, codec.Path(c, shardName(id)), compressed)
}
