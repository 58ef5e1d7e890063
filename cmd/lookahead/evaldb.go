package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/lookahead/internal/blob/location"
	"github.com/discochess/lookahead/internal/codec"
	"github.com/discochess/lookahead/internal/codec/codecs"
	"github.com/discochess/lookahead/internal/codec/gzipcodec"
	"github.com/discochess/lookahead/internal/codec/zstdcodec"
	"github.com/discochess/lookahead/internal/engine/evaldb"
)

// DefaultSourceURL is the Lichess evaluation export.
const DefaultSourceURL = "https://database.lichess.org/lichess_db_eval.jsonl.zst"

var evaldbCmd = &cobra.Command{
	Use:   "evaldb",
	Short: "Build and check precomputed evaluation databases",
	Long: `An evaluation database serves precomputed evaluations instead of a live
engine (engine.kind: evaldb). It is a set of sorted, compressed shards plus a
manifest, stored in any snapshot location.`,
}

var evaldbBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build an evaluation database from a JSONL export",
	Long: `Read JSONL evaluation records, distribute them into shards, sort and
compress each shard and write the manifest.

Sources ending in .zst or .gz are decompressed while reading.

Examples:
  # Build from the Lichess export
  lookahead evaldb build --output ./evals

  # Build from a local file into GCS
  lookahead evaldb build --source ./lichess_db_eval.jsonl.zst --output gs://my-bucket/evals`,
	Args: cobra.NoArgs,
	RunE: runEvaldbBuild,
}

var evaldbVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of an evaluation database",
	Long: `Verify that every shard decompresses, holds sorted records that belong
to it, and that the totals match the manifest.`,
	Args: cobra.NoArgs,
	RunE: runEvaldbVerify,
}

var evaldbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the manifest of an evaluation database",
	Args:  cobra.NoArgs,
	RunE:  runEvaldbStats,
}

var (
	sourceURL    string
	dataLoc      string
	totalShards  int
	strategyName string
	codecName    string
	workers      int
	verifyQuick  bool
)

func init() {
	evaldbBuildCmd.Flags().StringVar(&sourceURL, "source", DefaultSourceURL, "source URL or local file path")
	evaldbBuildCmd.Flags().StringVarP(&dataLoc, "output", "o", "./evals", "output location")
	evaldbBuildCmd.Flags().IntVar(&totalShards, "shards", evaldb.DefaultTotalShards, "number of shards to create")
	evaldbBuildCmd.Flags().StringVar(&strategyName, "strategy", "material", "sharding strategy: material, fnv32")
	evaldbBuildCmd.Flags().StringVar(&codecName, "codec", "zstd", "shard compression: zstd, gzip, none")
	evaldbBuildCmd.Flags().IntVar(&workers, "workers", 4, "number of parallel workers for compression")

	for _, c := range []*cobra.Command{evaldbVerifyCmd, evaldbStatsCmd} {
		c.Flags().StringVarP(&dataLoc, "data", "d", "./evals", "database location")
	}
	evaldbVerifyCmd.Flags().BoolVar(&verifyQuick, "quick", false, "only check first and last entries in each shard")

	evaldbCmd.AddCommand(evaldbBuildCmd, evaldbVerifyCmd, evaldbStatsCmd)
	rootCmd.AddCommand(evaldbCmd)
}

func runEvaldbBuild(cmd *cobra.Command, args []string) error {
	strategy, err := evaldb.StrategyByName(strategyName)
	if err != nil {
		return err
	}
	c, err := codecs.ByName(codecName)
	if err != nil {
		return err
	}
	if c.Name() == "zstd" {
		c = zstdcodec.NewBest()
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := interruptible()
	defer cancel()

	src, err := openSource(ctx, sourceURL)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := location.Open(ctx, dataLoc)
	if err != nil {
		return err
	}
	defer dst.Close()

	fmt.Printf("Building evaluation database\n")
	fmt.Printf("  Source:     %s\n", sourceURL)
	fmt.Printf("  Output:     %s\n", dataLoc)
	fmt.Printf("  Shards:     %d\n", totalShards)
	fmt.Printf("  Strategy:   %s\n", strategy.Name())
	fmt.Printf("  Workers:    %d\n", workers)
	fmt.Println()

	start := time.Now()
	m, err := evaldb.Build(ctx, dst, src, evaldb.BuildOptions{
		TotalShards: totalShards,
		Strategy:    strategy,
		Codec:       c,
		Workers:     workers,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d records into %d shards in %s\n",
		m.RecordCount, m.ShardCount, time.Since(start).Round(time.Second))
	return nil
}

// openSource opens a local file or URL, decompressing by extension.
func openSource(ctx context.Context, src string) (io.ReadCloser, error) {
	var body io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", src, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("downloading %s: %s", src, resp.Status)
		}
		body = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("opening source: %w", err)
		}
		body = f
	}

	var c codec.Codec
	switch {
	case strings.HasSuffix(src, ".zst"):
		c = zstdcodec.New()
	case strings.HasSuffix(src, ".gz"):
		c = gzipcodec.New()
	default:
		return body, nil
	}
	r, err := c.Reader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("creating %s reader: %w", c.Name(), err)
	}
	return &stackedReader{ReadCloser: r, under: body}, nil
}

// stackedReader closes a decompressor and the stream beneath it.
type stackedReader struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedReader) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.under.Close())
}

func runEvaldbVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible()
	defer cancel()

	s, err := location.Open(ctx, dataLoc)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := evaldb.Verify(ctx, s, verifyQuick)
	if r != nil {
		fmt.Printf("Checked %d shards, %d records.\n", r.Shards, r.Records)
		for _, p := range r.Problems {
			fmt.Printf("  ERROR: %s\n", p)
		}
	}
	if err != nil {
		return err
	}
	fmt.Println("All shards verified successfully.")
	return nil
}

func runEvaldbStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := location.Open(ctx, dataLoc)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := evaldb.ReadManifest(ctx, s)
	if err != nil {
		return fmt.Errorf("%w; run 'lookahead evaldb build' first", err)
	}
	fmt.Printf("Location:     %s\n", dataLoc)
	fmt.Printf("Records:      %d\n", m.RecordCount)
	fmt.Printf("Shards:       %d of %d\n", m.ShardCount, m.TotalShards)
	fmt.Printf("Strategy:     %s\n", m.Strategy)
	fmt.Printf("Compression:  %s\n", m.Compression)
	fmt.Printf("Built:        %s\n", m.BuiltAt.Local().Format(time.DateTime))
	return nil
}
