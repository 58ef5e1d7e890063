package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/blob/location"
	"github.com/discochess/lookahead/internal/codec/codecs"
	"github.com/discochess/lookahead/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Save and restore artifact cache snapshots",
	Long: `Artifact cache snapshots let a later process start warm. Locations are a
local directory, file://path, gs://bucket/prefix or s3://bucket/prefix.`,
}

var cacheSnapshotCmd = &cobra.Command{
	Use:   "snapshot [FEN...]",
	Short: "Explore positions and save the warmed cache",
	Long: `Explore each given position with the configured limits, then save the
artifact cache to the snapshot location.

Example:
  lookahead cache snapshot --to gs://my-bucket/lookahead "<fen>" "<fen>"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCacheSnapshot,
}

var cacheRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Check that a snapshot restores for the configured engine",
	Long: `Load the snapshot into a fresh cache and report how many entries it holds.
Snapshots only restore for the engine version that wrote them.`,
	Args: cobra.NoArgs,
	RunE: runCacheRestore,
}

var (
	snapshotLoc   string
	snapshotCodec string
)

func init() {
	for _, c := range []*cobra.Command{cacheSnapshotCmd, cacheRestoreCmd} {
		c.Flags().StringVar(&snapshotLoc, "location", "", "snapshot location (defaults to cache.snapshot from the config)")
		c.Flags().StringVar(&snapshotCodec, "codec", "", "snapshot compression: zstd, gzip, none")
		c.Flags().StringVar(&engineKind, "engine", "", "evaluation provider: uci, evaldb, scripted")
		c.Flags().StringVar(&enginePath, "engine-path", "", "UCI engine binary or evaluation database location")
	}
	cacheCmd.AddCommand(cacheSnapshotCmd, cacheRestoreCmd)
	rootCmd.AddCommand(cacheCmd)
}

// snapshotConfig loads the configuration and resolves the snapshot flags.
// The analyzer must not restore on open, so cache.snapshot is cleared.
func snapshotConfig() (config.Config, string, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, "", "", err
	}
	applyEngineFlags(&cfg)

	loc, name := cfg.Cache.Snapshot, cfg.Cache.Codec
	if snapshotLoc != "" {
		loc = snapshotLoc
	}
	if snapshotCodec != "" {
		name = snapshotCodec
	}
	if loc == "" {
		return config.Config{}, "", "", fmt.Errorf("no snapshot location; pass --location or set cache.snapshot")
	}
	cfg.Cache.Snapshot = ""
	return cfg, loc, name, nil
}

func runCacheSnapshot(cmd *cobra.Command, args []string) error {
	cfg, loc, name, err := snapshotConfig()
	if err != nil {
		return err
	}
	c, err := codecs.ByName(name)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	a, closeAll, err := openAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	for _, fen := range args {
		res, err := a.Analyze(ctx, lookahead.Request{FEN: fen})
		if err != nil {
			return fmt.Errorf("exploring %q: %w", fen, err)
		}
		fmt.Printf("Explored %d nodes from %s (%s)\n", res.NodesExplored, res.RootFEN, res.StoppingReason)
	}

	dst, err := location.Open(ctx, loc)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := a.SaveSnapshot(ctx, dst, c)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d cache entries to %s (%s)\n", n, loc, c.Name())
	return nil
}

func runCacheRestore(cmd *cobra.Command, args []string) error {
	cfg, loc, name, err := snapshotConfig()
	if err != nil {
		return err
	}
	c, err := codecs.ByName(name)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, closeAll, err := openAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	src, err := location.Open(ctx, loc)
	if err != nil {
		return err
	}
	defer src.Close()

	n, err := a.RestoreSnapshot(ctx, src, c)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d cache entries from %s\n", n, loc)
	return nil
}
