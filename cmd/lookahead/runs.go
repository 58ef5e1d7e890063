package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/lookahead/internal/runstore"
)

var runsCmd = &cobra.Command{
	Use:   "runs [RUN-ID]",
	Short: "List recorded runs or show one run with its intents",
	Long: `List the most recent runs recorded by "explore --record", or show a
single run and its intents.

Examples:
  lookahead runs --db ./runs.db
  lookahead runs --db ./runs.db 0f8fad5b-d9cb-469f-a165-70867728950e`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

var (
	runsDB    string
	runsLimit int
)

func init() {
	runsCmd.Flags().StringVar(&runsDB, "db", "", "run database (defaults to store.path from the config)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
	runsCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	path := runsDB
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Store.Path
	}
	if path == "" {
		return fmt.Errorf("no run database; pass --db or set store.path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("run database %q does not exist", path)
	}

	store, err := runstore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if len(args) == 1 {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(run)
		}
		printRun(run)
		return nil
	}

	runs, err := store.List(ctx, runsLimit)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPLAYED\tCLASS\tNODES\tSTOPPED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), orDash(r.Played),
			orDash(r.Classification), r.NodesExplored, r.StoppingReason)
	}
	return w.Flush()
}

func printRun(r runstore.Run) {
	fmt.Printf("Run:        %s\n", r.ID)
	fmt.Printf("Created:    %s\n", r.CreatedAt.Local().Format(time.DateTime))
	fmt.Printf("Position:   %s\n", r.RootFEN)
	fmt.Printf("Played:     %s (%s)\n", orDash(r.Played), orDash(r.Classification))
	fmt.Printf("Explored:   %d nodes, %d skipped, %d cache hits, depth %d\n",
		r.NodesExplored, r.NodesSkipped, r.CacheHits, r.MaxDepth)
	fmt.Printf("Stopped:    %s after %s\n", r.StoppingReason, r.Elapsed.Round(time.Millisecond))
	fmt.Printf("Provider:   %s\n", r.ProviderVersion)
	for _, w := range r.Warnings {
		fmt.Printf("Warning:    %s\n", w)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tTYPE\tMOVE\tBEST")
	for _, in := range r.Intents {
		move := in.Content.Move
		if in.Mandatory {
			move += " *"
		}
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", in.Priority, in.Type, move, orDash(in.Content.BestAlternative))
	}
	_ = w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
