package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/config"
	"github.com/discochess/lookahead/internal/intent"
)

var exploreCmd = &cobra.Command{
	Use:   "explore [FEN]",
	Short: "Explore continuations from a position and print comment intents",
	Long: `Explore candidate continuations from a position given in FEN notation.

The played move is always explored first. When --class marks it as an
inaccuracy, mistake or blunder it always yields a mandatory intent.

Examples:
  # Explore with the configured engine
  lookahead explore "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" --played f3 --class mistake

  # Offline run with the built-in material evaluator, JSON output
  lookahead explore "<fen>" --engine scripted --json

  # Record the run
  lookahead explore "<fen>" --played e4 --record ./runs.db`,
	Args: cobra.ExactArgs(1),
	RunE: runExplore,
}

var (
	playedMove  string
	classLabel  string
	outputJSON  bool
	recordDB    string
	maxNodes    int
	maxDepth    int
	budget      time.Duration
	rating      int
	engineKind  string
	enginePath  string
	showNodes   bool
	minPriority float64
)

func init() {
	exploreCmd.Flags().StringVar(&playedMove, "played", "", "move played from the position, SAN or UCI")
	exploreCmd.Flags().StringVar(&classLabel, "class", "", "classification of the played move: best, excellent, good, book, inaccuracy, mistake, blunder")
	exploreCmd.Flags().BoolVar(&outputJSON, "json", false, "output the full result as JSON")
	exploreCmd.Flags().StringVar(&recordDB, "record", "", "record the run in this SQLite database")
	exploreCmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "override the node limit")
	exploreCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override the depth limit")
	exploreCmd.Flags().DurationVar(&budget, "budget", 0, "override the time budget")
	exploreCmd.Flags().IntVar(&rating, "rating", 0, "predict human moves at this rating (1100-1900)")
	exploreCmd.Flags().StringVar(&engineKind, "engine", "", "evaluation provider: uci, evaldb, scripted")
	exploreCmd.Flags().StringVar(&enginePath, "engine-path", "", "UCI engine binary or evaluation database location")
	exploreCmd.Flags().BoolVar(&showNodes, "nodes", false, "list every explored node")
	exploreCmd.Flags().Float64Var(&minPriority, "min-priority", 0, "hide optional intents below this priority")
	rootCmd.AddCommand(exploreCmd)
}

// applyEngineFlags overrides the engine section of cfg from the command line.
func applyEngineFlags(cfg *config.Config) {
	if engineKind != "" {
		cfg.Engine.Kind = engineKind
	}
	if enginePath != "" {
		if cfg.Engine.Kind == "evaldb" {
			cfg.Engine.Data = enginePath
		} else {
			cfg.Engine.Path = enginePath
		}
	}
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyEngineFlags(&cfg)
	if recordDB != "" {
		cfg.Store.Path = recordDB
	}

	ctx, cancel := interruptible()
	defer cancel()

	a, closeAll, err := openAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	res, err := a.Analyze(ctx, lookahead.Request{
		FEN:            args[0],
		PlayedMove:     playedMove,
		Classification: intent.Classification(classLabel),
		Rating:         rating,
		MaxNodes:       maxNodes,
		MaxDepth:       maxDepth,
		Budget:         budget,
	})
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(res)
	}
	printResult(res)
	return nil
}

func printResult(res *lookahead.Result) {
	fmt.Printf("Position:   %s\n", res.RootFEN)
	if res.RootEval != nil {
		fmt.Printf("Eval:       %s\n", res.RootEval)
	}
	if res.Played != nil {
		fmt.Printf("Played:     %s (%s)\n", res.Played, orDash(string(res.Classification)))
	}
	fmt.Printf("Explored:   %d nodes, %d skipped, %d cache hits, depth %d\n",
		res.NodesExplored, res.NodesSkipped, res.CacheHits, res.MaxDepthReached)
	fmt.Printf("Stopped:    %s after %s\n", res.StoppingReason, res.Elapsed.Round(time.Millisecond))
	fmt.Printf("Provider:   %s\n", res.ProviderVersion)
	fmt.Printf("Criticality: mean %.1f, median %.1f, max %.1f\n",
		res.Criticality.Mean, res.Criticality.Median, res.Criticality.Max)
	if res.RunID != "" {
		fmt.Printf("Run:        %s\n", res.RunID)
	}
	for _, w := range res.Warnings {
		fmt.Printf("Warning:    %s\n", w)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tTYPE\tMOVE\tLENGTH\tBEST\tIDEAS")
	for _, in := range res.Intents {
		if !in.Mandatory && in.Priority < minPriority {
			continue
		}
		move := fmt.Sprintf("%d%s %s", in.Content.MoveNumber, dots(in), in.Content.Move)
		if in.Mandatory {
			move += " *"
		}
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\t%s\t%s\n",
			in.Priority, in.Type, move, in.Length,
			orDash(in.Content.BestAlternative), orDash(strings.Join(in.Content.IdeaKeys, ",")))
	}
	_ = w.Flush()

	if showNodes {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "DEPTH\tMOVE\tEVAL\tTIER\tCRITICALITY\tTHEMES\tFLAGS")
		for _, n := range res.Nodes {
			eval := "-"
			if n.Eval != nil {
				eval = n.Eval.String()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f\t%d\t%s\n",
				n.Depth, n.Move, eval, n.Tier, n.Criticality.Score, len(n.Themes), nodeFlags(n))
		}
		_ = w.Flush()
	}
}

func dots(in intent.Intent) string {
	if in.Ply%2 == 0 {
		return "..."
	}
	return "."
}

func nodeFlags(n lookahead.NodeReport) string {
	var flags []string
	if n.Played {
		flags = append(flags, "played")
	}
	if n.CacheHit {
		flags = append(flags, "cached")
	}
	if n.Degraded {
		flags = append(flags, "degraded")
	}
	return orDash(strings.Join(flags, ","))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
