package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/discochess/lookahead/internal/engine"
	"github.com/discochess/lookahead/internal/engine/uci"
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown [FEN]",
	Short: "Show the classical evaluation terms of a position",
	Long: `Ask a UCI engine for its classical evaluation of a position, term by term.
Only engines that still print the classical table for "eval" (Stockfish 16
and earlier) can answer.

Example:
  lookahead breakdown --engine-path stockfish16 "<fen>"`,
	Args: cobra.ExactArgs(1),
	RunE: runBreakdown,
}

var breakdownEngine string

func init() {
	breakdownCmd.Flags().StringVar(&breakdownEngine, "engine-path", "", "engine binary (default: engine.path from the config)")
	breakdownCmd.Flags().BoolVar(&outputJSON, "json", false, "output the breakdown as JSON")
	rootCmd.AddCommand(breakdownCmd)
}

var breakdownTerms = []string{
	"material", "imbalance", "pawns", "knights", "bishops", "rooks", "queens",
	"mobility", "king safety", "threats", "passed", "space", "winnable", "total",
}

func runBreakdown(cmd *cobra.Command, args []string) error {
	path := breakdownEngine
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Engine.Path
	}

	c, err := uci.NewClassical(path)
	if err != nil {
		return err
	}
	ctx, cancel := interruptible()
	defer cancel()

	b, err := c.Breakdown(ctx, args[0])
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(b)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "TERM\tWHITE MG\tWHITE EG\tBLACK MG\tBLACK EG\tTOTAL MG\tTOTAL EG\t")
	for _, name := range breakdownTerms {
		t, _ := b.Term(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", name, pair(t.White), pair(t.Black), pair(t.Total))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nBlended: %+.2f\n", float64(b.CP)/100)
	return nil
}

func pair(p engine.PhaseScore) string {
	return fmt.Sprintf("%+.2f\t%+.2f", p.MG, p.EG)
}
