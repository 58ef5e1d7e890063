package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/discochess/lookahead"
	"github.com/discochess/lookahead/internal/engine/scripted"
	"github.com/discochess/lookahead/internal/rules/notnilrules"
	"github.com/discochess/lookahead/internal/themes"
)

var themesCmd = &cobra.Command{
	Use:   "themes [FEN]",
	Short: "List the themes present in a position",
	Long: `Run every theme detector on a single position, without exploring.

Example:
  lookahead themes "r3k3/2N5/8/8/8/8/8/4K3 b - - 0 1"`,
	Args: cobra.ExactArgs(1),
	RunE: runThemes,
}

func init() {
	themesCmd.Flags().BoolVar(&outputJSON, "json", false, "output themes as JSON")
	rootCmd.AddCommand(themesCmd)
}

func runThemes(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Detection needs no evaluations; the material evaluator keeps the
	// command independent of any engine install.
	a, err := lookahead.New(
		lookahead.WithEvaluator(materialEvaluator()),
		lookahead.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := a.Themes(args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(themes.Summarize(found, nil))
	}
	if len(found) == 0 {
		fmt.Println("No themes found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "THEME\tCATEGORY\tFOR\tSQUARE\tSEVERITY\tSTAKE\tEXPLANATION")
	for _, in := range found {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			in.Type, in.Category, in.Beneficiary, in.Primary, in.Severity,
			in.MaterialAtStake, strings.TrimSpace(in.Explanation))
	}
	return w.Flush()
}

func materialEvaluator() *scripted.Evaluator {
	ev := scripted.NewEvaluator()
	ev.SetGenerator(scripted.MaterialGenerator(notnilrules.New()))
	return ev
}
