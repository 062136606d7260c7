package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/helmling/bidgap/internal/model"
	"github.com/helmling/bidgap/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [query ...]",
	Short: "Scan the given search queries once and evaluate every listing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}

		deps, st, err := buildDeps(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		quiet, _ := cmd.Flags().GetBool("quiet")
		summary, err := pipeline.New(cfg, deps, quiet).Run(cmd.Context(), args)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		return printSummary(summary, asJSON)
	},
}

func init() {
	runCmd.Flags().Bool("json", false, "print the run summary as JSON")
	rootCmd.AddCommand(runCmd)
}

func printSummary(s *model.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Printf("run %d finished in %s\n", s.RunID, s.Duration.Round(10*time.Millisecond))
	fmt.Printf("  listings:   %d seen, %d extracted, %d extraction failures\n",
		s.ListingsSeen, s.Extracted, s.ExtractionFailed)
	if s.ScrapeErrors > 0 {
		fmt.Printf("  scrape errors: %d\n", s.ScrapeErrors)
	}
	fmt.Printf("  oracle:     %d calls, est. cost %.4f\n", s.OracleCalls, s.EstCost)
	fmt.Printf("  evaluated:  %d\n", s.Evaluated)

	strategies := make([]model.Strategy, 0, len(s.ByStrategy))
	for st := range s.ByStrategy {
		strategies = append(strategies, st)
	}
	sort.Slice(strategies, func(i, j int) bool {
		return strategies[i].Rank() > strategies[j].Rank()
	})
	for _, st := range strategies {
		fmt.Printf("    %-18s %d\n", st, s.ByStrategy[st])
	}
	return nil
}
