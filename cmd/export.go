package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/helmling/bidgap/internal/report"
	"github.com/helmling/bidgap/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's evaluations as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.DatabaseFile)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, _ := cmd.Flags().GetInt64("run")
		if runID == 0 {
			runID, err = st.LatestRunID()
			if err != nil {
				return fmt.Errorf("no runs to export: %w", err)
			}
		}

		rows, err := st.EvaluationsForRun(runID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("run %d has no evaluations", runID)
		}

		var out io.Writer = os.Stdout
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		return report.WriteCSV(out, rows)
	},
}

func init() {
	exportCmd.Flags().Int64("run", 0, "run id to export (default: latest)")
	exportCmd.Flags().String("out", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
