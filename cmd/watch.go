package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/helmling/bidgap/internal/logging"
	"github.com/helmling/bidgap/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch [query ...]",
	Short: "Re-scan the given queries on a schedule until interrupted",
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
		schedule, _ := cmd.Flags().GetString("schedule")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		iterate := func() {
			// fresh runner per iteration: each run gets its own budget
			summary, err := pipeline.New(cfg, deps, quiet).Run(ctx, args)
			if err != nil {
				logging.Log.Errorf("scheduled run failed: %v", err)
				return
			}
			if err := printSummary(summary, false); err != nil {
				logging.Log.Errorf("printing summary: %v", err)
			}
		}

		cronLog := cron.PrintfLogger(logging.Log)
		c := cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		))
		if _, err := c.AddFunc(schedule, iterate); err != nil {
			return err
		}

		iterate()
		c.Start()
		logging.Log.Infof("watching %d queries on schedule %q", len(args), schedule)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-ctx.Done():
		}

		stopped := c.Stop()
		<-stopped.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().String("schedule", "@every 1h", "cron schedule between scans")
	rootCmd.AddCommand(watchCmd)
}
