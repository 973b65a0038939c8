package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjannette/trahn-tracker/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:       "run <ingest|scan|strategy>",
	Short:     "Runs one job once and exits",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"ingest", "scan", "strategy"},
	RunE:      runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	jobs := map[string]scheduler.Job{
		"ingest":   a.ingest,
		"scan":     a.scanner,
		"strategy": a.strategy,
	}
	job := jobs[args[0]]

	start := time.Now()
	err = job.Run(ctx)
	a.metrics.JobRun(job.Name(), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	a.log.Info().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job finished")
	return nil
}
