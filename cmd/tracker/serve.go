package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjannette/trahn-tracker/internal/api"
	"github.com/kjannette/trahn-tracker/internal/db"
	"github.com/kjannette/trahn-tracker/internal/logging"
	"github.com/kjannette/trahn-tracker/internal/scheduler"
)

var (
	useMemory   bool
	skipMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the REST API and the job scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&useMemory, "memory", false, "use the in-memory store instead of PostgreSQL")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Print(banner)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(useMemory)
	if err != nil {
		return err
	}
	defer a.close()
	a.cfg.Print()

	if a.pool != nil && !skipMigrate {
		if err := db.Migrate(a.cfg.DSN(), "up"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.log.Info().Msg("migrations applied")
	}

	sched, err := scheduler.New(scheduler.Config{
		PriceSchedule:    a.cfg.PriceSchedule,
		ScannerSchedule:  a.cfg.ScannerSchedule,
		StrategySchedule: a.cfg.StrategySchedule,
	}, scheduler.Jobs{
		Ingest:   a.ingest,
		Scanner:  a.scanner,
		Strategy: a.strategy,
	}, logging.Component(a.log, "scheduler"), a.metrics)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Store:     a.store,
		Scheduler: sched,
		Backfill:  a.backfill,
		Gatherer:  a.registry,
		Log:       logging.Component(a.log, "api"),
	}
	if a.pool != nil {
		deps.DB = a.pool
	}
	srv := api.NewServer(deps, a.cfg.APIPort, a.cfg.APIKey, a.cfg.CORSAllowOrigin)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	sched.Start()
	a.log.Info().Msg("all services started")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down gracefully")
	case err = <-errCh:
		a.log.Error().Err(err).Msg("API server stopped")
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		a.log.Error().Err(serr).Msg("API shutdown")
	}
	a.log.Info().Msg("shutdown complete")
	return err
}
