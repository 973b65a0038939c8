package main

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/backfill"
	"github.com/kjannette/trahn-tracker/internal/config"
	"github.com/kjannette/trahn-tracker/internal/db"
	"github.com/kjannette/trahn-tracker/internal/ingest"
	"github.com/kjannette/trahn-tracker/internal/logging"
	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/metrics"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/notifications"
	"github.com/kjannette/trahn-tracker/internal/repository"
	"github.com/kjannette/trahn-tracker/internal/repository/memory"
	"github.com/kjannette/trahn-tracker/internal/scanner"
	"github.com/kjannette/trahn-tracker/internal/strategy"
)

// app holds everything the subcommands share.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Recorder

	pool  *pgxpool.Pool // nil with the in-memory store
	store *repository.Store

	gateway    *marketdata.Gateway
	dispatcher *notifications.Dispatcher

	ingest   *ingest.Job
	scanner  *scanner.Job
	strategy *strategy.Job
	backfill *backfill.Backfiller
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	return cfg, log, nil
}

func newApp(useMemory bool) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	if useMemory {
		mem := memory.New()
		mem.PutUser(models.User{ID: 1, Email: "demo@example.com", IsVerified: true})
		a.store = mem.Store()
		log.Warn().Msg("using in-memory store, data is lost on exit (demo user id 1)")
	} else {
		dbLog := logging.Component(log, "db")
		dbLog.Info().Str("host", cfg.DBHost).Int("port", cfg.DBPort).Str("name", cfg.DBName).Msg("connecting")
		pool, err := db.Connect(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.TestConnection(pool, dbLog); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db test query: %w", err)
		}
		a.pool = pool
		a.store = repository.NewPostgresStore(pool)
	}

	a.gateway = marketdata.NewGateway(providers(cfg), logging.Component(log, "marketdata"), a.metrics)

	a.dispatcher = notifications.NewDispatcher(cfg.NotifyQueueSize, logging.Component(log, "notify"), a.metrics, channels(cfg, log)...)
	a.dispatcher.Start()

	a.ingest = ingest.New(a.store, a.gateway, a.dispatcher, logging.Component(log, ingest.Name), a.metrics, ingest.Options{
		EquityQuoteDelay: cfg.EquityQuoteDelay(),
	})
	a.scanner = scanner.New(a.store, a.gateway, logging.Component(log, scanner.Name), a.metrics, nil)
	a.strategy = strategy.New(a.store, a.gateway, a.dispatcher, logging.Component(log, strategy.Name), a.metrics, strategy.Options{
		OHLCDays: cfg.StrategyOHLCDays,
	})
	a.backfill = backfill.New(a.store.Prices, a.gateway, logging.Component(log, "backfill"), cfg.BackfillDays)

	return a, nil
}

// providers only assigns the optional sources that are configured, so a
// missing one stays a nil interface.
func providers(cfg *config.Config) marketdata.Providers {
	p := marketdata.Providers{
		Crypto: marketdata.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, cfg.CoinGeckoRequestsPerMinute),
	}
	if cfg.FinnhubKey != "" {
		p.EquityQuotes = marketdata.NewFinnhubClient(cfg.FinnhubBaseURL, cfg.FinnhubKey)
	}
	if cfg.NSEEnabled {
		p.Exchange = marketdata.NewNSEClient(cfg.NSEBaseURL, cfg.DetailCacheTTL())
	}
	return p
}

func channels(cfg *config.Config, log zerolog.Logger) []notifications.Channel {
	var out []notifications.Channel
	if cfg.EmailHost != "" {
		out = append(out, notifications.NewEmailSender(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPass, cfg.EmailFrom))
	} else {
		out = append(out, notifications.NewLogSender(logging.Component(log, "notify")))
	}
	if cfg.WebhookURL != "" {
		out = append(out, notifications.NewWebhookSender(cfg.WebhookURL, cfg.BotName, logging.Component(log, "webhook")))
	}
	return out
}

// close drains pending notifications and releases the pool.
func (a *app) close() {
	a.backfill.Wait()
	a.dispatcher.Close()
	if a.pool != nil {
		a.pool.Close()
		a.log.Info().Msg("database pool closed")
	}
}
