// Package scanner flags large moves across a fixed market watchlist,
// independent of any user's portfolio.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/metrics"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

const (
	Name = "scanner"

	IndexName    = "NIFTY 50"
	TopN         = 50
	CryptoWindow = "24h"
	DedupWindow  = time.Hour

	exchangeSuffix = ".NS"
)

// CommodityWatchlist holds exchange-listed proxies for gold, silver, copper and oil.
var CommodityWatchlist = []string{"GOLDBEES", "SILVERBEES", "HINDCOPPER", "ONGC"}

// threshold flags a move strictly above flag; strictly above high it is HIGH.
type threshold struct {
	flag, high float64
}

var (
	indexThreshold     = threshold{flag: 2, high: 4}
	commodityThreshold = threshold{flag: 1.5, high: 3}
	cryptoThreshold    = threshold{flag: 5, high: 10}
)

func (t threshold) severity(pct float64) (models.Severity, bool) {
	abs := math.Abs(pct)
	switch {
	case abs > t.high:
		return models.SeverityHigh, true
	case abs > t.flag:
		return models.SeverityMedium, true
	}
	return "", false
}

type Job struct {
	store   *repository.Store
	gw      *marketdata.Gateway
	log     zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func New(store *repository.Store, gw *marketdata.Gateway, log zerolog.Logger, rec *metrics.Recorder, now func() time.Time) *Job {
	if now == nil {
		now = time.Now
	}
	return &Job{store: store, gw: gw, log: log, metrics: rec, now: now}
}

func (j *Job) Name() string { return Name }

// Run executes the three sub-scans. A provider outage empties one sub-scan
// only; persistence failures from all of them are returned together.
func (j *Job) Run(ctx context.Context) error {
	return errors.Join(
		j.scanIndex(ctx),
		j.scanCommodities(ctx),
		j.scanCrypto(ctx),
	)
}

func (j *Job) scanIndex(ctx context.Context) error {
	var errs []error
	for _, m := range j.gw.IndexConstituents(ctx, IndexName) {
		sev, ok := indexThreshold.severity(m.PercentChange)
		if !ok {
			continue
		}
		errs = append(errs, j.save(ctx, "index", models.MarketAnomaly{
			Symbol:   m.Symbol + exchangeSuffix,
			Class:    models.ClassEquityIN,
			Price:    m.Price,
			Message:  fmt.Sprintf("%s moved %s%% today.", m.Symbol, strconv.FormatFloat(m.PercentChange, 'f', -1, 64)),
			Severity: sev,
		}))
	}
	return errors.Join(errs...)
}

func (j *Job) scanCommodities(ctx context.Context) error {
	if !j.gw.Supports(marketdata.CapSymbolDetail) {
		return nil
	}
	var errs []error
	for _, symbol := range CommodityWatchlist {
		m, ok := j.gw.SymbolDetail(ctx, symbol)
		if !ok {
			continue
		}
		sev, ok := commodityThreshold.severity(m.PercentChange)
		if !ok {
			continue
		}
		errs = append(errs, j.save(ctx, "commodity", models.MarketAnomaly{
			Symbol:   symbol + exchangeSuffix,
			Class:    models.ClassCommodityProxy,
			Price:    m.Price,
			Message:  fmt.Sprintf("%s (Commodity Proxy) moved %.2f%% today.", symbol, m.PercentChange),
			Severity: sev,
		}))
	}
	return errors.Join(errs...)
}

func (j *Job) scanCrypto(ctx context.Context) error {
	var errs []error
	for _, m := range j.gw.TopByMarketCap(ctx, TopN, CryptoWindow) {
		sev, ok := cryptoThreshold.severity(m.PercentChange)
		if !ok {
			continue
		}
		errs = append(errs, j.save(ctx, "crypto", models.MarketAnomaly{
			Symbol:   m.Symbol,
			Class:    models.ClassCrypto,
			Price:    m.Price,
			Message:  fmt.Sprintf("%s moved %.2f%% in 24h.", m.Name, m.PercentChange),
			Severity: sev,
		}))
	}
	return errors.Join(errs...)
}

// save inserts m unless the same symbol was recorded within DedupWindow.
func (j *Job) save(ctx context.Context, scan string, m models.MarketAnomaly) error {
	now := j.now()
	_, err := j.store.MarketAnomalies.FindSince(ctx, m.Symbol, now.Add(-DedupWindow))
	switch {
	case err == nil:
		j.metrics.MarketAnomaly(scan, "deduplicated")
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("dedup lookup %s: %w", m.Symbol, err)
	}

	m.Timestamp = now
	if _, err := j.store.MarketAnomalies.Record(ctx, &m); err != nil {
		j.log.Error().Err(err).Str("symbol", m.Symbol).Msg("record market anomaly")
		return fmt.Errorf("record market anomaly %s: %w", m.Symbol, err)
	}
	j.metrics.MarketAnomaly(scan, "recorded")
	j.log.Info().Str("symbol", m.Symbol).Str("severity", string(m.Severity)).Str("scan", scan).Msg(m.Message)
	return nil
}
