// Package ingest samples spot prices for every tracked instrument, stores them
// and raises anomaly alerts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kjannette/trahn-tracker/internal/anomaly"
	"github.com/kjannette/trahn-tracker/internal/config"
	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/metrics"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/notifications"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

const Name = "ingest"

type Options struct {
	// EquityQuoteDelay spaces US equity quotes. Values under
	// config.MinEquityQuoteDelay are raised to it.
	EquityQuoteDelay time.Duration
	Now              func() time.Time
}

type Job struct {
	store    *repository.Store
	gw       *marketdata.Gateway
	notifier notifications.Notifier
	log      zerolog.Logger
	metrics  *metrics.Recorder
	usQuotes *rate.Limiter
	now      func() time.Time
}

func New(store *repository.Store, gw *marketdata.Gateway, n notifications.Notifier, log zerolog.Logger, rec *metrics.Recorder, opts Options) *Job {
	delay := opts.EquityQuoteDelay
	if delay < config.MinEquityQuoteDelay {
		delay = config.MinEquityQuoteDelay
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Job{
		store:    store,
		gw:       gw,
		notifier: n,
		log:      log,
		metrics:  rec,
		usQuotes: rate.NewLimiter(rate.Every(delay), 1),
		now:      now,
	}
}

func (j *Job) Name() string { return Name }

// Run prices every tracked instrument once. A symbol without a price is
// skipped; persistence failures are collected and returned together.
func (j *Job) Run(ctx context.Context) error {
	tracked, err := j.store.Assets.ListTracked(ctx)
	if err != nil {
		return fmt.Errorf("list tracked assets: %w", err)
	}
	if len(tracked) == 0 {
		return nil
	}

	var batch, detail, throttled []models.TrackedAsset
	for _, a := range tracked {
		if !a.Class.Valid() {
			j.log.Warn().Int64("asset_id", a.ID).Str("type", string(a.Class)).Msg("unknown asset class, skipped")
			continue
		}
		switch a.Class.PriceSource() {
		case models.SourceBatchQuote:
			batch = append(batch, a)
		case models.SourceExchangeDetail:
			detail = append(detail, a)
		case models.SourceThrottledQuote:
			throttled = append(throttled, a)
		}
	}

	// The three sources are independent; within each, order is preserved.
	errs := make([]error, 3)
	var g errgroup.Group
	g.Go(func() error { errs[0] = j.runBatch(ctx, batch); return nil })
	g.Go(func() error { errs[1] = j.runDetail(ctx, detail); return nil })
	g.Go(func() error { errs[2] = j.runThrottled(ctx, throttled); return nil })
	_ = g.Wait()

	return errors.Join(errs...)
}

func (j *Job) runBatch(ctx context.Context, assets []models.TrackedAsset) error {
	if len(assets) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, a := range assets {
		id := strings.ToLower(a.Symbol)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	prices := j.gw.BatchSpotPrice(ctx, ids)
	var errs []error
	for _, a := range assets {
		price, ok := prices[strings.ToLower(a.Symbol)]
		if !ok || price <= 0 {
			continue
		}
		errs = append(errs, j.process(ctx, a, price))
	}
	return errors.Join(errs...)
}

func (j *Job) runDetail(ctx context.Context, assets []models.TrackedAsset) error {
	var errs []error
	for _, a := range assets {
		if ctx.Err() != nil {
			break
		}
		m, ok := j.gw.SymbolDetail(ctx, a.Symbol)
		if !ok || m.Price <= 0 {
			continue
		}
		errs = append(errs, j.process(ctx, a, m.Price))
	}
	return errors.Join(errs...)
}

// runThrottled is strictly sequential with at least the configured delay
// between two quotes.
func (j *Job) runThrottled(ctx context.Context, assets []models.TrackedAsset) error {
	if len(assets) == 0 || !j.gw.Supports(marketdata.CapSingleSpotPrice) {
		return nil
	}
	var errs []error
	for _, a := range assets {
		if err := j.usQuotes.Wait(ctx); err != nil {
			break
		}
		price, ok := j.gw.SingleSpotPrice(ctx, a.Symbol)
		if !ok || price <= 0 {
			continue
		}
		errs = append(errs, j.process(ctx, a, price))
	}
	return errors.Join(errs...)
}

func (j *Job) process(ctx context.Context, a models.TrackedAsset, price float64) error {
	obs, err := j.store.Prices.Record(ctx, a.ID, price, j.now())
	if err != nil {
		j.log.Error().Err(err).Str("symbol", a.Symbol).Msg("record price")
		return fmt.Errorf("record price %s: %w", a.Symbol, err)
	}
	j.metrics.Observation(string(a.Class))

	window, err := j.store.Prices.Window(ctx, a.ID, obs.ID, anomaly.WindowSize)
	if err != nil {
		return fmt.Errorf("load window %s: %w", a.Symbol, err)
	}
	v, ok := anomaly.Detect(anomaly.Prices(window), price)
	if !ok {
		return nil
	}

	j.log.Info().Str("symbol", a.Symbol).Str("severity", string(v.Severity)).
		Float64("z_score", v.ZScore).Float64("pct_change", v.PercentChange).Msg("anomaly detected")
	j.metrics.Anomaly(string(v.Severity))

	if _, err := j.store.Anomalies.Record(ctx, &models.Anomaly{
		AssetID:   a.ID,
		Severity:  v.Severity,
		Message:   v.Message,
		Price:     price,
		Timestamp: obs.Timestamp,
	}); err != nil {
		return fmt.Errorf("record anomaly %s: %w", a.Symbol, err)
	}
	if _, err := j.store.Alerts.Record(ctx, &models.Alert{
		UserID:    a.UserID,
		Message:   fmt.Sprintf("%s: %s", a.Symbol, v.Message),
		CreatedAt: obs.Timestamp,
	}); err != nil {
		return fmt.Errorf("record alert %s: %w", a.Symbol, err)
	}

	if a.Owner.IsVerified {
		j.notifier.Notify(a.Owner.Email,
			fmt.Sprintf("Asset Alert: %s - %s", a.Symbol, v.Severity),
			fmt.Sprintf("At %s, we detected an anomaly:\n\n%s\n\nCurrent Price: %s",
				obs.Timestamp.Format(time.RFC1123), v.Message, formatPrice(price)),
		)
	}
	return nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
