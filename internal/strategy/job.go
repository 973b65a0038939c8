package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/metrics"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/notifications"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

const (
	Name = "strategy"

	// SignalPrefix starts every buy alert message; the cooldown lookup matches on it.
	SignalPrefix = "BUY SIGNAL: "
	Cooldown     = 24 * time.Hour
)

type Options struct {
	OHLCDays int
	Now      func() time.Time
}

type Job struct {
	store    *repository.Store
	gw       *marketdata.Gateway
	notifier notifications.Notifier
	log      zerolog.Logger
	metrics  *metrics.Recorder
	ohlcDays int
	now      func() time.Time
}

func New(store *repository.Store, gw *marketdata.Gateway, n notifications.Notifier, log zerolog.Logger, rec *metrics.Recorder, opts Options) *Job {
	if opts.OHLCDays <= 0 {
		opts.OHLCDays = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Job{
		store:    store,
		gw:       gw,
		notifier: n,
		log:      log,
		metrics:  rec,
		ohlcDays: opts.OHLCDays,
		now:      opts.Now,
	}
}

func (j *Job) Name() string { return Name }

func (j *Job) Run(ctx context.Context) error {
	tracked, err := j.store.Assets.ListTracked(ctx)
	if err != nil {
		return fmt.Errorf("list tracked assets: %w", err)
	}

	var errs []error
	for _, a := range tracked {
		if ctx.Err() != nil {
			break
		}
		if !a.Class.SupportsOHLC() {
			continue
		}
		candles := j.gw.OHLCSeries(ctx, strings.ToLower(a.Symbol), j.ohlcDays)
		sig, ok := Evaluate(candles)
		if !ok {
			j.log.Debug().Str("symbol", a.Symbol).Int("candles", len(candles)).Msg("not enough candles")
			continue
		}
		if !sig.Buy {
			continue
		}
		errs = append(errs, j.alert(ctx, a, sig))
	}
	return errors.Join(errs...)
}

func (j *Job) alert(ctx context.Context, a models.TrackedAsset, sig Signal) error {
	now := j.now()
	key := SignalPrefix + a.Symbol + " -"
	_, err := j.store.Alerts.FindRecent(ctx, a.UserID, key, now.Add(-Cooldown))
	switch {
	case err == nil:
		j.metrics.Signal("cooldown")
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("cooldown lookup %s: %w", a.Symbol, err)
	}

	msg := fmt.Sprintf("%s%s - Supertrend UP, RSI %.1f (Bullish)", SignalPrefix, a.Symbol, sig.LastRSI)
	if _, err := j.store.Alerts.Record(ctx, &models.Alert{UserID: a.UserID, Message: msg, CreatedAt: now}); err != nil {
		return fmt.Errorf("record signal %s: %w", a.Symbol, err)
	}
	j.metrics.Signal("alerted")
	j.log.Info().Str("symbol", a.Symbol).Float64("rsi", sig.LastRSI).Int("confidence", sig.Confidence).Msg("buy signal")

	if a.Owner.IsVerified {
		j.notifier.Notify(a.Owner.Email,
			fmt.Sprintf("BUY ALERT: %s (Confidence: %d%%)", a.Symbol, sig.Confidence),
			buyBody(a, sig),
		)
	}
	return nil
}

func buyBody(a models.TrackedAsset, sig Signal) string {
	var b strings.Builder
	b.WriteString("BUY ALERT\n\n")
	fmt.Fprintf(&b, "Asset: %s (%s)\n", a.Name, a.Symbol)
	fmt.Fprintf(&b, "Asset Class: %s\n", a.Class)
	b.WriteString("Timeframe: 30m (Strategy Run Time)\n")
	b.WriteString("Trend: Uptrend (Supertrend)\n")
	fmt.Fprintf(&b, "RSI: %.2f\n", sig.LastRSI)
	b.WriteString("Reason:\n")
	b.WriteString("- Supertrend is bullish\n")
	b.WriteString("- RSI rising from healthy zone (40-60)\n")
	b.WriteString("- Price shows bullish momentum\n\n")
	fmt.Fprintf(&b, "Confidence: %d%%\n", sig.Confidence)
	b.WriteString("(Supertrend + RSI + Momentum)\n")
	return b.String()
}
