// Package backfill loads daily price history for a newly added instrument.
package backfill

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

// DefaultDays is roughly eight years of daily samples.
const DefaultDays = 2920

type Backfiller struct {
	prices  repository.PriceStore
	gw      *marketdata.Gateway
	log     zerolog.Logger
	days    int
	timeout time.Duration

	wg sync.WaitGroup
}

func New(prices repository.PriceStore, gw *marketdata.Gateway, log zerolog.Logger, days int) *Backfiller {
	if days <= 0 {
		days = DefaultDays
	}
	return &Backfiller{prices: prices, gw: gw, log: log, days: days, timeout: 5 * time.Minute}
}

// Run loads history for a synchronously. Classes without daily history are a no-op.
func (b *Backfiller) Run(ctx context.Context, a models.Asset) (int64, error) {
	if !a.Class.SupportsBackfill() {
		return 0, nil
	}
	points := b.gw.DailyHistory(ctx, strings.ToLower(a.Symbol), b.days)
	if len(points) == 0 {
		return 0, nil
	}
	return b.prices.RecordMany(ctx, a.ID, points)
}

// Start runs the backfill in the background and returns immediately.
// Failures are only logged.
func (b *Backfiller) Start(a models.Asset) {
	if !a.Class.SupportsBackfill() {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		start := time.Now()
		n, err := b.Run(ctx, a)
		if err != nil {
			b.log.Error().Err(err).Str("symbol", a.Symbol).Int64("asset_id", a.ID).Msg("backfill failed")
			return
		}
		b.log.Info().Str("symbol", a.Symbol).Int64("inserted", n).Dur("took", time.Since(start)).Msg("backfill complete")
	}()
}

// Wait blocks until every started backfill has finished.
func (b *Backfiller) Wait() {
	b.wg.Wait()
}
