// Package marketdata exposes market-data capabilities behind one Gateway.
// Provider failures never escape it: every call resolves to a value or to
// an explicit absent/empty result.
package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/metrics"
	"github.com/kjannette/trahn-tracker/internal/models"
)

type Capability string

const (
	CapBatchSpotPrice    Capability = "batch_spot_price"
	CapTopByMarketCap    Capability = "top_by_market_cap"
	CapSingleSpotPrice   Capability = "single_spot_price"
	CapIndexConstituents Capability = "index_constituents"
	CapSymbolDetail      Capability = "symbol_detail"
	CapOHLC              Capability = "ohlc_series"
	CapDailyHistory      Capability = "daily_history"
)

var (
	ErrCapabilityUnavailable = errors.New("marketdata: capability unavailable")
	// ErrNoData means the provider answered but had nothing usable for the symbol.
	ErrNoData = errors.New("marketdata: no data")
)

// Mover is a symbol with its latest price and percent change over the provider's window.
type Mover struct {
	Symbol        string
	Name          string
	Price         float64
	PercentChange float64
}

type CryptoSource interface {
	BatchSpotPrice(ctx context.Context, ids []string) (map[string]float64, error)
	TopByMarketCap(ctx context.Context, n int, window string) ([]Mover, error)
	OHLCSeries(ctx context.Context, id string, days int) ([]models.Candle, error)
	DailyHistory(ctx context.Context, id string, days int) ([]models.PricePoint, error)
}

type EquityQuoteSource interface {
	SingleSpotPrice(ctx context.Context, symbol string) (float64, error)
}

type ExchangeSource interface {
	IndexConstituents(ctx context.Context, index string) ([]Mover, error)
	SymbolDetail(ctx context.Context, symbol string) (Mover, error)
}

// Providers wires concrete clients. A nil field makes its capabilities unavailable.
type Providers struct {
	Crypto       CryptoSource
	EquityQuotes EquityQuoteSource
	Exchange     ExchangeSource
}

type Gateway struct {
	p       Providers
	log     zerolog.Logger
	metrics *metrics.Recorder
}

func NewGateway(p Providers, log zerolog.Logger, rec *metrics.Recorder) *Gateway {
	return &Gateway{p: p, log: log, metrics: rec}
}

func (g *Gateway) Supports(c Capability) bool {
	switch c {
	case CapBatchSpotPrice, CapTopByMarketCap, CapOHLC, CapDailyHistory:
		return g.p.Crypto != nil
	case CapSingleSpotPrice:
		return g.p.EquityQuotes != nil
	case CapIndexConstituents, CapSymbolDetail:
		return g.p.Exchange != nil
	}
	return false
}

// Require returns ErrCapabilityUnavailable, wrapped with the capability name, when c is missing.
func (g *Gateway) Require(c Capability) error {
	if !g.Supports(c) {
		return fmt.Errorf("%w: %s", ErrCapabilityUnavailable, c)
	}
	return nil
}

func (g *Gateway) fail(c Capability, subject string, err error) {
	g.metrics.ProviderError(string(c))
	ev := g.log.Warn()
	if errors.Is(err, ErrNoData) {
		ev = g.log.Debug()
	}
	ev.Err(err).Str("capability", string(c)).Str("subject", subject).Msg("market data unavailable")
}

// BatchSpotPrice prices many crypto ids in one call. Missing ids are absent from the map.
func (g *Gateway) BatchSpotPrice(ctx context.Context, ids []string) map[string]float64 {
	if !g.Supports(CapBatchSpotPrice) || len(ids) == 0 {
		return map[string]float64{}
	}
	prices, err := g.p.Crypto.BatchSpotPrice(ctx, ids)
	if err != nil {
		g.fail(CapBatchSpotPrice, fmt.Sprintf("%d ids", len(ids)), err)
		return map[string]float64{}
	}
	return prices
}

func (g *Gateway) TopByMarketCap(ctx context.Context, n int, window string) []Mover {
	if !g.Supports(CapTopByMarketCap) {
		return nil
	}
	movers, err := g.p.Crypto.TopByMarketCap(ctx, n, window)
	if err != nil {
		g.fail(CapTopByMarketCap, window, err)
		return nil
	}
	return movers
}

func (g *Gateway) SingleSpotPrice(ctx context.Context, symbol string) (float64, bool) {
	if !g.Supports(CapSingleSpotPrice) {
		return 0, false
	}
	price, err := g.p.EquityQuotes.SingleSpotPrice(ctx, symbol)
	if err != nil {
		g.fail(CapSingleSpotPrice, symbol, err)
		return 0, false
	}
	return price, true
}

func (g *Gateway) IndexConstituents(ctx context.Context, index string) []Mover {
	if !g.Supports(CapIndexConstituents) {
		return nil
	}
	movers, err := g.p.Exchange.IndexConstituents(ctx, index)
	if err != nil {
		g.fail(CapIndexConstituents, index, err)
		return nil
	}
	return movers
}

// SymbolDetail looks up one exchange symbol; a country suffix is stripped first.
func (g *Gateway) SymbolDetail(ctx context.Context, symbol string) (Mover, bool) {
	if !g.Supports(CapSymbolDetail) {
		return Mover{}, false
	}
	m, err := g.p.Exchange.SymbolDetail(ctx, models.ExchangeSymbol(symbol))
	if err != nil {
		g.fail(CapSymbolDetail, symbol, err)
		return Mover{}, false
	}
	return m, true
}

func (g *Gateway) OHLCSeries(ctx context.Context, id string, days int) []models.Candle {
	if !g.Supports(CapOHLC) {
		return nil
	}
	candles, err := g.p.Crypto.OHLCSeries(ctx, id, days)
	if err != nil {
		g.fail(CapOHLC, id, err)
		return nil
	}
	return candles
}

func (g *Gateway) DailyHistory(ctx context.Context, id string, days int) []models.PricePoint {
	if !g.Supports(CapDailyHistory) {
		return nil
	}
	points, err := g.p.Crypto.DailyHistory(ctx, id, days)
	if err != nil {
		g.fail(CapDailyHistory, id, err)
		return nil
	}
	return points
}
