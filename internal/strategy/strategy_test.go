package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-tracker/internal/indicator"
	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
	"github.com/kjannette/trahn-tracker/internal/repository/memory"
	"github.com/kjannette/trahn-tracker/internal/testutil"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func candles(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Timestamp: t0.Add(time.Duration(i) * 30 * time.Minute),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
		}
	}
	return out
}

// zigzag alternates 100/101, ending on 101: RSI crosses above 50 on the last candle.
func zigzag(n int) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 101
		}
	}
	return candles(closes)
}

func TestEvaluateMidlineCross(t *testing.T) {
	sig, ok := Evaluate(zigzag(60))
	require.True(t, ok)
	assert.True(t, sig.Buy)
	assert.Equal(t, indicator.TrendUp, sig.Trend)
	assert.LessOrEqual(t, sig.PrevRSI, 50.0)
	assert.Greater(t, sig.LastRSI, 50.0)
	assert.Equal(t, 100, sig.Confidence, "last close is above the prior close")
	t.Logf("prev RSI %.2f, last RSI %.2f", sig.PrevRSI, sig.LastRSI)
}

func TestEvaluateNoCrossOnDownTick(t *testing.T) {
	// Ending on 100 puts RSI back under 50.
	sig, ok := Evaluate(zigzag(59))
	require.True(t, ok)
	assert.False(t, sig.Buy)
	assert.Zero(t, sig.Confidence)
}

func TestEvaluateTooFewCandles(t *testing.T) {
	_, ok := Evaluate(zigzag(MinCandles - 1))
	assert.False(t, ok)
	_, ok = Evaluate(nil)
	assert.False(t, ok)
}

func TestEvaluateDowntrendNeverBuys(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	sig, ok := Evaluate(candles(closes))
	require.True(t, ok)
	assert.Equal(t, indicator.TrendDown, sig.Trend)
	assert.False(t, sig.Buy)
}

func TestEvaluateSteadyRiseHasNoFreshCross(t *testing.T) {
	// Pinned at RSI 100: no crossing on the last step.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	sig, ok := Evaluate(candles(closes))
	require.True(t, ok)
	assert.Equal(t, indicator.TrendUp, sig.Trend)
	assert.False(t, sig.Buy)
}

type fixture struct {
	store    *repository.Store
	market   *testutil.FakeMarket
	notifier *testutil.RecordingNotifier
	clock    *testutil.Clock
	job      *Job
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	db.PutUser(models.User{ID: 1, Email: "verified@example.com", IsVerified: true})
	db.PutUser(models.User{ID: 2, Email: "pending@example.com", IsVerified: false})
	f := &fixture{
		store:    db.Store(),
		market:   &testutil.FakeMarket{Candles: map[string][]models.Candle{"bitcoin": zigzag(60)}},
		notifier: &testutil.RecordingNotifier{},
		clock:    testutil.NewClock(t0),
	}
	gw := marketdata.NewGateway(f.market.AllProviders(), zerolog.Nop(), nil)
	f.job = New(f.store, gw, f.notifier, zerolog.Nop(), nil, Options{OHLCDays: 2, Now: f.clock.Now})
	return f
}

func (f *fixture) asset(t *testing.T, symbol string, class models.AssetClass, userID int64) {
	t.Helper()
	_, err := f.store.Assets.Create(context.Background(), &models.Asset{Symbol: symbol, Class: class, Name: "Bitcoin", UserID: userID})
	require.NoError(t, err)
}

func (f *fixture) alerts(t *testing.T, userID int64) []models.Alert {
	t.Helper()
	out, err := f.store.Alerts.ListByUser(context.Background(), userID, 100)
	require.NoError(t, err)
	return out
}

func TestRunAlertsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.asset(t, "bitcoin", models.ClassCrypto, 1)

	require.NoError(t, f.job.Run(context.Background()))

	alerts := f.alerts(t, 1)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "BUY SIGNAL: bitcoin - Supertrend UP, RSI ")
	assert.Contains(t, alerts[0].Message, "(Bullish)")

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "verified@example.com", msgs[0].To)
	assert.Equal(t, "BUY ALERT: bitcoin (Confidence: 100%)", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "Asset: Bitcoin (bitcoin)")
	assert.Contains(t, msgs[0].Body, "Asset Class: CRYPTO")

	assert.Equal(t, []string{"ohlc:bitcoin:2"}, f.market.CallsWithPrefix("ohlc:"))
}

func TestRunCooldown(t *testing.T) {
	f := newFixture(t)
	f.asset(t, "bitcoin", models.ClassCrypto, 1)
	ctx := context.Background()

	require.NoError(t, f.job.Run(ctx))
	f.clock.Advance(30 * time.Minute)
	require.NoError(t, f.job.Run(ctx))
	assert.Len(t, f.alerts(t, 1), 1, "second signal inside 24h is suppressed")
	assert.Len(t, f.notifier.Messages(), 1)

	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.job.Run(ctx))
	assert.Len(t, f.alerts(t, 1), 2)
}

func TestRunUnverifiedOwnerGetsAlertOnly(t *testing.T) {
	f := newFixture(t)
	f.asset(t, "bitcoin", models.ClassCrypto, 2)

	require.NoError(t, f.job.Run(context.Background()))
	assert.Len(t, f.alerts(t, 2), 1)
	assert.Empty(t, f.notifier.Messages())
}

func TestRunSkipsClassesWithoutCandles(t *testing.T) {
	f := newFixture(t)
	f.asset(t, "AAPL", models.ClassEquityUS, 1)
	f.asset(t, "RELIANCE.NS", models.ClassEquityIN, 1)
	f.asset(t, "GOLDBEES.NS", models.ClassCommodityProxy, 1)

	require.NoError(t, f.job.Run(context.Background()))
	assert.Empty(t, f.market.Calls())
	assert.Empty(t, f.alerts(t, 1))
}

func TestRunShortSeriesSkipped(t *testing.T) {
	f := newFixture(t)
	f.market.Candles["solana"] = zigzag(20)
	f.asset(t, "solana", models.ClassCrypto, 1)

	require.NoError(t, f.job.Run(context.Background()))
	assert.Empty(t, f.alerts(t, 1))
}
