package backfill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
	"github.com/kjannette/trahn-tracker/internal/repository/memory"
	"github.com/kjannette/trahn-tracker/internal/testutil"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func daily(n int) []models.PricePoint {
	out := make([]models.PricePoint, n)
	for i := range out {
		out[i] = models.PricePoint{Timestamp: day0.AddDate(0, 0, i), Price: 100 + float64(i)}
	}
	return out
}

func setup(t *testing.T, market *testutil.FakeMarket) (*Backfiller, *repository.Store, *models.Asset) {
	t.Helper()
	db := memory.New()
	db.PutUser(models.User{ID: 1, Email: "a@example.com", IsVerified: true})
	store := db.Store()
	a, err := store.Assets.Create(context.Background(), &models.Asset{Symbol: "Bitcoin", Class: models.ClassCrypto, Name: "Bitcoin", UserID: 1})
	require.NoError(t, err)
	gw := marketdata.NewGateway(marketdata.Providers{Crypto: market}, zerolog.Nop(), nil)
	return New(store.Prices, gw, zerolog.Nop(), 0), store, a
}

func TestRunInsertsHistoryOnce(t *testing.T) {
	market := &testutil.FakeMarket{History: map[string][]models.PricePoint{"bitcoin": daily(5)}}
	b, store, a := setup(t, market)
	ctx := context.Background()

	n, err := b.Run(ctx, *a)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, []string{"history:bitcoin:2920"}, market.Calls())

	n, err = b.Run(ctx, *a)
	require.NoError(t, err)
	assert.Zero(t, n, "duplicate timestamps are skipped")

	hist, err := store.Prices.History(ctx, a.ID, 100)
	require.NoError(t, err)
	require.Len(t, hist, 5)
	assert.Equal(t, day0, hist[0].Timestamp)
}

func TestRunSkipsClassesWithoutHistory(t *testing.T) {
	market := &testutil.FakeMarket{}
	b, _, _ := setup(t, market)

	for _, class := range []models.AssetClass{models.ClassEquityUS, models.ClassEquityIN, models.ClassCommodityProxy} {
		n, err := b.Run(context.Background(), models.Asset{ID: 9, Symbol: "X", Class: class})
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Empty(t, market.Calls())
}

func TestRunProviderOutageIsEmpty(t *testing.T) {
	market := &testutil.FakeMarket{Err: errors.New("rate limited")}
	b, _, a := setup(t, market)

	n, err := b.Run(context.Background(), *a)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartIsAsync(t *testing.T) {
	market := &testutil.FakeMarket{History: map[string][]models.PricePoint{"bitcoin": daily(3)}}
	b, store, a := setup(t, market)

	b.Start(*a)
	b.Wait()

	hist, err := store.Prices.History(context.Background(), a.ID, 100)
	require.NoError(t, err)
	assert.Len(t, hist, 3)
}
