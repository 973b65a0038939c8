package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
	"github.com/kjannette/trahn-tracker/internal/testutil"
)

// ---------- AssetRepo + PriceRepo ----------

func TestAssetAndPriceRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	store := repository.NewPostgresStore(pool)
	ctx := context.Background()
	userID := testutil.CreateUser(t, pool, true)

	a, err := store.Assets.Create(ctx, &models.Asset{
		Symbol: "bitcoin", Class: models.ClassCrypto, Name: "Bitcoin", UserID: userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	t.Logf("Created asset: id=%d symbol=%s type=%s", a.ID, a.Symbol, a.Class)

	base := time.Now().UTC().Truncate(time.Second)
	var last *models.PriceObservation
	for i := 0; i < 3; i++ {
		last, err = store.Prices.Record(ctx, a.ID, 100+float64(i), base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	window, err := store.Prices.Window(ctx, a.ID, last.ID, 30)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if len(window) != 2 || window[0].Price != 101 {
		t.Fatalf("window mismatch: %+v", window)
	}

	history, err := store.Prices.History(ctx, a.ID, 100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 || history[0].Price != 100 {
		t.Fatalf("history mismatch: %+v", history)
	}

	n, err := store.Prices.RecordMany(ctx, a.ID, []models.PricePoint{
		{Timestamp: base, Price: 1},
		{Timestamp: base.Add(-24 * time.Hour), Price: 2},
	})
	if err != nil {
		t.Fatalf("RecordMany: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted row, got %d", n)
	}
	t.Logf("Backfill inserted %d rows", n)

	tracked, err := store.Assets.ListTracked(ctx)
	if err != nil {
		t.Fatalf("ListTracked: %v", err)
	}
	found := false
	for _, ta := range tracked {
		if ta.ID == a.ID {
			found = ta.Owner.IsVerified
		}
	}
	if !found {
		t.Fatal("expected tracked asset with verified owner")
	}

	if _, err := store.Anomalies.Record(ctx, &models.Anomaly{
		AssetID: a.ID, Severity: models.SeverityHigh, Message: "m", Price: 130, Timestamp: time.Now(),
	}); err != nil {
		t.Fatalf("Anomalies.Record: %v", err)
	}

	if err := store.Assets.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Prices.Latest(ctx, a.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Assets.Delete(ctx, a.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ---------- MarketAnomalyRepo ----------

func TestMarketAnomalyRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewMarketAnomalyRepo(pool)
	ctx := context.Background()

	symbol := "IT" + time.Now().Format("150405.000000")
	m, err := repo.Record(ctx, &models.MarketAnomaly{
		Symbol: symbol, Class: models.ClassCrypto, Price: 1,
		Message: symbol + " moved 6.00% in 24h.", Severity: models.SeverityMedium, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM market_anomalies WHERE id = $1`, m.ID) })

	if _, err := repo.FindSince(ctx, symbol, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("FindSince: %v", err)
	}
	if _, err := repo.FindSince(ctx, symbol, time.Now().Add(time.Minute)); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	recent, err := repo.ListRecent(ctx, 20)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	t.Logf("ListRecent: %d rows", len(recent))
}

// ---------- AlertRepo ----------

func TestAlertRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewAlertRepo(pool)
	ctx := context.Background()
	userID := testutil.CreateUser(t, pool, false)

	if _, err := repo.Record(ctx, &models.Alert{
		UserID: userID, Message: "BUY SIGNAL: 100%_coin - Supertrend UP, RSI 55.0 (Bullish)",
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	since := time.Now().Add(-24 * time.Hour)
	if _, err := repo.FindRecent(ctx, userID, "BUY SIGNAL: 100%_coin", since); err != nil {
		t.Fatalf("FindRecent: %v", err)
	}
	if _, err := repo.FindRecent(ctx, userID, "BUY SIGNAL: 100%", since); err != nil {
		t.Fatalf("FindRecent prefix: %v", err)
	}
	if _, err := repo.FindRecent(ctx, userID, "BUY SIGNAL: 1000", since); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	alerts, err := repo.ListByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
}
