package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-tracker/internal/models"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("repository: not found")

type AssetStore interface {
	Create(ctx context.Context, a *models.Asset) (*models.Asset, error)
	Get(ctx context.Context, id int64) (*models.Asset, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Asset, error)
	// ListTracked returns every asset of every user together with its owner.
	ListTracked(ctx context.Context) ([]models.TrackedAsset, error)
	// Delete removes the asset with its price history and anomalies. Alerts survive.
	Delete(ctx context.Context, id int64) error
}

type PriceStore interface {
	Record(ctx context.Context, assetID int64, price float64, ts time.Time) (*models.PriceObservation, error)
	// RecordMany bulk inserts, skipping samples whose (asset, timestamp) already exists.
	RecordMany(ctx context.Context, assetID int64, points []models.PricePoint) (int64, error)
	// Window returns up to limit observations newest first, leaving out excludeID.
	Window(ctx context.Context, assetID, excludeID int64, limit int) ([]models.PriceObservation, error)
	// History returns up to limit observations oldest first.
	History(ctx context.Context, assetID int64, limit int) ([]models.PriceObservation, error)
	Latest(ctx context.Context, assetID int64) (*models.PriceObservation, error)
}

type AnomalyStore interface {
	Record(ctx context.Context, a *models.Anomaly) (*models.Anomaly, error)
	ListByAsset(ctx context.Context, assetID int64, limit int) ([]models.Anomaly, error)
}

type MarketAnomalyStore interface {
	// FindSince returns the newest row for symbol strictly after since, or ErrNotFound.
	FindSince(ctx context.Context, symbol string, since time.Time) (*models.MarketAnomaly, error)
	Record(ctx context.Context, a *models.MarketAnomaly) (*models.MarketAnomaly, error)
	ListRecent(ctx context.Context, limit int) ([]models.MarketAnomaly, error)
}

type AlertStore interface {
	Record(ctx context.Context, a *models.Alert) (*models.Alert, error)
	// FindRecent returns the newest alert of userID whose message contains substr
	// and that was created strictly after since, or ErrNotFound.
	FindRecent(ctx context.Context, userID int64, substr string, since time.Time) (*models.Alert, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Alert, error)
}

// Store bundles every persistence contract the jobs and the API consume.
type Store struct {
	Assets          AssetStore
	Prices          PriceStore
	Anomalies       AnomalyStore
	MarketAnomalies MarketAnomalyStore
	Alerts          AlertStore
}

func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Assets:          NewAssetRepo(pool),
		Prices:          NewPriceRepo(pool),
		Anomalies:       NewAnomalyRepo(pool),
		MarketAnomalies: NewMarketAnomalyRepo(pool),
		Alerts:          NewAlertRepo(pool),
	}
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
