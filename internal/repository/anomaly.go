package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-tracker/internal/models"
)

// ---------- per-asset anomalies ----------

const anomalyColumns = `id, asset_id, severity, message, price, timestamp`

type AnomalyRepo struct {
	pool *pgxpool.Pool
}

func NewAnomalyRepo(pool *pgxpool.Pool) *AnomalyRepo {
	return &AnomalyRepo{pool: pool}
}

func (r *AnomalyRepo) Record(ctx context.Context, a *models.Anomaly) (*models.Anomaly, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO anomalies (asset_id, severity, message, price, timestamp)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+anomalyColumns,
		a.AssetID, string(a.Severity), a.Message, a.Price, a.Timestamp,
	)
	return scanAnomaly(row)
}

func (r *AnomalyRepo) ListByAsset(ctx context.Context, assetID int64, limit int) ([]models.Anomaly, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+anomalyColumns+` FROM anomalies
		 WHERE asset_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		assetID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAnomaly(row scannable) (*models.Anomaly, error) {
	var a models.Anomaly
	var sev string
	if err := row.Scan(&a.ID, &a.AssetID, &sev, &a.Message, &a.Price, &a.Timestamp); err != nil {
		return nil, err
	}
	a.Severity = models.Severity(sev)
	return &a, nil
}

// ---------- market anomalies ----------

const marketAnomalyColumns = `id, symbol, type, price, message, severity, timestamp`

type MarketAnomalyRepo struct {
	pool *pgxpool.Pool
}

func NewMarketAnomalyRepo(pool *pgxpool.Pool) *MarketAnomalyRepo {
	return &MarketAnomalyRepo{pool: pool}
}

func (r *MarketAnomalyRepo) FindSince(ctx context.Context, symbol string, since time.Time) (*models.MarketAnomaly, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+marketAnomalyColumns+` FROM market_anomalies
		 WHERE symbol = $1 AND timestamp > $2
		 ORDER BY timestamp DESC LIMIT 1`,
		symbol, since,
	)
	m, err := scanMarketAnomaly(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *MarketAnomalyRepo) Record(ctx context.Context, m *models.MarketAnomaly) (*models.MarketAnomaly, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO market_anomalies (symbol, type, price, message, severity, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+marketAnomalyColumns,
		m.Symbol, string(m.Class), m.Price, m.Message, string(m.Severity), m.Timestamp,
	)
	return scanMarketAnomaly(row)
}

func (r *MarketAnomalyRepo) ListRecent(ctx context.Context, limit int) ([]models.MarketAnomaly, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+marketAnomalyColumns+` FROM market_anomalies
		 ORDER BY timestamp DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MarketAnomaly
	for rows.Next() {
		m, err := scanMarketAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMarketAnomaly(row scannable) (*models.MarketAnomaly, error) {
	var m models.MarketAnomaly
	var class, sev string
	if err := row.Scan(&m.ID, &m.Symbol, &class, &m.Price, &m.Message, &sev, &m.Timestamp); err != nil {
		return nil, err
	}
	m.Class = models.AssetClass(class)
	m.Severity = models.Severity(sev)
	return &m, nil
}
