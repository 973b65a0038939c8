package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-tracker/internal/models"
)

const priceColumns = `id, asset_id, price, timestamp`

type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

func (r *PriceRepo) Record(ctx context.Context, assetID int64, price float64, ts time.Time) (*models.PriceObservation, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO price_history (asset_id, price, timestamp)
		 VALUES ($1, $2, $3) RETURNING `+priceColumns,
		assetID, price, ts,
	)
	return scanPrice(row)
}

func (r *PriceRepo) RecordMany(ctx context.Context, assetID int64, points []models.PricePoint) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_history (asset_id, price, timestamp)
			 VALUES ($1, $2, $3) ON CONFLICT (asset_id, timestamp) DO NOTHING`,
			assetID, p.Price, p.Timestamp,
		)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range points {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (r *PriceRepo) Window(ctx context.Context, assetID, excludeID int64, limit int) ([]models.PriceObservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM price_history
		 WHERE asset_id = $1 AND id <> $2
		 ORDER BY timestamp DESC, id DESC LIMIT $3`,
		assetID, excludeID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

func (r *PriceRepo) History(ctx context.Context, assetID int64, limit int) ([]models.PriceObservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM price_history
		 WHERE asset_id = $1 ORDER BY timestamp ASC, id ASC LIMIT $2`,
		assetID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

func (r *PriceRepo) Latest(ctx context.Context, assetID int64) (*models.PriceObservation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+priceColumns+` FROM price_history
		 WHERE asset_id = $1 ORDER BY timestamp DESC, id DESC LIMIT 1`,
		assetID,
	)
	p, err := scanPrice(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func scanPrice(row scannable) (*models.PriceObservation, error) {
	var p models.PriceObservation
	if err := row.Scan(&p.ID, &p.AssetID, &p.Price, &p.Timestamp); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPrices(rows rowsIter) ([]models.PriceObservation, error) {
	var out []models.PriceObservation
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
