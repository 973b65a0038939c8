package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-tracker/internal/models"
)

const assetColumns = `id, symbol, type, name, user_id, created_at`

type AssetRepo struct {
	pool *pgxpool.Pool
}

func NewAssetRepo(pool *pgxpool.Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

func (r *AssetRepo) Create(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO assets (symbol, type, name, user_id)
		 VALUES ($1, $2, $3, $4) RETURNING `+assetColumns,
		a.Symbol, string(a.Class), a.Name, a.UserID,
	)
	return scanAsset(row)
}

func (r *AssetRepo) Get(ctx context.Context, id int64) (*models.Asset, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`, id,
	)
	a, err := scanAsset(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *AssetRepo) ListByUser(ctx context.Context, userID int64) ([]models.Asset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE user_id = $1 ORDER BY id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AssetRepo) ListTracked(ctx context.Context) ([]models.TrackedAsset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.symbol, a.type, a.name, a.user_id, a.created_at,
		        u.id, u.email, u.is_verified
		 FROM assets a JOIN users u ON u.id = a.user_id
		 ORDER BY a.id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTracked(rows)
}

// Delete runs in one transaction: observations and anomalies die with the asset.
func (r *AssetRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM price_history WHERE asset_id = $1`, id); err != nil {
		return fmt.Errorf("delete prices: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM anomalies WHERE asset_id = $1`, id); err != nil {
		return fmt.Errorf("delete anomalies: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func scanAsset(row scannable) (*models.Asset, error) {
	var a models.Asset
	var class string
	if err := row.Scan(&a.ID, &a.Symbol, &class, &a.Name, &a.UserID, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Class = models.AssetClass(class)
	return &a, nil
}

func collectTracked(rows rowsIter) ([]models.TrackedAsset, error) {
	var out []models.TrackedAsset
	for rows.Next() {
		var t models.TrackedAsset
		var class string
		if err := rows.Scan(
			&t.ID, &t.Symbol, &class, &t.Name, &t.UserID, &t.CreatedAt,
			&t.Owner.ID, &t.Owner.Email, &t.Owner.IsVerified,
		); err != nil {
			return nil, err
		}
		t.Class = models.AssetClass(class)
		out = append(out, t)
	}
	return out, rows.Err()
}
