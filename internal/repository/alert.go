package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-tracker/internal/models"
)

const alertColumns = `id, user_id, message, is_read, created_at`

type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func (r *AlertRepo) Record(ctx context.Context, a *models.Alert) (*models.Alert, error) {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO alerts (user_id, message, is_read, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING `+alertColumns,
		a.UserID, a.Message, a.IsRead, createdAt,
	)
	return scanAlert(row)
}

// FindRecent matches substr literally (strpos, not LIKE).
func (r *AlertRepo) FindRecent(ctx context.Context, userID int64, substr string, since time.Time) (*models.Alert, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1 AND created_at > $2
		   AND strpos(message, $3) > 0
		 ORDER BY created_at DESC LIMIT 1`,
		userID, since, substr,
	)
	a, err := scanAlert(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *AlertRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Alert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAlert(row scannable) (*models.Alert, error) {
	var a models.Alert
	if err := row.Scan(&a.ID, &a.UserID, &a.Message, &a.IsRead, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
