package monitor

import (
	"context"
	"database/sql"

	poll "newswatch/internal/monitor"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Record inserts one row per delivery result. Rows from a single cycle share
// the same transaction so history never shows a partial cycle.
func (r *PostgresRepo) Record(ctx context.Context, results []poll.DeliveryResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO deliveries (title, source, published_at, url, status, summary) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, res := range results {
		if _, err := tx.ExecContext(ctx, query, res.Title, res.Source, res.PublishedAt, res.URL, string(res.Status), res.Summary); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]Delivery, error) {
	query := `SELECT id, title, source, published_at, url, status, summary, created_at FROM deliveries ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &d.PublishedAt, &d.URL, &d.Status, &d.Summary, &d.CreatedAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
