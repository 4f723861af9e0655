package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, monitor_query, language, max_items_per_run, interval_secs, preview_only, newsapi_key, pushover_token, pushover_user FROM settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.MonitorQuery, &s.Language, &s.MaxItemsPerRun, &s.IntervalSecs, &s.PreviewOnly, &s.NewsAPIKey, &s.PushoverToken, &s.PushoverUser)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `
		UPDATE settings
		SET monitor_query = $1, language = $2, max_items_per_run = $3, interval_secs = $4, preview_only = $5, newsapi_key = $6, pushover_token = $7, pushover_user = $8, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query, s.MonitorQuery, s.Language, s.MaxItemsPerRun, s.IntervalSecs, s.PreviewOnly, s.NewsAPIKey, s.PushoverToken, s.PushoverUser)
	return err
}
