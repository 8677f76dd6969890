package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postvault/postvault/internal/models"
)

type SettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, bool, error)
	Set(ctx context.Context, tx *sql.Tx, s *models.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.Settings, bool, error) {
	query := `SELECT timezone, default_post_time, auto_sync FROM settings WHERE id = 1`
	row := r.db.QueryRowContext(ctx, query)

	var s models.Settings
	err := row.Scan(&s.Timezone, &s.DefaultPostTime, &s.AutoSync)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &s, true, nil
}

func (r *settingsRepository) Set(ctx context.Context, tx *sql.Tx, s *models.Settings) error {
	query := `
		INSERT INTO settings (id, timezone, default_post_time, auto_sync)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
			default_post_time = EXCLUDED.default_post_time,
			auto_sync = EXCLUDED.auto_sync
	`
	args := []interface{}{s.Timezone, s.DefaultPostTime, s.AutoSync}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
