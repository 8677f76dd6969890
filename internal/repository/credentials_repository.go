package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postvault/postvault/internal/models"
)

type CredentialsRepository interface {
	Get(ctx context.Context) (*models.Credentials, error)
	Set(ctx context.Context, tx *sql.Tx, c *models.Credentials) error
}

type credentialsRepository struct {
	db *sql.DB
}

func NewCredentialsRepository(db *sql.DB) CredentialsRepository {
	return &credentialsRepository{db: db}
}

func (r *credentialsRepository) Get(ctx context.Context) (*models.Credentials, error) {
	query := `SELECT connected, account_id, access_token, token_expires_at, refreshed_at FROM credentials WHERE id = 1`
	row := r.db.QueryRowContext(ctx, query)

	var c models.Credentials
	err := row.Scan(&c.Connected, &c.AccountID, &c.AccessToken, &c.TokenExpiresAt, &c.RefreshedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}

func (r *credentialsRepository) Set(ctx context.Context, tx *sql.Tx, c *models.Credentials) error {
	query := `
		INSERT INTO credentials (id, connected, account_id, access_token, token_expires_at, refreshed_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET connected = EXCLUDED.connected,
			account_id = EXCLUDED.account_id,
			access_token = EXCLUDED.access_token,
			token_expires_at = EXCLUDED.token_expires_at,
			refreshed_at = EXCLUDED.refreshed_at
	`
	args := []interface{}{c.Connected, c.AccountID, c.AccessToken, c.TokenExpiresAt, c.RefreshedAt}

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
