package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/postvault/postvault/internal/models"
)

type DraftRepository interface {
	GetByID(ctx context.Context, id string) (*models.Draft, error)
	List(ctx context.Context) ([]models.Draft, error)
	Upsert(ctx context.Context, tx *sql.Tx, d *models.Draft) error
	Remove(ctx context.Context, tx *sql.Tx, id string) error
	ReplaceAll(ctx context.Context, tx *sql.Tx, drafts []models.Draft) error
}

type draftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) DraftRepository {
	return &draftRepository{db: db}
}

const draftColumns = `id, content_id, caption, image_urls, display_mode, created_at, updated_at`

func scanDraft(row interface{ Scan(...interface{}) error }) (*models.Draft, error) {
	var d models.Draft
	var urls pq.StringArray
	err := row.Scan(&d.ID, &d.ContentID, &d.Caption, &urls, &d.DisplayMode, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ImageURLs = urls
	return &d, nil
}

func (r *draftRepository) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return d, nil
}

func (r *draftRepository) List(ctx context.Context) ([]models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	drafts := []models.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

const upsertDraftQuery = `
	INSERT INTO drafts (id, content_id, caption, image_urls, display_mode, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE
	SET content_id = EXCLUDED.content_id,
		caption = EXCLUDED.caption,
		image_urls = EXCLUDED.image_urls,
		display_mode = EXCLUDED.display_mode,
		updated_at = EXCLUDED.updated_at
`

func (r *draftRepository) Upsert(ctx context.Context, tx *sql.Tx, d *models.Draft) error {
	args := []interface{}{d.ID, d.ContentID, d.Caption, pq.StringArray(d.ImageURLs), d.DisplayMode, d.CreatedAt, d.UpdatedAt}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, upsertDraftQuery, args...)
	} else {
		_, err = r.db.ExecContext(ctx, upsertDraftQuery, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *draftRepository) Remove(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM drafts WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *draftRepository) ReplaceAll(ctx context.Context, tx *sql.Tx, drafts []models.Draft) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts`); err != nil {
		slog.Info(err.Error())
		return err
	}
	for i := range drafts {
		if err := r.Upsert(ctx, tx, &drafts[i]); err != nil {
			return err
		}
	}
	return nil
}
