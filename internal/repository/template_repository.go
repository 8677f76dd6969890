package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postvault/postvault/internal/models"
)

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.Template, error)
	List(ctx context.Context) ([]models.Template, error)
	GetDefault(ctx context.Context) (*models.Template, error)
	Upsert(ctx context.Context, tx *sql.Tx, t *models.Template, isDefault bool) error
	Remove(ctx context.Context, tx *sql.Tx, id string) error
	ReplaceAll(ctx context.Context, tx *sql.Tx, templates []models.Template, defaultTemplate *models.Template) error
}

type templateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

const templateColumns = `id, name, rules, active, created_at, updated_at`

func scanTemplate(row interface{ Scan(...interface{}) error }) (*models.Template, error) {
	var t models.Template
	if err := row.Scan(&t.ID, &t.Name, &t.Rules, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE is_default = false ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (r *templateRepository) GetDefault(ctx context.Context) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE is_default = true LIMIT 1`
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return t, nil
}

const upsertTemplateQuery = `
	INSERT INTO templates (id, name, rules, active, is_default, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		rules = EXCLUDED.rules,
		active = EXCLUDED.active,
		is_default = EXCLUDED.is_default,
		updated_at = EXCLUDED.updated_at
`

func (r *templateRepository) Upsert(ctx context.Context, tx *sql.Tx, t *models.Template, isDefault bool) error {
	args := []interface{}{t.ID, t.Name, t.Rules, t.Active, isDefault, t.CreatedAt, t.UpdatedAt}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, upsertTemplateQuery, args...)
	} else {
		_, err = r.db.ExecContext(ctx, upsertTemplateQuery, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *templateRepository) Remove(ctx context.Context, tx *sql.Tx, id string) error {
	// The default template is never removed.
	query := `DELETE FROM templates WHERE id = $1 AND is_default = false`

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

func (r *templateRepository) ReplaceAll(ctx context.Context, tx *sql.Tx, templates []models.Template, defaultTemplate *models.Template) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM templates`); err != nil {
		slog.Info(err.Error())
		return err
	}
	for i := range templates {
		if err := r.Upsert(ctx, tx, &templates[i], false); err != nil {
			return err
		}
	}
	if defaultTemplate != nil {
		if err := r.Upsert(ctx, tx, defaultTemplate, true); err != nil {
			return err
		}
	}
	return nil
}
