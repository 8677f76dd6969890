package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postvault/postvault/internal/models"
)

const (
	TombstoneKindDraft    = "draft"
	TombstoneKindSlot     = "schedule_slot"
	TombstoneKindTemplate = "template"
)

type TombstoneRepository interface {
	Record(ctx context.Context, tx *sql.Tx, kind, id string, deletedAt time.Time) error
	ListByKind(ctx context.Context, kind string) ([]models.Tombstone, error)
	ReplaceKind(ctx context.Context, tx *sql.Tx, kind string, tombstones []models.Tombstone) error
}

type tombstoneRepository struct {
	db *sql.DB
}

func NewTombstoneRepository(db *sql.DB) TombstoneRepository {
	return &tombstoneRepository{db: db}
}

func (r *tombstoneRepository) Record(ctx context.Context, tx *sql.Tx, kind, id string, deletedAt time.Time) error {
	// Duplicate records keep the earliest deletion time.
	query := `
		INSERT INTO tombstones (kind, entity_id, deleted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, entity_id) DO UPDATE
		SET deleted_at = LEAST(tombstones.deleted_at, EXCLUDED.deleted_at)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, kind, id, deletedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, kind, id, deletedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *tombstoneRepository) ListByKind(ctx context.Context, kind string) ([]models.Tombstone, error) {
	query := `SELECT entity_id, deleted_at FROM tombstones WHERE kind = $1 ORDER BY entity_id`
	rows, err := r.db.QueryContext(ctx, query, kind)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	tombstones := []models.Tombstone{}
	for rows.Next() {
		var t models.Tombstone
		if err := rows.Scan(&t.ID, &t.DeletedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		tombstones = append(tombstones, t)
	}
	return tombstones, rows.Err()
}

func (r *tombstoneRepository) ReplaceKind(ctx context.Context, tx *sql.Tx, kind string, tombstones []models.Tombstone) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tombstones WHERE kind = $1`, kind); err != nil {
		slog.Info(err.Error())
		return err
	}
	for _, t := range tombstones {
		if err := r.Record(ctx, tx, kind, t.ID, t.DeletedAt); err != nil {
			return err
		}
	}
	return nil
}
