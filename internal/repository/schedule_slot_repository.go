package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postvault/postvault/internal/models"
)

type ScheduleSlotRepository interface {
	GetByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	List(ctx context.Context) ([]models.ScheduleSlot, error)
	Upsert(ctx context.Context, tx *sql.Tx, s *models.ScheduleSlot) error
	Remove(ctx context.Context, tx *sql.Tx, id string) error
	ReplaceAll(ctx context.Context, tx *sql.Tx, slots []models.ScheduleSlot) error
}

type scheduleSlotRepository struct {
	db *sql.DB
}

func NewScheduleSlotRepository(db *sql.DB) ScheduleSlotRepository {
	return &scheduleSlotRepository{db: db}
}

const slotColumns = `id, draft_id, scheduled_date, scheduled_time, status, error_message, external_post_id, permalink, published_at, created_at, updated_at`

func scanSlot(row interface{ Scan(...interface{}) error }) (*models.ScheduleSlot, error) {
	var s models.ScheduleSlot
	var externalPostID, permalink sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(&s.ID, &s.DraftID, &s.ScheduledDate, &s.ScheduledTime, &s.Status,
		&s.ErrorMessage, &externalPostID, &permalink, &publishedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if externalPostID.Valid && publishedAt.Valid {
		s.PublishResult = &models.PublishResult{
			ExternalPostID: externalPostID.String,
			Permalink:      permalink.String,
			PublishedAt:    publishedAt.Time,
		}
	}
	return &s, nil
}

func (r *scheduleSlotRepository) GetByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM schedule_slots WHERE id = $1`
	s, err := scanSlot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *scheduleSlotRepository) List(ctx context.Context) ([]models.ScheduleSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM schedule_slots ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	slots := []models.ScheduleSlot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

const upsertSlotQuery = `
	INSERT INTO schedule_slots (id, draft_id, scheduled_date, scheduled_time, status, error_message, external_post_id, permalink, published_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE
	SET draft_id = EXCLUDED.draft_id,
		scheduled_date = EXCLUDED.scheduled_date,
		scheduled_time = EXCLUDED.scheduled_time,
		status = EXCLUDED.status,
		error_message = EXCLUDED.error_message,
		external_post_id = EXCLUDED.external_post_id,
		permalink = EXCLUDED.permalink,
		published_at = EXCLUDED.published_at,
		updated_at = EXCLUDED.updated_at
`

func (r *scheduleSlotRepository) Upsert(ctx context.Context, tx *sql.Tx, s *models.ScheduleSlot) error {
	var externalPostID, permalink sql.NullString
	var publishedAt sql.NullTime
	if s.PublishResult != nil {
		externalPostID = sql.NullString{String: s.PublishResult.ExternalPostID, Valid: true}
		permalink = sql.NullString{String: s.PublishResult.Permalink, Valid: true}
		publishedAt = sql.NullTime{Time: s.PublishResult.PublishedAt, Valid: true}
	}
	args := []interface{}{s.ID, s.DraftID, s.ScheduledDate, s.ScheduledTime, s.Status,
		s.ErrorMessage, externalPostID, permalink, publishedAt, s.CreatedAt, s.UpdatedAt}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, upsertSlotQuery, args...)
	} else {
		_, err = r.db.ExecContext(ctx, upsertSlotQuery, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleSlotRepository) Remove(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM schedule_slots WHERE id = $1`

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

func (r *scheduleSlotRepository) ReplaceAll(ctx context.Context, tx *sql.Tx, slots []models.ScheduleSlot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots`); err != nil {
		slog.Info(err.Error())
		return err
	}
	for i := range slots {
		if err := r.Upsert(ctx, tx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}
