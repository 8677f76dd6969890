package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/repository"
	"github.com/postvault/postvault/internal/transfer"
)

type ScheduleService interface {
	Schedule(ctx context.Context, req *transfer.ScheduleRequest) (*models.ScheduleSlot, error)
	Reschedule(ctx context.Context, id, date, timeOfDay string) (*models.ScheduleSlot, error)
	Unschedule(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) (*models.ScheduleSlot, error)
	Override(ctx context.Context, id, status string) (*models.ScheduleSlot, error)
	List(ctx context.Context) ([]models.ScheduleSlot, error)
}

type scheduleService struct {
	sr       repository.ScheduleSlotRepository
	dr       repository.DraftRepository
	tombr    repository.TombstoneRepository
	notifier ChangeNotifier
}

func NewScheduleService(
	sr repository.ScheduleSlotRepository,
	dr repository.DraftRepository,
	tombr repository.TombstoneRepository,
	notifier ChangeNotifier) ScheduleService {
	return &scheduleService{
		sr:       sr,
		dr:       dr,
		tombr:    tombr,
		notifier: notifier,
	}
}

func validateScheduleFields(date, timeOfDay string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid scheduled date %q: %w", date, err)
	}
	if _, err := time.Parse("15:04", timeOfDay); err != nil {
		return fmt.Errorf("invalid scheduled time %q: %w", timeOfDay, err)
	}
	return nil
}

func (s *scheduleService) Schedule(ctx context.Context, req *transfer.ScheduleRequest) (*models.ScheduleSlot, error) {
	if req == nil || req.DraftID == "" {
		err := errors.New("schedule request needs a draft id")
		slog.Info(err.Error())
		return nil, err
	}
	if err := validateScheduleFields(req.ScheduledDate, req.ScheduledTime); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	draft, err := s.dr.GetByID(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("draft %s not found", req.DraftID)
	}

	now := time.Now()
	slot := &models.ScheduleSlot{
		ID:            gonanoid.Must(),
		DraftID:       req.DraftID,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
		Status:        models.SlotStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.sr.Upsert(ctx, nil, slot); err != nil {
		return nil, fmt.Errorf("error creating schedule slot: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return slot, nil
}

func (s *scheduleService) Reschedule(ctx context.Context, id, date, timeOfDay string) (*models.ScheduleSlot, error) {
	if err := validateScheduleFields(date, timeOfDay); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	slot, err := s.sr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("schedule slot %s not found", id)
	}
	if slot.Status == models.SlotStatusPublished {
		return nil, fmt.Errorf("slot %s is already published", id)
	}

	slot.ScheduledDate = date
	slot.ScheduledTime = timeOfDay
	slot.UpdatedAt = time.Now()

	if err := s.sr.Upsert(ctx, nil, slot); err != nil {
		return nil, fmt.Errorf("error rescheduling slot: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return slot, nil
}

func (s *scheduleService) Unschedule(ctx context.Context, id string) error {
	slot, err := s.sr.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if slot == nil {
		return fmt.Errorf("schedule slot %s not found", id)
	}

	if err := s.tombr.Record(ctx, nil, repository.TombstoneKindSlot, id, time.Now()); err != nil {
		return fmt.Errorf("error recording slot tombstone: %w", err)
	}
	if err := s.sr.Remove(ctx, nil, id); err != nil {
		return fmt.Errorf("error removing slot: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return nil
}

// Retry moves a failed slot back to pending so the next run picks it up.
func (s *scheduleService) Retry(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	slot, err := s.sr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("schedule slot %s not found", id)
	}
	if slot.Status != models.SlotStatusFailed {
		return nil, fmt.Errorf("slot %s is %s, only failed slots can be retried", id, slot.Status)
	}

	slot.Status = models.SlotStatusPending
	slot.ErrorMessage = ""
	slot.UpdatedAt = time.Now()

	if err := s.sr.Upsert(ctx, nil, slot); err != nil {
		return nil, fmt.Errorf("error retrying slot: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return slot, nil
}

// Override is the explicit manual escape hatch; it is the only path that
// may move a published slot back to pending.
func (s *scheduleService) Override(ctx context.Context, id, status string) (*models.ScheduleSlot, error) {
	switch status {
	case models.SlotStatusPending, models.SlotStatusPublished, models.SlotStatusFailed:
	default:
		return nil, fmt.Errorf("invalid status %q", status)
	}

	slot, err := s.sr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("schedule slot %s not found", id)
	}

	slot.Status = status
	if status != models.SlotStatusFailed {
		slot.ErrorMessage = ""
	}
	slot.UpdatedAt = time.Now()

	if err := s.sr.Upsert(ctx, nil, slot); err != nil {
		return nil, fmt.Errorf("error overriding slot status: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return slot, nil
}

func (s *scheduleService) List(ctx context.Context) ([]models.ScheduleSlot, error) {
	return s.sr.List(ctx)
}
