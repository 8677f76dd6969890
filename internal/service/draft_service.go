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

// ChangeNotifier is the hook every authoring mutation fires so the sync
// orchestrator can schedule a debounced auto-sync.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context)
}

type DraftService interface {
	Create(ctx context.Context, dc *transfer.DraftCreation) (*models.Draft, error)
	Update(ctx context.Context, id string, dc *transfer.DraftCreation) (*models.Draft, error)
	Get(ctx context.Context, id string) (*models.Draft, error)
	List(ctx context.Context) ([]models.Draft, error)
	Remove(ctx context.Context, id string) error
}

type draftService struct {
	dr       repository.DraftRepository
	sr       repository.ScheduleSlotRepository
	tombr    repository.TombstoneRepository
	notifier ChangeNotifier
}

func NewDraftService(
	dr repository.DraftRepository,
	sr repository.ScheduleSlotRepository,
	tombr repository.TombstoneRepository,
	notifier ChangeNotifier) DraftService {
	return &draftService{
		dr:       dr,
		sr:       sr,
		tombr:    tombr,
		notifier: notifier,
	}
}

func (s *draftService) Create(ctx context.Context, dc *transfer.DraftCreation) (*models.Draft, error) {
	if dc == nil || dc.Caption == "" && len(dc.ImageURLs) == 0 {
		err := errors.New("draft needs a caption or at least one image")
		slog.Info(err.Error())
		return nil, err
	}

	now := time.Now()
	draft := &models.Draft{
		ID:          gonanoid.Must(),
		ContentID:   dc.ContentID,
		Caption:     dc.Caption,
		ImageURLs:   dc.ImageURLs,
		DisplayMode: dc.DisplayMode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.dr.Upsert(ctx, nil, draft); err != nil {
		return nil, fmt.Errorf("error creating draft: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return draft, nil
}

func (s *draftService) Update(ctx context.Context, id string, dc *transfer.DraftCreation) (*models.Draft, error) {
	draft, err := s.dr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("draft %s not found", id)
	}

	draft.ContentID = dc.ContentID
	draft.Caption = dc.Caption
	draft.ImageURLs = dc.ImageURLs
	draft.DisplayMode = dc.DisplayMode
	draft.UpdatedAt = time.Now()

	if err := s.dr.Upsert(ctx, nil, draft); err != nil {
		return nil, fmt.Errorf("error updating draft: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return draft, nil
}

func (s *draftService) Get(ctx context.Context, id string) (*models.Draft, error) {
	return s.dr.GetByID(ctx, id)
}

func (s *draftService) List(ctx context.Context) ([]models.Draft, error) {
	return s.dr.List(ctx)
}

// Remove tombstones the draft, and with it every slot that references it:
// a live slot must never point at a tombstoned draft.
func (s *draftService) Remove(ctx context.Context, id string) error {
	draft, err := s.dr.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("draft %s not found", id)
	}

	now := time.Now()
	if err := s.tombr.Record(ctx, nil, repository.TombstoneKindDraft, id, now); err != nil {
		return fmt.Errorf("error recording draft tombstone: %w", err)
	}
	if err := s.dr.Remove(ctx, nil, id); err != nil {
		return fmt.Errorf("error removing draft: %w", err)
	}

	slots, err := s.sr.List(ctx)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot.DraftID != id {
			continue
		}
		if err := s.tombr.Record(ctx, nil, repository.TombstoneKindSlot, slot.ID, now); err != nil {
			return fmt.Errorf("error recording slot tombstone: %w", err)
		}
		if err := s.sr.Remove(ctx, nil, slot.ID); err != nil {
			return fmt.Errorf("error removing slot: %w", err)
		}
	}

	s.notifier.NotifyChange(ctx)
	return nil
}
