package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/repository"
)

// LocalStateService materializes this client's working snapshot from the
// database and replaces it wholesale after a merge. It satisfies the sync
// orchestrator's LocalState contract.
type LocalStateService struct {
	db    *sql.DB
	dr    repository.DraftRepository
	sr    repository.ScheduleSlotRepository
	tr    repository.TemplateRepository
	tombr repository.TombstoneRepository
	cr    repository.CredentialsRepository
	str   repository.SettingsRepository
}

func NewLocalStateService(
	db *sql.DB,
	dr repository.DraftRepository,
	sr repository.ScheduleSlotRepository,
	tr repository.TemplateRepository,
	tombr repository.TombstoneRepository,
	cr repository.CredentialsRepository,
	str repository.SettingsRepository) *LocalStateService {
	return &LocalStateService{
		db:    db,
		dr:    dr,
		sr:    sr,
		tr:    tr,
		tombr: tombr,
		cr:    cr,
		str:   str,
	}
}

func (s *LocalStateService) Load(ctx context.Context) (*models.Snapshot, error) {
	now := time.Now()
	snap := models.NewSnapshot(now)

	var err error
	if snap.Drafts, err = s.dr.List(ctx); err != nil {
		return nil, fmt.Errorf("loading drafts: %w", err)
	}
	if snap.ScheduleSlots, err = s.sr.List(ctx); err != nil {
		return nil, fmt.Errorf("loading schedule slots: %w", err)
	}
	if snap.Templates, err = s.tr.List(ctx); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	defaultTemplate, err := s.tr.GetDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading default template: %w", err)
	}
	if defaultTemplate != nil {
		snap.DefaultTemplate = defaultTemplate
	}

	if snap.DeletedIDs.Drafts, err = s.tombr.ListByKind(ctx, repository.TombstoneKindDraft); err != nil {
		return nil, fmt.Errorf("loading draft tombstones: %w", err)
	}
	if snap.DeletedIDs.ScheduleSlots, err = s.tombr.ListByKind(ctx, repository.TombstoneKindSlot); err != nil {
		return nil, fmt.Errorf("loading slot tombstones: %w", err)
	}
	if snap.DeletedIDs.Templates, err = s.tombr.ListByKind(ctx, repository.TombstoneKindTemplate); err != nil {
		return nil, fmt.Errorf("loading template tombstones: %w", err)
	}

	if snap.Credentials, err = s.cr.Get(ctx); err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	settings, exists, err := s.str.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if exists {
		snap.Settings = *settings
	}

	snap.Normalize(now)
	return snap, nil
}

func (s *LocalStateService) Replace(ctx context.Context, snap *models.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.dr.ReplaceAll(ctx, tx, snap.Drafts); err != nil {
		return fmt.Errorf("replacing drafts: %w", err)
	}
	if err = s.sr.ReplaceAll(ctx, tx, snap.ScheduleSlots); err != nil {
		return fmt.Errorf("replacing schedule slots: %w", err)
	}
	if err = s.tr.ReplaceAll(ctx, tx, snap.Templates, snap.DefaultTemplate); err != nil {
		return fmt.Errorf("replacing templates: %w", err)
	}
	if err = s.tombr.ReplaceKind(ctx, tx, repository.TombstoneKindDraft, snap.DeletedIDs.Drafts); err != nil {
		return fmt.Errorf("replacing draft tombstones: %w", err)
	}
	if err = s.tombr.ReplaceKind(ctx, tx, repository.TombstoneKindSlot, snap.DeletedIDs.ScheduleSlots); err != nil {
		return fmt.Errorf("replacing slot tombstones: %w", err)
	}
	if err = s.tombr.ReplaceKind(ctx, tx, repository.TombstoneKindTemplate, snap.DeletedIDs.Templates); err != nil {
		return fmt.Errorf("replacing template tombstones: %w", err)
	}
	if snap.Credentials != nil {
		if err = s.cr.Set(ctx, tx, snap.Credentials); err != nil {
			return fmt.Errorf("replacing credentials: %w", err)
		}
	}
	if err = s.str.Set(ctx, tx, &snap.Settings); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
