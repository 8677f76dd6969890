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

type TemplateService interface {
	Create(ctx context.Context, tc *transfer.TemplateCreation) (*models.Template, error)
	Update(ctx context.Context, id string, tc *transfer.TemplateCreation) (*models.Template, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Template, error)
	GetDefault(ctx context.Context) (*models.Template, error)
	UpdateDefault(ctx context.Context, rules string) (*models.Template, error)
}

type templateService struct {
	tr       repository.TemplateRepository
	tombr    repository.TombstoneRepository
	notifier ChangeNotifier
}

func NewTemplateService(tr repository.TemplateRepository, tombr repository.TombstoneRepository, notifier ChangeNotifier) TemplateService {
	return &templateService{tr: tr, tombr: tombr, notifier: notifier}
}

func (s *templateService) Create(ctx context.Context, tc *transfer.TemplateCreation) (*models.Template, error) {
	if tc == nil || tc.Name == "" {
		err := errors.New("template needs a name")
		slog.Info(err.Error())
		return nil, err
	}

	now := time.Now()
	tmpl := &models.Template{
		ID:        gonanoid.Must(),
		Name:      tc.Name,
		Rules:     tc.Rules,
		Active:    tc.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tr.Upsert(ctx, nil, tmpl, false); err != nil {
		return nil, fmt.Errorf("error creating template: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return tmpl, nil
}

func (s *templateService) Update(ctx context.Context, id string, tc *transfer.TemplateCreation) (*models.Template, error) {
	tmpl, err := s.tr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("template %s not found", id)
	}

	tmpl.Name = tc.Name
	tmpl.Rules = tc.Rules
	tmpl.Active = tc.Active
	tmpl.UpdatedAt = time.Now()

	if err := s.tr.Upsert(ctx, nil, tmpl, id == models.DefaultTemplateID); err != nil {
		return nil, fmt.Errorf("error updating template: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return tmpl, nil
}

func (s *templateService) Remove(ctx context.Context, id string) error {
	if id == models.DefaultTemplateID {
		return errors.New("the default template cannot be removed")
	}

	tmpl, err := s.tr.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("template %s not found", id)
	}

	if err := s.tombr.Record(ctx, nil, repository.TombstoneKindTemplate, id, time.Now()); err != nil {
		return fmt.Errorf("error recording template tombstone: %w", err)
	}
	if err := s.tr.Remove(ctx, nil, id); err != nil {
		return fmt.Errorf("error removing template: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return nil
}

func (s *templateService) List(ctx context.Context) ([]models.Template, error) {
	return s.tr.List(ctx)
}

func (s *templateService) GetDefault(ctx context.Context) (*models.Template, error) {
	tmpl, err := s.tr.GetDefault(ctx)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		tmpl = models.NewDefaultTemplate(time.Now())
		if err := s.tr.Upsert(ctx, nil, tmpl, true); err != nil {
			return nil, fmt.Errorf("error seeding default template: %w", err)
		}
	}
	return tmpl, nil
}

func (s *templateService) UpdateDefault(ctx context.Context, rules string) (*models.Template, error) {
	tmpl, err := s.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	tmpl.Rules = rules
	tmpl.UpdatedAt = time.Now()

	if err := s.tr.Upsert(ctx, nil, tmpl, true); err != nil {
		return nil, fmt.Errorf("error updating default template: %w", err)
	}

	s.notifier.NotifyChange(ctx)
	return tmpl, nil
}
