package service

import (
	"context"
	"fmt"
	"time"

	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/repository"
)

type SettingsService interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, settings *models.Settings) error
}

type settingsService struct {
	str      repository.SettingsRepository
	notifier ChangeNotifier
}

func NewSettingsService(str repository.SettingsRepository, notifier ChangeNotifier) SettingsService {
	return &settingsService{str: str, notifier: notifier}
}

func (s *settingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, exists, err := s.str.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &models.Settings{Timezone: "UTC", AutoSync: true}, nil
	}
	return settings, nil
}

func (s *settingsService) Update(ctx context.Context, settings *models.Settings) error {
	if settings.Timezone != "" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
		}
	}
	if settings.DefaultPostTime != "" {
		if _, err := time.Parse("15:04", settings.DefaultPostTime); err != nil {
			return fmt.Errorf("invalid default post time %q: %w", settings.DefaultPostTime, err)
		}
	}

	if err := s.str.Set(ctx, nil, settings); err != nil {
		return err
	}

	s.notifier.NotifyChange(ctx)
	return nil
}
