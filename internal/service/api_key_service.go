package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/repository"
	"github.com/postvault/postvault/pkg/utils"
)

const maxApiKeys = 5

type ApiKeyService interface {
	Create(ctx context.Context, name string) (*models.ApiKey, error)
	List(ctx context.Context) ([]*models.ApiKey, error)
	Validate(ctx context.Context, apiKey string) error
	Remove(ctx context.Context, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, name string) (*models.ApiKey, error) {
	keys, err := s.k.List(ctx)
	if err != nil {
		return nil, err
	}

	if len(keys) >= maxApiKeys {
		err = fmt.Errorf("only %d API keys can be created", maxApiKeys)
		slog.Info(err.Error())
		return nil, err
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return nil, errors.New("error generating API key")
	}

	apiKey := &models.ApiKey{
		Name:   name,
		ApiKey: key,
	}

	id, err := s.k.Create(ctx, apiKey)
	if err != nil {
		return nil, errors.New("error saving API key")
	}
	apiKey.ID = id

	return apiKey, nil
}

func (s *apiKeyService) Validate(ctx context.Context, apiKey string) error {
	exists, err := s.k.Exists(ctx, apiKey)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New("key doesn't exist")
	}
	return nil
}

func (s *apiKeyService) List(ctx context.Context) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.List(ctx)
	if err != nil {
		return nil, errors.New("error getting API keys")
	}
	return apiKeys, nil
}

func (s *apiKeyService) Remove(ctx context.Context, keyID int64) error {
	if keyID == 0 {
		err := errors.New("key id is not valid")
		slog.Info(err.Error())
		return err
	}

	return s.k.Remove(ctx, keyID)
}
