package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postvault/postvault/internal/storage"
)

// AssetService uploads draft images to object storage and hands back the
// public URL that goes into the draft's imageUrls.
type AssetService interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

type assetService struct {
	objects storage.ObjectStore
}

func NewAssetService(objects storage.ObjectStore) AssetService {
	return &assetService{objects: objects}
}

func (s *assetService) Upload(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty upload")
	}

	kind, err := filetype.Match(data)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error detecting file type: %w", err)
	}
	if !filetype.IsImage(data) {
		return "", fmt.Errorf("unsupported file type %s, only images can be posted", kind.Extension)
	}

	key := fmt.Sprintf("assets/%s.%s", gonanoid.Must(), kind.Extension)
	if err := s.objects.Put(ctx, key, data, kind.MIME.Value); err != nil {
		return "", fmt.Errorf("error uploading asset: %w", err)
	}

	return s.objects.PublicURL(key), nil
}
