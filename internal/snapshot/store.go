// Package snapshot moves the shared snapshot document to and from the
// remote blob store. It carries no merge logic.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/storage"
)

type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type Store interface {
	// Fetch returns the remote snapshot, or nil when none exists yet.
	Fetch(ctx context.Context, profileID string) (*models.Snapshot, error)
	// Upload replaces the remote snapshot. The object store guarantees
	// atomic replacement, so readers never observe a partial write.
	Upload(ctx context.Context, s *models.Snapshot, profileID string) (*UploadResult, error)
}

type r2Store struct {
	baseURL string
	objects storage.ObjectStore
	client  *http.Client
}

func NewStore(baseURL string, objects storage.ObjectStore) Store {
	return &r2Store{
		baseURL: baseURL,
		objects: objects,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func objectKey(profileID string) string {
	return fmt.Sprintf("snapshots/%s.json", profileID)
}

// Fetch always bypasses caches: the snapshot is the single source of truth
// for merging, so a stale read would undo another client's sync.
func (s *r2Store) Fetch(ctx context.Context, profileID string) (*models.Snapshot, error) {
	url := fmt.Sprintf("%s/%s?t=%s", s.baseURL, objectKey(profileID), gonanoid.Must())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	// 404 means "no data yet", not an error.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d fetching snapshot: %s", resp.StatusCode, body)
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding snapshot: %w", err)
	}

	return &snap, nil
}

func (s *r2Store) Upload(ctx context.Context, snap *models.Snapshot, profileID string) (*UploadResult, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("error marshalling snapshot: %w", err)
	}

	key := objectKey(profileID)
	if err := s.objects.Put(ctx, key, body, "application/json"); err != nil {
		return nil, fmt.Errorf("error uploading snapshot: %w", err)
	}

	return &UploadResult{URL: s.objects.PublicURL(key), Key: key}, nil
}
