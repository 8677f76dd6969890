package utils

import (
	"testing"
	"time"

	"github.com/postvault/postvault/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotHashIgnoresVolatileFields(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	a := models.NewSnapshot(now)
	b := models.NewSnapshot(now)
	b.ExportedAt = now.Add(time.Hour)

	assert.Equal(t, SnapshotHash(a), SnapshotHash(b))
}

func TestSnapshotHashIgnoresCollectionOrder(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	d1 := models.Draft{ID: "a", Caption: "one", UpdatedAt: now}
	d2 := models.Draft{ID: "b", Caption: "two", UpdatedAt: now}

	a := models.NewSnapshot(now)
	a.Drafts = []models.Draft{d1, d2}
	b := models.NewSnapshot(now)
	b.Drafts = []models.Draft{d2, d1}

	assert.Equal(t, SnapshotHash(a), SnapshotHash(b))
}

func TestSnapshotHashChangesWithContent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	a := models.NewSnapshot(now)
	b := models.NewSnapshot(now)
	b.Drafts = []models.Draft{{ID: "a", Caption: "hello", UpdatedAt: now}}

	assert.NotEqual(t, SnapshotHash(a), SnapshotHash(b))
}

func TestSnapshotHashNil(t *testing.T) {
	assert.Empty(t, SnapshotHash(nil))
}
