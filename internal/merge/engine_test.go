package merge

import (
	"testing"
	"time"

	"github.com/postvault/postvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func emptySnapshot() *models.Snapshot {
	return models.NewSnapshot(now)
}

func draft(id string, updatedAt time.Time) models.Draft {
	return models.Draft{
		ID:        id,
		Caption:   "caption for " + id,
		ImageURLs: []string{"https://cdn.example.com/" + id + ".jpg"},
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
	}
}

func slot(id, status string, updatedAt time.Time) models.ScheduleSlot {
	return models.ScheduleSlot{
		ID:            id,
		DraftID:       "d-" + id,
		ScheduledDate: "2025-06-20",
		ScheduledTime: "09:00",
		Status:        status,
		CreatedAt:     updatedAt.Add(-time.Hour),
		UpdatedAt:     updatedAt,
	}
}

func draftIDs(s *models.Snapshot) []string {
	ids := make([]string, 0, len(s.Drafts))
	for _, d := range s.Drafts {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestMergeNilRemoteReturnsLocal(t *testing.T) {
	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", now)}

	merged, stats, err := Merge(local, nil, now)
	require.NoError(t, err)
	assert.Same(t, local, merged)
	assert.Zero(t, stats.Drafts.KeptRemote)
}

func TestMergeUnionOfDisjointDrafts(t *testing.T) {
	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", now)}
	remote := emptySnapshot()
	remote.Drafts = []models.Draft{draft("b", now)}

	merged, stats, err := Merge(local, remote, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, draftIDs(merged))
	assert.Equal(t, 1, stats.Drafts.KeptLocal)
	assert.Equal(t, 1, stats.Drafts.KeptRemote)
}

func TestMergeLaterUpdatedAtWins(t *testing.T) {
	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", now.Add(-time.Hour))}
	remote := emptySnapshot()
	newer := draft("a", now)
	newer.Caption = "remote edit"
	remote.Drafts = []models.Draft{newer}

	merged, stats, err := Merge(local, remote, now)
	require.NoError(t, err)
	require.Len(t, merged.Drafts, 1)
	assert.Equal(t, "remote edit", merged.Drafts[0].Caption)
	assert.Equal(t, 1, stats.Drafts.KeptRemote)
}

func TestMergeTimestampTieKeepsLocal(t *testing.T) {
	local := emptySnapshot()
	mine := draft("a", now)
	mine.Caption = "local copy"
	local.Drafts = []models.Draft{mine}
	remote := emptySnapshot()
	theirs := draft("a", now)
	theirs.Caption = "remote copy"
	remote.Drafts = []models.Draft{theirs}

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	require.Len(t, merged.Drafts, 1)
	assert.Equal(t, "local copy", merged.Drafts[0].Caption)
}

func TestMergeTombstoneRemovesUntouchedEntity(t *testing.T) {
	deletedAt := now.Add(-time.Minute)

	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", now.Add(-time.Hour))}
	remote := emptySnapshot()
	remote.DeletedIDs.Drafts = []models.Tombstone{{ID: "a", DeletedAt: deletedAt}}

	merged, stats, err := Merge(local, remote, now)
	require.NoError(t, err)
	assert.Empty(t, merged.Drafts)
	assert.Equal(t, 1, stats.Drafts.Removed)
}

func TestMergeTombstoneTieRemoves(t *testing.T) {
	at := now.Add(-time.Minute)

	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", at)}
	remote := emptySnapshot()
	remote.DeletedIDs.Drafts = []models.Tombstone{{ID: "a", DeletedAt: at}}

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	assert.Empty(t, merged.Drafts)
}

func TestMergeStrictlyLaterEditResurrects(t *testing.T) {
	deletedAt := now.Add(-time.Hour)

	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", now.Add(-time.Minute))}
	remote := emptySnapshot()
	remote.DeletedIDs.Drafts = []models.Tombstone{{ID: "a", DeletedAt: deletedAt}}

	merged, stats, err := Merge(local, remote, now)
	require.NoError(t, err)
	require.Len(t, merged.Drafts, 1)
	assert.Equal(t, 1, stats.Drafts.Resurrected)
	// The tombstone stays so other clients still learn of the deletion
	// attempt; their later merges resolve it the same way.
	assert.Len(t, merged.DeletedIDs.Drafts, 1)
}

func TestMergeTombstoneUnionKeepsEarliestDeletedAt(t *testing.T) {
	early := now.Add(-2 * time.Hour)
	late := now.Add(-time.Hour)

	local := emptySnapshot()
	local.DeletedIDs.Drafts = []models.Tombstone{{ID: "a", DeletedAt: late}}
	remote := emptySnapshot()
	remote.DeletedIDs.Drafts = []models.Tombstone{{ID: "a", DeletedAt: early}}

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	require.Len(t, merged.DeletedIDs.Drafts, 1)
	assert.True(t, merged.DeletedIDs.Drafts[0].DeletedAt.Equal(early))
}

func TestMergePurgesExpiredTombstones(t *testing.T) {
	local := emptySnapshot()
	local.DeletedIDs.Drafts = []models.Tombstone{
		{ID: "old", DeletedAt: now.Add(-31 * 24 * time.Hour)},
		{ID: "recent", DeletedAt: now.Add(-29 * 24 * time.Hour)},
	}
	remote := emptySnapshot()

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	require.Len(t, merged.DeletedIDs.Drafts, 1)
	assert.Equal(t, "recent", merged.DeletedIDs.Drafts[0].ID)
}

func TestMergePublishedSlotBeatsNewerPending(t *testing.T) {
	local := emptySnapshot()
	published := slot("s1", models.SlotStatusPublished, now.Add(-time.Hour))
	published.PublishResult = &models.PublishResult{ExternalPostID: "ig-123", PublishedAt: now.Add(-time.Hour)}
	local.ScheduleSlots = []models.ScheduleSlot{published}

	remote := emptySnapshot()
	remote.ScheduleSlots = []models.ScheduleSlot{slot("s1", models.SlotStatusPending, now)}

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	require.Len(t, merged.ScheduleSlots, 1)
	assert.Equal(t, models.SlotStatusPublished, merged.ScheduleSlots[0].Status)
	require.NotNil(t, merged.ScheduleSlots[0].PublishResult)
	assert.Equal(t, "ig-123", merged.ScheduleSlots[0].PublishResult.ExternalPostID)

	// Same pair, sides swapped: published still wins.
	merged, _, err = Merge(remote, local, now)
	require.NoError(t, err)
	require.Len(t, merged.ScheduleSlots, 1)
	assert.Equal(t, models.SlotStatusPublished, merged.ScheduleSlots[0].Status)
}

func TestMergeMalformedRemoteKeepsLocal(t *testing.T) {
	local := emptySnapshot()
	local.Drafts = []models.Draft{draft("a", now)}
	remote := &models.Snapshot{Version: models.SnapshotVersion}

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	assert.Same(t, local, merged)
}

func TestMergeMalformedLocalAdoptsRemote(t *testing.T) {
	local := &models.Snapshot{Version: models.SnapshotVersion}
	remote := emptySnapshot()
	remote.Drafts = []models.Draft{draft("b", now)}

	merged, _, err := Merge(local, remote, now)
	require.NoError(t, err)
	assert.Same(t, remote, merged)
}

func TestMergeBothMalformedFailsClosed(t *testing.T) {
	local := &models.Snapshot{}
	remote := &models.Snapshot{}

	merged, _, err := Merge(local, remote, now)
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Nil(t, merged)
}

func TestMergeIsIdempotent(t *testing.T) {
	s := emptySnapshot()
	s.Drafts = []models.Draft{draft("a", now.Add(-time.Hour)), draft("b", now)}
	s.ScheduleSlots = []models.ScheduleSlot{slot("s1", models.SlotStatusPending, now)}
	s.DeletedIDs.Drafts = []models.Tombstone{{ID: "gone", DeletedAt: now.Add(-time.Hour)}}

	merged, _, err := Merge(s, s, now)
	require.NoError(t, err)
	assert.Equal(t, s.Drafts, merged.Drafts)
	assert.Equal(t, s.ScheduleSlots, merged.ScheduleSlots)
	assert.Equal(t, s.DeletedIDs.Drafts, merged.DeletedIDs.Drafts)
}

func TestMergeTwoClientsConverge(t *testing.T) {
	a := emptySnapshot()
	a.Drafts = []models.Draft{draft("a", now.Add(-time.Minute)), draft("shared", now)}
	b := emptySnapshot()
	b.Drafts = []models.Draft{draft("b", now), draft("shared", now.Add(-time.Hour))}

	ab, _, err := Merge(a, b, now)
	require.NoError(t, err)
	ba, _, err := Merge(b, a, now)
	require.NoError(t, err)

	assert.ElementsMatch(t, draftIDs(ab), draftIDs(ba))
	assert.ElementsMatch(t, []string{"a", "b", "shared"}, draftIDs(ab))

	// A second pass over an already-merged pair changes nothing.
	again, _, err := Merge(ab, b, now)
	require.NoError(t, err)
	assert.Equal(t, ab.Drafts, again.Drafts)
}
