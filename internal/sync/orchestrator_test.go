package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/snapshot"
	"github.com/postvault/postvault/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	remote    *models.Snapshot
	fetchErr  error
	uploadErr error
	uploaded  []*models.Snapshot
}

func (f *fakeStore) Fetch(_ context.Context, _ string) (*models.Snapshot, error) {
	return f.remote, f.fetchErr
}

func (f *fakeStore) Upload(_ context.Context, s *models.Snapshot, _ string) (*snapshot.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append(f.uploaded, s)
	return &snapshot.UploadResult{URL: "https://cdn.example.com/snapshots/default.json"}, nil
}

type fakeLocal struct {
	snap     *models.Snapshot
	loadErr  error
	replaced []*models.Snapshot
}

func (f *fakeLocal) Load(_ context.Context) (*models.Snapshot, error) {
	return f.snap, f.loadErr
}

func (f *fakeLocal) Replace(_ context.Context, s *models.Snapshot) error {
	f.replaced = append(f.replaced, s)
	return nil
}

func snapshotWithDraft(id string) *models.Snapshot {
	s := models.NewSnapshot(testNow)
	s.Drafts = []models.Draft{{ID: id, Caption: id, UpdatedAt: testNow}}
	return s
}

func newTestOrchestrator(store *fakeStore, local *fakeLocal) *Orchestrator {
	o := NewOrchestrator(store, local, "default")
	current := testNow
	o.now = func() time.Time { return current }
	return o
}

func TestSyncToRemoteMergesAndUploads(t *testing.T) {
	store := &fakeStore{remote: snapshotWithDraft("remote-1")}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	report, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.NotEmpty(t, report.Summary)

	require.Len(t, store.uploaded, 1)
	assert.Len(t, store.uploaded[0].Drafts, 2)
	require.Len(t, local.replaced, 1)
	assert.Len(t, local.replaced[0].Drafts, 2)
}

func TestSyncToRemoteGuardSkipsBackToBack(t *testing.T) {
	store := &fakeStore{remote: snapshotWithDraft("remote-1")}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	first, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Len(t, store.uploaded, 1)
}

func TestSyncToRemoteFetchFailureLeavesLocalUntouched(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("network down")}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	_, err := o.SyncToRemote(context.Background())
	require.Error(t, err)
	assert.Empty(t, local.replaced)
}

func TestSyncToRemoteUploadFailureLeavesLocalUntouched(t *testing.T) {
	store := &fakeStore{remote: snapshotWithDraft("remote-1"), uploadErr: errors.New("503")}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	_, err := o.SyncToRemote(context.Background())
	require.Error(t, err)
	assert.Empty(t, local.replaced)
}

func TestFetchFromRemoteAdoptsRemoteWithoutMerging(t *testing.T) {
	store := &fakeStore{remote: snapshotWithDraft("remote-1")}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	snap, err := o.FetchFromRemote(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	require.Len(t, local.replaced, 1)
	require.Len(t, local.replaced[0].Drafts, 1)
	assert.Equal(t, "remote-1", local.replaced[0].Drafts[0].ID)
}

func TestFetchFromRemoteNoSnapshot(t *testing.T) {
	store := &fakeStore{}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	snap, err := o.FetchFromRemote(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Empty(t, local.replaced)
}

func TestNotifyChangeSkipsWhenContentUnchanged(t *testing.T) {
	store := &fakeStore{remote: nil}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	_, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)

	o.NotifyChange(context.Background())
	assert.Nil(t, o.debounce)
}

func TestNotifyChangeSuppressedDuringLockout(t *testing.T) {
	store := &fakeStore{remote: nil}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	_, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)

	// A local mutation arriving inside the just-synced window.
	local.snap = snapshotWithDraft("local-2")
	o.NotifyChange(context.Background())
	assert.Nil(t, o.debounce)
}

func TestNotifyChangeSchedulesAfterLockout(t *testing.T) {
	store := &fakeStore{remote: nil}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)
	current := testNow
	o.now = func() time.Time { return current }

	_, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)

	current = current.Add(11 * time.Second)
	local.snap = snapshotWithDraft("local-2")
	o.NotifyChange(context.Background())
	require.NotNil(t, o.debounce)
	o.debounce.Stop()
}

func TestSaveStatusUpdatesBypassesGuard(t *testing.T) {
	published := testNow.Add(-time.Minute)
	pending := models.ScheduleSlot{
		ID: "s1", DraftID: "d1",
		ScheduledDate: "2025-06-15", ScheduledTime: "09:00",
		Status: models.SlotStatusPending, UpdatedAt: testNow.Add(-time.Hour),
	}
	localSnap := models.NewSnapshot(testNow)
	localSnap.ScheduleSlots = []models.ScheduleSlot{pending}

	store := &fakeStore{remote: nil}
	local := &fakeLocal{snap: localSnap}
	o := newTestOrchestrator(store, local)

	// A sync just started; the guard would normally reject another.
	_, err := o.SyncToRemote(context.Background())
	require.NoError(t, err)

	err = o.SaveStatusUpdates(context.Background(), map[string]transfer.SlotStatusUpdate{
		"s1": {
			Status:         models.SlotStatusPublished,
			PublishedAt:    &published,
			ExternalPostID: "ig-1",
			Permalink:      "https://instagram.com/p/x",
		},
	})
	require.NoError(t, err)

	require.Len(t, store.uploaded, 2)
	last := store.uploaded[len(store.uploaded)-1]
	require.Len(t, last.ScheduleSlots, 1)
	assert.Equal(t, models.SlotStatusPublished, last.ScheduleSlots[0].Status)
	require.NotNil(t, last.ScheduleSlots[0].PublishResult)
	assert.Equal(t, "ig-1", last.ScheduleSlots[0].PublishResult.ExternalPostID)
}

func TestSaveStatusUpdatesRetriesTransientFailures(t *testing.T) {
	origBackoff := saveBackoff
	saveBackoff = []time.Duration{time.Millisecond}
	defer func() { saveBackoff = origBackoff }()

	store := &fakeStore{remote: nil, uploadErr: errors.New("503")}
	local := &fakeLocal{snap: snapshotWithDraft("local-1")}
	o := newTestOrchestrator(store, local)

	attempts := 0
	o.local = &countingLocal{inner: local, onLoad: func() {
		attempts++
		if attempts == 3 {
			store.uploadErr = nil
		}
	}}

	err := o.SaveStatusUpdates(context.Background(), map[string]transfer.SlotStatusUpdate{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, store.uploaded, 1)
}

type countingLocal struct {
	inner  *fakeLocal
	onLoad func()
}

func (c *countingLocal) Load(ctx context.Context) (*models.Snapshot, error) {
	c.onLoad()
	return c.inner.Load(ctx)
}

func (c *countingLocal) Replace(ctx context.Context, s *models.Snapshot) error {
	return c.inner.Replace(ctx, s)
}
