// Package sync coordinates one client's view of the shared snapshot:
// merge-then-upload syncs, explicit restores, and debounced auto-sync.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/postvault/postvault/internal/merge"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/snapshot"
	"github.com/postvault/postvault/internal/transfer"
	"github.com/postvault/postvault/pkg/utils"
)

const (
	// syncGuard rejects a sync started within this interval of the
	// previous one, keeping at most one sync in flight per client.
	syncGuard = 3 * time.Second

	// justSyncedWindow suppresses auto-sync after a successful sync so the
	// merged snapshot being re-imported into local state is not misread as
	// a fresh local change. Without it, sync loops.
	justSyncedWindow = 10 * time.Second

	// debounceDelay batches rapid local mutations into one sync.
	debounceDelay = 5 * time.Second
)

var saveBackoff = []time.Duration{2 * time.Second, 4 * time.Second}

// LocalState is the client-side working copy of the snapshot. Load
// assembles it; Replace overwrites it with merged, now-canonical data.
type LocalState interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Replace(ctx context.Context, s *models.Snapshot) error
}

type Orchestrator struct {
	store     snapshot.Store
	local     LocalState
	profileID string
	now       func() time.Time

	mu             sync.Mutex
	lastSyncStart  time.Time
	justSyncedTill time.Time
	lastSyncedHash string
	debounce       *time.Timer
}

func NewOrchestrator(store snapshot.Store, local LocalState, profileID string) *Orchestrator {
	return &Orchestrator{
		store:     store,
		local:     local,
		profileID: profileID,
		now:       time.Now,
	}
}

// SyncToRemote merges local state with the remote snapshot and uploads the
// result. Invocations within the guard interval are a no-op success. On any
// failure local state is left untouched.
func (o *Orchestrator) SyncToRemote(ctx context.Context) (*transfer.SyncReport, error) {
	now := o.now()

	o.mu.Lock()
	if now.Sub(o.lastSyncStart) < syncGuard {
		o.mu.Unlock()
		return &transfer.SyncReport{Skipped: true, SyncedAt: now}, nil
	}
	o.lastSyncStart = now
	o.mu.Unlock()

	return o.sync(ctx, nil)
}

// sync is the shared merge-upload path. updates, when non-nil, is applied
// to the merged snapshot's slots before upload (the runner's save path).
func (o *Orchestrator) sync(ctx context.Context, updates map[string]transfer.SlotStatusUpdate) (*transfer.SyncReport, error) {
	now := o.now()

	local, err := o.local.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading local state: %w", err)
	}

	remote, err := o.store.Fetch(ctx, o.profileID)
	if err != nil {
		return nil, fmt.Errorf("fetching remote snapshot: %w", err)
	}

	merged, stats, err := merge.Merge(local, remote, now)
	if err != nil {
		return nil, fmt.Errorf("merging snapshots: %w", err)
	}
	merged.Normalize(now)

	if updates != nil {
		applySlotUpdates(merged, updates, now)
	}

	result, err := o.store.Upload(ctx, merged, o.profileID)
	if err != nil {
		return nil, fmt.Errorf("uploading snapshot: %w", err)
	}

	if err := o.local.Replace(ctx, merged); err != nil {
		return nil, fmt.Errorf("updating local state: %w", err)
	}

	o.mu.Lock()
	o.justSyncedTill = o.now().Add(justSyncedWindow)
	o.lastSyncedHash = utils.SnapshotHash(merged)
	o.mu.Unlock()

	return &transfer.SyncReport{
		Summary:  stats.Summary(),
		URL:      result.URL,
		SyncedAt: now,
	}, nil
}

// FetchFromRemote discards local state and adopts the remote snapshot
// as-is, with no merge. Used for bootstrap and explicit restores.
func (o *Orchestrator) FetchFromRemote(ctx context.Context) (*models.Snapshot, error) {
	remote, err := o.store.Fetch(ctx, o.profileID)
	if err != nil {
		return nil, fmt.Errorf("fetching remote snapshot: %w", err)
	}
	if remote == nil {
		return nil, nil
	}

	remote.Normalize(o.now())
	if err := o.local.Replace(ctx, remote); err != nil {
		return nil, fmt.Errorf("replacing local state: %w", err)
	}

	o.mu.Lock()
	o.lastSyncedHash = utils.SnapshotHash(remote)
	o.mu.Unlock()

	return remote, nil
}

// NotifyChange is called after every local mutation. If the sync-relevant
// content actually changed and the client did not just finish a sync, a
// sync is scheduled after the debounce delay; further mutations within the
// window reset the timer.
func (o *Orchestrator) NotifyChange(ctx context.Context) {
	local, err := o.local.Load(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	hash := utils.SnapshotHash(local)

	o.mu.Lock()
	defer o.mu.Unlock()

	if hash == o.lastSyncedHash {
		return
	}
	if o.now().Before(o.justSyncedTill) {
		return
	}

	if o.debounce != nil {
		o.debounce.Stop()
	}
	o.debounce = time.AfterFunc(debounceDelay, func() {
		if _, err := o.SyncToRemote(context.Background()); err != nil {
			slog.Error("auto-sync failed", "error", err.Error())
		}
	})
}

// SaveStatusUpdates persists a publish run's outcomes. It re-fetches the
// latest remote snapshot, applies the updates on top of the merge, and
// uploads, retrying independently of the publish pipeline so a save failure
// is never confused with a publish failure. The sync guard is bypassed:
// dropping this write would lose schedule state.
func (o *Orchestrator) SaveStatusUpdates(ctx context.Context, updates map[string]transfer.SlotStatusUpdate) error {
	return utils.Retry(ctx, 3, saveBackoff, nil, func() error {
		o.mu.Lock()
		o.lastSyncStart = o.now()
		o.mu.Unlock()

		_, err := o.sync(ctx, updates)
		return err
	})
}

// Status exposes the orchestrator's state for observability.
func (o *Orchestrator) Status() transfer.SyncStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return transfer.SyncStatus{
		LastSyncAt: o.lastSyncStart,
		JustSynced: o.now().Before(o.justSyncedTill),
		Hash:       o.lastSyncedHash,
	}
}

func applySlotUpdates(s *models.Snapshot, updates map[string]transfer.SlotStatusUpdate, now time.Time) {
	for i := range s.ScheduleSlots {
		upd, ok := updates[s.ScheduleSlots[i].ID]
		if !ok {
			continue
		}
		slot := &s.ScheduleSlots[i]
		slot.Status = upd.Status
		slot.ErrorMessage = upd.Error
		slot.UpdatedAt = now
		if upd.Status == models.SlotStatusPublished && upd.PublishedAt != nil {
			slot.PublishResult = &models.PublishResult{
				ExternalPostID: upd.ExternalPostID,
				Permalink:      upd.Permalink,
				PublishedAt:    *upd.PublishedAt,
			}
		}
	}
}
