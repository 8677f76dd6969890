// Package merge resolves two independently edited snapshots into one.
// The engine is pure: no I/O, and the same inputs always produce the same
// output, so out-of-order or repeated merges converge.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/postvault/postvault/internal/models"
)

// ErrDataIntegrity is returned when both sides are malformed and there is
// no well-formed snapshot to fall back to.
var ErrDataIntegrity = errors.New("both snapshots are malformed")

// tombstoneRetention is the grace period after which tombstones are purged
// from the merged set. Long enough that any client syncing at all will have
// observed the deletion.
const tombstoneRetention = 30 * 24 * time.Hour

type CollectionStats struct {
	KeptLocal   int `json:"keptLocal"`
	KeptRemote  int `json:"keptRemote"`
	Removed     int `json:"removed"`
	Resurrected int `json:"resurrected"`
}

type Stats struct {
	Drafts        CollectionStats `json:"drafts"`
	ScheduleSlots CollectionStats `json:"scheduleSlots"`
	Templates     CollectionStats `json:"templates"`
}

// Summary renders the stats for operator-facing reporting. It has no
// bearing on merge correctness.
func (s *Stats) Summary() string {
	line := func(name string, c CollectionStats) string {
		return fmt.Sprintf("%s: %d local, %d remote, %d removed, %d resurrected",
			name, c.KeptLocal, c.KeptRemote, c.Removed, c.Resurrected)
	}
	return line("drafts", s.Drafts) + "; " +
		line("slots", s.ScheduleSlots) + "; " +
		line("templates", s.Templates)
}

type entity interface {
	Key() string
	ModifiedAt() time.Time
}

// Merge combines a local working snapshot with a (possibly nil) remote one.
// A nil remote means first sync and returns local unchanged. A malformed
// side is discarded in favor of the well-formed one; if both are malformed
// the engine fails closed with ErrDataIntegrity.
func Merge(local, remote *models.Snapshot, now time.Time) (*models.Snapshot, *Stats, error) {
	stats := &Stats{}

	if remote == nil {
		return local, stats, nil
	}

	localErr := local.Validate()
	remoteErr := remote.Validate()
	if localErr != nil && remoteErr != nil {
		return nil, nil, ErrDataIntegrity
	}
	if localErr != nil {
		return remote, stats, nil
	}
	if remoteErr != nil {
		return local, stats, nil
	}

	cutoff := now.Add(-tombstoneRetention)

	merged := &models.Snapshot{
		Version:    models.SnapshotVersion,
		ExportedAt: now,
		Settings:   local.Settings,
	}

	draftTombs := tombstoneIndex(local.DeletedIDs.Drafts, remote.DeletedIDs.Drafts)
	slotTombs := tombstoneIndex(local.DeletedIDs.ScheduleSlots, remote.DeletedIDs.ScheduleSlots)
	tmplTombs := tombstoneIndex(local.DeletedIDs.Templates, remote.DeletedIDs.Templates)

	merged.Drafts, stats.Drafts = mergeCollection(local.Drafts, remote.Drafts, draftTombs, nil)
	merged.ScheduleSlots, stats.ScheduleSlots = mergeCollection(local.ScheduleSlots, remote.ScheduleSlots, slotTombs, preferSlot)
	merged.Templates, stats.Templates = mergeCollection(local.Templates, remote.Templates, tmplTombs, nil)

	merged.DeletedIDs = models.DeletedIDs{
		Drafts:        flattenTombstones(draftTombs, cutoff),
		ScheduleSlots: flattenTombstones(slotTombs, cutoff),
		Templates:     flattenTombstones(tmplTombs, cutoff),
	}

	merged.DefaultTemplate = mergeDefaultTemplate(local.DefaultTemplate, remote.DefaultTemplate, now)
	merged.Credentials = mergeCredentials(local.Credentials, remote.Credentials)

	return merged, stats, nil
}

// mergeCollection applies the union/timestamp/tombstone rules to one entity
// kind. prefer decides the winner when an id is live on both sides; nil
// means later-updatedAt-wins with ties kept local.
func mergeCollection[T entity](local, remote []T, tombs map[string]time.Time, prefer func(l, r T) bool) ([]T, CollectionStats) {
	var st CollectionStats

	if prefer == nil {
		prefer = func(l, r T) bool { return !l.ModifiedAt().Before(r.ModifiedAt()) }
	}

	localByID := make(map[string]T, len(local))
	for _, e := range local {
		localByID[e.Key()] = e
	}
	remoteByID := make(map[string]T, len(remote))
	for _, e := range remote {
		remoteByID[e.Key()] = e
	}

	ids := make([]string, 0, len(localByID)+len(remoteByID))
	for id := range localByID {
		ids = append(ids, id)
	}
	for id := range remoteByID {
		if _, seen := localByID[id]; !seen {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	kept := make([]T, 0, len(ids))
	for _, id := range ids {
		lv, lok := localByID[id]
		rv, rok := remoteByID[id]

		var winner T
		fromLocal := false
		switch {
		case lok && rok:
			if prefer(lv, rv) {
				winner, fromLocal = lv, true
			} else {
				winner = rv
			}
		case lok:
			winner, fromLocal = lv, true
		default:
			winner = rv
		}

		if deletedAt, dead := tombs[id]; dead {
			// Deletion wins over an untouched copy; a strictly later edit
			// resurrects the entity.
			if !winner.ModifiedAt().After(deletedAt) {
				st.Removed++
				continue
			}
			st.Resurrected++
		}

		if fromLocal {
			st.KeptLocal++
		} else {
			st.KeptRemote++
		}
		kept = append(kept, winner)
	}

	return kept, st
}

// preferSlot makes publish outcomes sticky: published beats pending/failed
// regardless of timestamps so an already-published slot is never re-run.
func preferSlot(l, r models.ScheduleSlot) bool {
	if l.Status == models.SlotStatusPublished && r.Status != models.SlotStatusPublished {
		return true
	}
	if r.Status == models.SlotStatusPublished && l.Status != models.SlotStatusPublished {
		return false
	}
	return !l.UpdatedAt.Before(r.UpdatedAt)
}

// tombstoneIndex unions both tombstone sets, keeping the earliest deletedAt
// for duplicate ids.
func tombstoneIndex(local, remote []models.Tombstone) map[string]time.Time {
	idx := make(map[string]time.Time, len(local)+len(remote))
	for _, t := range append(append([]models.Tombstone{}, local...), remote...) {
		if prev, ok := idx[t.ID]; !ok || t.DeletedAt.Before(prev) {
			idx[t.ID] = t.DeletedAt
		}
	}
	return idx
}

func flattenTombstones(idx map[string]time.Time, cutoff time.Time) []models.Tombstone {
	out := make([]models.Tombstone, 0, len(idx))
	for id, deletedAt := range idx {
		if deletedAt.Before(cutoff) {
			continue
		}
		out = append(out, models.Tombstone{ID: id, DeletedAt: deletedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mergeDefaultTemplate resolves the default template by the same
// later-updatedAt rule. It is never tombstoned and never absent.
func mergeDefaultTemplate(l, r *models.Template, now time.Time) *models.Template {
	switch {
	case l == nil && r == nil:
		return models.NewDefaultTemplate(now)
	case l == nil:
		return r
	case r == nil:
		return l
	case l.UpdatedAt.Before(r.UpdatedAt):
		return r
	default:
		return l
	}
}

// mergeCredentials keeps the most recently refreshed auth state so any
// client can publish after syncing.
func mergeCredentials(l, r *models.Credentials) *models.Credentials {
	switch {
	case l == nil:
		return r
	case r == nil:
		return l
	case l.RefreshedAt.Before(r.RefreshedAt):
		return r
	default:
		return l
	}
}
