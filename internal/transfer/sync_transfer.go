package transfer

import "time"

// SyncReport is the human-readable outcome of one sync pass.
type SyncReport struct {
	Skipped  bool      `json:"skipped"`
	Summary  string    `json:"summary,omitempty"`
	URL      string    `json:"url,omitempty"`
	SyncedAt time.Time `json:"syncedAt"`
}

// SyncStatus is the orchestrator's observable state, used by the API.
type SyncStatus struct {
	LastSyncAt time.Time `json:"lastSyncAt"`
	JustSynced bool      `json:"justSynced"`
	Hash       string    `json:"hash"`
}

// SlotStatusUpdate maps a publish outcome back onto a schedule slot.
type SlotStatusUpdate struct {
	Status         string     `json:"status"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	ExternalPostID string     `json:"externalPostId,omitempty"`
	Permalink      string     `json:"permalink,omitempty"`
	Error          string     `json:"error,omitempty"`
}
