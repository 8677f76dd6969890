package models

import (
	"errors"
	"time"
)

// SnapshotVersion is bumped whenever the snapshot schema gains fields.
// Readers tolerate older documents through Normalize's default filling.
const SnapshotVersion = "2.0"

type Settings struct {
	Timezone        string `json:"timezone"`
	DefaultPostTime string `json:"defaultPostTime"`
	AutoSync        bool   `json:"autoSync"`
}

type Tombstone struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}

type DeletedIDs struct {
	Drafts        []Tombstone `json:"drafts"`
	ScheduleSlots []Tombstone `json:"scheduleSlots"`
	Templates     []Tombstone `json:"templates"`
}

// Snapshot is the aggregate document persisted remotely, one per profile.
type Snapshot struct {
	Version         string         `json:"version"`
	ExportedAt      time.Time      `json:"exportedAt"`
	Settings        Settings       `json:"settings"`
	Drafts          []Draft        `json:"drafts"`
	ScheduleSlots   []ScheduleSlot `json:"scheduleSlots"`
	Templates       []Template     `json:"templates"`
	DefaultTemplate *Template      `json:"defaultTemplate,omitempty"`
	Credentials     *Credentials   `json:"credentials,omitempty"`
	DeletedIDs      DeletedIDs     `json:"deletedIds"`
}

var ErrMalformedSnapshot = errors.New("snapshot is missing required collections")

// Validate reports whether the decoded snapshot carries the collections the
// merge engine depends on. A document that predates the entity split or was
// truncated in transit fails here and is treated as absent by the caller.
func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrMalformedSnapshot
	}
	if s.Drafts == nil || s.ScheduleSlots == nil || s.Templates == nil {
		return ErrMalformedSnapshot
	}
	return nil
}

// Normalize fills optional-field defaults so documents written by older
// versions stay readable. It never removes data.
func (s *Snapshot) Normalize(now time.Time) {
	if s.Version == "" {
		s.Version = SnapshotVersion
	}
	if s.Drafts == nil {
		s.Drafts = []Draft{}
	}
	if s.ScheduleSlots == nil {
		s.ScheduleSlots = []ScheduleSlot{}
	}
	if s.Templates == nil {
		s.Templates = []Template{}
	}
	if s.DeletedIDs.Drafts == nil {
		s.DeletedIDs.Drafts = []Tombstone{}
	}
	if s.DeletedIDs.ScheduleSlots == nil {
		s.DeletedIDs.ScheduleSlots = []Tombstone{}
	}
	if s.DeletedIDs.Templates == nil {
		s.DeletedIDs.Templates = []Tombstone{}
	}
	if s.Settings.Timezone == "" {
		s.Settings.Timezone = "UTC"
	}
	if s.DefaultTemplate == nil {
		s.DefaultTemplate = NewDefaultTemplate(now)
	}
}

// NewSnapshot returns an empty, normalized snapshot.
func NewSnapshot(now time.Time) *Snapshot {
	s := &Snapshot{Version: SnapshotVersion, ExportedAt: now}
	s.Normalize(now)
	return s
}
