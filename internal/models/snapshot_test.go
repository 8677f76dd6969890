package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsMissingCollections(t *testing.T) {
	var nilSnap *Snapshot
	assert.ErrorIs(t, nilSnap.Validate(), ErrMalformedSnapshot)

	assert.ErrorIs(t, (&Snapshot{}).Validate(), ErrMalformedSnapshot)

	partial := &Snapshot{Drafts: []Draft{}, ScheduleSlots: []ScheduleSlot{}}
	assert.ErrorIs(t, partial.Validate(), ErrMalformedSnapshot)
}

func TestValidateAcceptsEmptyCollections(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, NewSnapshot(now).Validate())
}

func TestNormalizeFillsDefaults(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s := &Snapshot{}
	s.Normalize(now)

	assert.Equal(t, SnapshotVersion, s.Version)
	assert.NotNil(t, s.Drafts)
	assert.NotNil(t, s.ScheduleSlots)
	assert.NotNil(t, s.Templates)
	assert.Equal(t, "UTC", s.Settings.Timezone)
	require.NotNil(t, s.DefaultTemplate)
	assert.Equal(t, DefaultTemplateID, s.DefaultTemplate.ID)
}

func TestNormalizeKeepsExistingData(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s := NewSnapshot(now)
	s.Settings.Timezone = "America/New_York"
	s.Drafts = []Draft{{ID: "d1", UpdatedAt: now}}

	s.Normalize(now.Add(time.Hour))
	assert.Equal(t, "America/New_York", s.Settings.Timezone)
	assert.Len(t, s.Drafts, 1)
}

func TestScheduledAtCombinesDateAndTime(t *testing.T) {
	slot := ScheduleSlot{ID: "s1", ScheduledDate: "2025-06-15", ScheduledTime: "09:30"}

	at, err := slot.ScheduledAt(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC), at)

	bad := ScheduleSlot{ID: "s2", ScheduledDate: "June 15", ScheduledTime: "09:30"}
	_, err = bad.ScheduledAt(time.UTC)
	assert.Error(t, err)
}
