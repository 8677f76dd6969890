package models

import (
	"fmt"
	"time"
)

type ScheduleSlot struct {
	ID            string         `db:"id" json:"id"`
	DraftID       string         `db:"draft_id" json:"draftId"`
	ScheduledDate string         `db:"scheduled_date" json:"scheduledDate"` // 2006-01-02
	ScheduledTime string         `db:"scheduled_time" json:"scheduledTime"` // 15:04
	Status        string         `db:"status" json:"status"`
	ErrorMessage  string         `db:"error_message" json:"error,omitempty"`
	PublishResult *PublishResult `db:"-" json:"publishResult,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

type PublishResult struct {
	ExternalPostID string    `json:"externalPostId"`
	Permalink      string    `json:"permalink,omitempty"`
	PublishedAt    time.Time `json:"publishedAt"`
}

const (
	SlotStatusPending   = "pending"
	SlotStatusPublished = "published"
	SlotStatusFailed    = "failed"
)

func (s ScheduleSlot) Key() string           { return s.ID }
func (s ScheduleSlot) ModifiedAt() time.Time { return s.UpdatedAt }

// ScheduledAt combines the slot's date and time fields in the given location.
func (s ScheduleSlot) ScheduledAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", s.ScheduledDate+" "+s.ScheduledTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule for slot %s: %w", s.ID, err)
	}
	return t, nil
}
