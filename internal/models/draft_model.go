package models

import "time"

type Draft struct {
	ID          string    `db:"id" json:"id"`
	ContentID   string    `db:"content_id" json:"contentId"`
	Caption     string    `db:"caption" json:"caption"`
	ImageURLs   []string  `db:"image_urls" json:"imageUrls"`
	DisplayMode string    `db:"display_mode" json:"displayMode,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

func (d Draft) Key() string           { return d.ID }
func (d Draft) ModifiedAt() time.Time { return d.UpdatedAt }
func (d Draft) IsCarousel() bool      { return len(d.ImageURLs) > 1 }
