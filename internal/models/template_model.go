package models

import "time"

type Template struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Rules     string    `db:"rules" json:"rules"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultTemplateID is the id of the built-in template that always exists
// and is never tombstoned.
const DefaultTemplateID = "default"

func (t Template) Key() string           { return t.ID }
func (t Template) ModifiedAt() time.Time { return t.UpdatedAt }

func NewDefaultTemplate(now time.Time) *Template {
	return &Template{
		ID:        DefaultTemplateID,
		Name:      "Default",
		Rules:     "{}",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
