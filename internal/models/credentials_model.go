package models

import "time"

// Credentials holds the external-platform auth state. The access token is
// stored AES-GCM encrypted so the snapshot can be synced between clients
// without exposing the raw token.
type Credentials struct {
	Connected      bool      `db:"connected" json:"connected"`
	AccountID      string    `db:"account_id" json:"accountId"`
	AccessToken    string    `db:"access_token" json:"accessToken"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"tokenExpiresAt"`
	RefreshedAt    time.Time `db:"refreshed_at" json:"refreshedAt"`
}
