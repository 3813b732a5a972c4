package models

import "time"

// RefreshRecord is the at-rest record for one issued refresh token. The
// raw token value is never stored — only TokenHash, a digest of it.
type RefreshRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	TokenHash  string     `json:"tokenHash"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Revoked    bool       `json:"revoked"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// Dead reports whether the record can no longer be used to mint an
// access token, independent of whatever the JWT's own exp claims say.
func (r *RefreshRecord) Dead(now time.Time) bool {
	return r.Revoked || now.After(r.ExpiresAt)
}
