package models

import "time"

// AuthCode is a short-lived, one-time capability binding an authenticated
// user to a specific (clientId, redirectUri) pair.
type AuthCode struct {
	Code        string    `json:"code"`
	UserID      string    `json:"userId"`
	ClientID    string    `json:"clientId"`
	RedirectURI string    `json:"redirectUri"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Used        bool      `json:"used"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c *AuthCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
