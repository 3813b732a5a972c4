package tokens

import "github.com/golang-jwt/jwt/v5"

// AccessClaims backs both the access token and the sso_session cookie
// payload — they are the same JWT kind, just stored in different
// places.
type AccessClaims struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID  string `json:"userId"`
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

type IDClaims struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	jwt.RegisteredClaims
}
