package auth

import "errors"

// Sentinel errors for the authentication service, checked with
// errors.Is at the HTTP edge. The taxonomy intentionally collapses
// user-not-found and password-mismatch into the same ErrInvalidCredentials
// so the two cases are indistinguishable externally.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrWeakPassword       = errors.New("password does not meet minimum strength policy")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrRevoked            = errors.New("refresh token revoked")
	ErrExpired            = errors.New("refresh token expired")
)
