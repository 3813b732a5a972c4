package tokens

import "errors"

// Verification failures fall into distinct classes so callers can react
// differently. The HTTP handlers in this repository do not: they report
// all three classes with the same invalid_token tag.
var (
	ErrExpired   = errors.New("tokens: expired")
	ErrMalformed = errors.New("tokens: malformed or bad signature")
	ErrAudience  = errors.New("tokens: issuer/audience mismatch")
)
