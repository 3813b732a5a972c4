// Package session defines the three cookies the core sets on the user
// agent and their scoping rules. Handlers take already-parsed request
// data and hand back outcomes; the core never reads or writes cookies
// directly, per the boundary-adapter split the rest of this codebase
// follows.
package session

import (
	"net/http"
	"time"

	"github.com/coreauth/idp/internal/tokens"
)

const (
	CookieSSO     = "sso_session"
	CookieAccess  = "access_token"
	CookieRefresh = "refresh_token"
)

// Adapter writes and clears the three cookies with the scoping rules
// this core requires: sso_session is scoped to a parent suffix shared
// by the IdP and every relying party; access_token and refresh_token
// are host-only to the IdP itself.
type Adapter struct {
	// CookieDomain is the parent suffix used for sso_session. Leave
	// empty for host-only (acceptable for single-host development; a
	// real deployment sets a real parent domain — see DESIGN.md).
	CookieDomain string
	// Secure flips the cookie's Secure flag. Production deployments
	// must set this true.
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (a *Adapter) WriteAccess(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieAccess,
		Value:    raw,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.AccessTTL.Seconds()),
	})
}

func (a *Adapter) WriteRefresh(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieRefresh,
		Value:    raw,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.RefreshTTL.Seconds()),
	})
}

// WriteSSO writes the cross-subdomain cookie read only by /authorize.
// Its value is the signed access-token JWT, and its domain is the
// parent suffix shared by the IdP and every relying party.
func (a *Adapter) WriteSSO(w http.ResponseWriter, accessJWT string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieSSO,
		Value:    accessJWT,
		Path:     "/",
		Domain:   a.CookieDomain,
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.AccessTTL.Seconds()),
	})
}

// Clear expires all three cookies, for logout.
func (a *Adapter) Clear(w http.ResponseWriter) {
	expire := func(name, domain string) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   domain,
			HttpOnly: true,
			Secure:   a.Secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
	expire(CookieAccess, "")
	expire(CookieRefresh, "")
	expire(CookieSSO, a.CookieDomain)
}

// ReadSSO resolves the sso_session cookie to verified access claims.
// It returns nil when the cookie is absent or fails
// verification — /authorize treats both as "no session", redirecting
// to login rather than surfacing a token error.
func ReadSSO(r *http.Request, codec *tokens.Codec) *tokens.AccessClaims {
	cookie, err := r.Cookie(CookieSSO)
	if err != nil {
		return nil
	}
	claims, err := codec.VerifyAccess(cookie.Value)
	if err != nil {
		return nil
	}
	return claims
}

// ReadAccess implements the access-token presentation precedence:
// cookie first, then Authorization: Bearer.
func ReadAccess(r *http.Request) string {
	if cookie, err := r.Cookie(CookieAccess); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// ReadRefresh reads the refresh token from its cookie, falling back to
// a request body value the caller already parsed.
func ReadRefresh(r *http.Request, bodyValue string) string {
	if cookie, err := r.Cookie(CookieRefresh); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bodyValue
}
