package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coreauth/idp/internal/auth"
	"github.com/coreauth/idp/internal/models"
	"github.com/coreauth/idp/internal/oauth"
	"github.com/coreauth/idp/internal/session"
	"github.com/coreauth/idp/internal/tokens"
)

// Server holds the services and adapters every handler needs. There is
// no process-wide mutable global beyond the immutable configuration
// baked into these fields at startup.
type Server struct {
	auth                      *auth.Service
	oauth                     *oauth.Service
	codec                     *tokens.Codec
	cookies                   *session.Adapter
	emailVerificationRequired bool
}

func NewServer(authService *auth.Service, oauthService *oauth.Service, codec *tokens.Codec, cookies *session.Adapter, emailVerificationRequired bool) *Server {
	return &Server{
		auth:                      authService,
		oauth:                     oauthService,
		codec:                     codec,
		cookies:                   cookies,
		emailVerificationRequired: emailVerificationRequired,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// RegisterHandler implements POST /auth/register.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}

	u, err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email already registered", "email_taken")
		case errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "username already taken", "username_taken")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "password does not meet minimum strength policy", "validation")
		default:
			slog.Error("register failed", "error", err)
			writeError(w, http.StatusBadRequest, "registration failed", "validation")
		}
		return
	}

	public := u.ToPublic()
	writeOK(w, http.StatusCreated, map[string]any{"user": public})
}

type loginRequest struct {
	Identifier  string `json:"identifier"`
	Password    string `json:"password"`
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
	State       string `json:"state"`
}

// LoginHandler implements POST /auth/login. It dispatches to one of
// two named operations depending on whether client_id+redirect_uri
// were supplied: loginDirect returns tokens in the JSON body (and sets
// cookies), loginAndStartOAuth additionally carries the user straight
// into the /authorize code-issuance step via a 302.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "validation")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required", "validation")
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials", "invalid_credentials")
		return
	}

	if req.ClientID != "" && req.RedirectURI != "" {
		s.loginAndStartOAuth(w, r, user, req)
		return
	}
	s.loginDirect(w, r, user)
}

func (s *Server) loginDirect(w http.ResponseWriter, r *http.Request, user *models.User) {
	access, refresh, err := s.auth.IssueSession(r.Context(), user)
	if err != nil {
		slog.Error("issue session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue session", "internal")
		return
	}

	s.cookies.WriteAccess(w, access)
	s.cookies.WriteRefresh(w, refresh)
	s.cookies.WriteSSO(w, access)

	writeOK(w, http.StatusOK, map[string]any{
		"user":    user.ToPublic(),
		"access":  access,
		"refresh": refresh,
	})
}

func (s *Server) loginAndStartOAuth(w http.ResponseWriter, r *http.Request, user *models.User, req loginRequest) {
	access, refresh, err := s.auth.IssueSession(r.Context(), user)
	if err != nil {
		slog.Error("issue session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue session", "internal")
		return
	}
	s.cookies.WriteAccess(w, access)
	s.cookies.WriteRefresh(w, refresh)
	s.cookies.WriteSSO(w, access)

	client, err := s.oauth.ValidateAuthorize(r.Context(), oauth.AuthorizeRequest{
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		ResponseType: "code",
		State:        req.State,
	})
	if err != nil {
		s.writeAuthorizeError(w, err)
		return
	}

	code, err := s.oauth.IssueCode(r.Context(), client, user.ID, req.RedirectURI)
	if err != nil {
		slog.Error("issue code failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue authorization code", "internal")
		return
	}

	http.Redirect(w, r, oauth.BuildRedirectURL(req.RedirectURI, code.Code, req.State), http.StatusFound)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshHandler implements POST /auth/refresh.
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	raw := session.ReadRefresh(r, req.Refresh)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "refresh token required", "invalid_token")
		return
	}

	access, err := s.auth.Refresh(r.Context(), raw)
	if err != nil {
		tag := "invalid_token"
		switch {
		case errors.Is(err, auth.ErrRevoked):
			tag = "revoked"
		case errors.Is(err, auth.ErrExpired):
			tag = "expired"
		}
		writeError(w, http.StatusUnauthorized, "invalid refresh token", tag)
		return
	}

	s.cookies.WriteAccess(w, access)
	writeOK(w, http.StatusOK, map[string]any{"access": access})
}

// LogoutHandler implements POST /auth/logout. It is deliberately
// permissive: a missing or already-revoked token is not an error.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	raw := session.ReadRefresh(r, req.Refresh)
	if raw != "" {
		if err := s.auth.Revoke(r.Context(), raw); err != nil {
			slog.Error("revoke failed", "error", err)
		}
	}

	s.cookies.Clear(w)
	writeOK(w, http.StatusOK, nil)
}

// MeHandler implements GET /auth/me. Precedence: cookie, then Bearer
// header, then 401. A valid token that fails the email-verification
// gate is 403, never before a token has actually been validated.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	raw := session.ReadAccess(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "authentication required", "invalid_token")
		return
	}

	claims, err := s.codec.VerifyAccess(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token", "invalid_token")
		return
	}

	if s.emailVerificationRequired && !claims.EmailVerified {
		writeError(w, http.StatusForbidden, "email verification required", "forbidden")
		return
	}

	writeOK(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":            claims.UserID,
			"email":         claims.Email,
			"emailVerified": claims.EmailVerified,
		},
	})
}

// HealthHandler is an unauthenticated liveness probe.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
