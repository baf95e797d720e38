package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
)

// Auth constants.
const (
	// ticketTTL is how long a WebSocket ticket is valid.
	ticketTTL = 60 * time.Second

	// refreshCookiePath limits the refresh cookie to the auth endpoints.
	refreshCookiePath = "/api/v1/auth"

	// maxDeviceInfoLength truncates the stored User-Agent.
	maxDeviceInfoLength = 200

	// maxAPITokenTTLDays caps integration token lifetime.
	maxAPITokenTTLDays = 366
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshRequest is the optional body for refresh and logout. Browser
// clients leave it empty and rely on the refresh cookie.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// sessionResponse is returned by login, refresh and change-password.
type sessionResponse struct {
	User         *auth.User `json:"user"`
	SessionID    string     `json:"session_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	CSRFToken    string     `json:"csrf_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type createAPITokenRequest struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

// handleLogin authenticates a user, opens a session and sets the session
// cookies. Attempts are rate limited per client IP and username.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	key := clientIP(r) + "|" + strings.ToLower(req.Username)
	if s.loginLimiter != nil {
		if ok, retry := s.loginLimiter.Allow(key); !ok {
			s.logger.Warn("login rate limited", "username", req.Username, "ip", clientIP(r))
			writeRateLimited(w, retry)
			return
		}
	}

	sess, err := s.auth.Login(r.Context(), req.Username, req.Password, deviceInfo(r))
	if err != nil {
		var locked *auth.LockedError
		switch {
		case errors.As(err, &locked):
			writeRateLimited(w, time.Until(locked.Until))
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, "invalid credentials")
		case errors.Is(err, auth.ErrUserInactive):
			writeForbidden(w, "account is inactive")
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, "login failed")
		}
		return
	}
	if s.loginLimiter != nil {
		s.loginLimiter.Reset(key)
	}

	s.recordAudit(audit.ActionLogin, "user", sess.User.ID, sess.User.ID, "", map[string]any{
		"ip": clientIP(r),
	})
	s.logger.Info("user logged in", "user_id", sess.User.ID, "session_id", sess.SessionID)
	s.writeSession(w, http.StatusOK, sess)
}

// handleRefresh rotates the refresh token and returns a fresh session.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshTokenFrom(r)
	if raw == "" {
		writeUnauthorized(w, "refresh token is required")
		return
	}

	sess, err := s.auth.Refresh(r.Context(), raw, deviceInfo(r))
	if err != nil {
		s.clearSessionCookies(w)
		switch {
		case errors.Is(err, auth.ErrTokenReuse):
			writeUnauthorized(w, "refresh token was already used, session revoked")
		case errors.Is(err, auth.ErrTokenExpired):
			writeUnauthorized(w, "refresh token expired")
		case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked),
			errors.Is(err, auth.ErrUserInactive), errors.Is(err, auth.ErrUserNotFound):
			writeUnauthorized(w, "invalid refresh token")
		default:
			s.logger.Error("refresh failed", "error", err)
			writeInternalError(w, "refresh failed")
		}
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

// handleLogout revokes the session behind the refresh token and clears
// cookies. It succeeds even without a valid token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := refreshTokenFrom(r)
	if err := s.auth.Logout(r.Context(), raw); err != nil {
		s.logger.Error("logout failed", "error", err)
		writeInternalError(w, "logout failed")
		return
	}
	if raw != "" {
		s.recordAudit(audit.ActionLogout, "session", "", "", "", map[string]any{"ip": clientIP(r)})
	}
	s.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller with their permissions and scope summary.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	user, err := s.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		s.writeDomainError(w, r, "get current user", err)
		return
	}

	resp := map[string]any{
		"user":         user,
		"permissions":  auth.PermissionsForRole(user.Role),
		"session_id":   p.SessionID,
		"unrestricted": p.Scope == nil,
	}
	if p.Scope != nil {
		resp["project_ids"] = p.Scope.ProjectIDs
		resp["manage_project_ids"] = p.Scope.ManageProjectIDs
		resp["department_ids"] = p.Scope.DepartmentIDs
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRF mints a new CSRF token for the current cookie session.
func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.SessionID == "" {
		writeBadRequest(w, "CSRF tokens are only issued to session logins")
		return
	}
	token, err := auth.GenerateCSRFToken(s.secCfg.JWT.Secret, p.SessionID)
	if err != nil {
		writeInternalError(w, "failed to generate CSRF token")
		return
	}
	s.setCookie(w, cookieCSRF, token, "/", s.secCfg.RefreshTokenTTL(), false)
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// handleChangePassword sets a new password. Every session is revoked and a
// new one is opened for the caller.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	p := principalFrom(r.Context())

	if err := s.auth.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "current password is incorrect")
			return
		}
		s.writeDomainError(w, r, "change password", err)
		return
	}
	s.recordAudit(audit.ActionUpdate, "user", p.UserID, p.UserID, "", map[string]any{"field": "password"})

	user, err := s.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		s.writeDomainError(w, r, "change password", err)
		return
	}
	sess, err := s.auth.IssueSession(r.Context(), user, deviceInfo(r))
	if err != nil {
		s.logger.Error("issuing session after password change failed", "error", err)
		writeInternalError(w, "password changed, please log in again")
		return
	}
	s.writeSession(w, http.StatusOK, sess)
}

// handleListSessions lists the caller's live sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	tokens, err := s.auth.Sessions(r.Context(), p.UserID)
	if err != nil {
		s.writeDomainError(w, r, "list sessions", err)
		return
	}

	type sessionInfo struct {
		ID         string    `json:"id"`
		DeviceInfo string    `json:"device_info,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
		ExpiresAt  time.Time `json:"expires_at"`
		Current    bool      `json:"current"`
	}
	out := make([]sessionInfo, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, sessionInfo{
			ID:         t.FamilyID,
			DeviceInfo: t.DeviceInfo,
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
			Current:    t.FamilyID == p.SessionID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out, "count": len(out)})
}

// handleDeleteSession revokes one of the caller's sessions.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := s.auth.LogoutSession(r.Context(), p.UserID, id); err != nil {
		s.writeDomainError(w, r, "revoke session", err)
		return
	}
	s.recordAudit(audit.ActionLogout, "session", id, p.UserID, "", nil)
	if id == p.SessionID {
		s.clearSessionCookies(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListAPITokens lists the caller's integration tokens.
func (s *Server) handleListAPITokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.auth.ListAPITokens(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeDomainError(w, r, "list api tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens, "count": len(tokens)})
}

// handleCreateAPIToken issues an integration token. The raw value is
// returned once.
func (s *Server) handleCreateAPIToken(w http.ResponseWriter, r *http.Request) {
	var req createAPITokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 100 { //nolint:mnd // display name limit
		writeBadRequest(w, "name must be 1-100 characters")
		return
	}
	if req.ExpiresInDays < 0 || req.ExpiresInDays > maxAPITokenTTLDays {
		writeBadRequest(w, "expires_in_days must be between 0 and 366")
		return
	}

	p := principalFrom(r.Context())
	ttl := time.Duration(req.ExpiresInDays) * 24 * time.Hour
	raw, tok, err := s.auth.CreateAPIToken(r.Context(), p.UserID, req.Name, ttl)
	if err != nil {
		s.writeDomainError(w, r, "create api token", err)
		return
	}
	s.recordAudit(audit.ActionCreate, "api_token", tok.ID, p.UserID, "", map[string]any{"name": tok.Name})
	writeJSON(w, http.StatusCreated, map[string]any{"token": raw, "api_token": tok})
}

// handleRevokeAPIToken disables one of the caller's integration tokens.
func (s *Server) handleRevokeAPIToken(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := s.auth.RevokeAPIToken(r.Context(), p.UserID, id); err != nil {
		s.writeDomainError(w, r, "revoke api token", err)
		return
	}
	s.recordAudit(audit.ActionDelete, "api_token", id, p.UserID, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

// writeSession sets the session cookies and writes the session body.
func (s *Server) writeSession(w http.ResponseWriter, status int, sess *auth.Session) {
	csrf, err := auth.GenerateCSRFToken(s.secCfg.JWT.Secret, sess.SessionID)
	if err != nil {
		writeInternalError(w, "failed to generate CSRF token")
		return
	}

	now := s.now()
	s.setCookie(w, cookieAccess, sess.AccessToken, "/", sess.AccessExpiresAt.Sub(now), true)
	s.setCookie(w, cookieRefresh, sess.RefreshToken, refreshCookiePath, sess.RefreshExpiresAt.Sub(now), true)
	s.setCookie(w, cookieCSRF, csrf, "/", sess.RefreshExpiresAt.Sub(now), false)

	writeJSON(w, status, sessionResponse{
		User:         sess.User,
		SessionID:    sess.SessionID,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(sess.AccessExpiresAt.Sub(now).Seconds()),
		CSRFToken:    csrf,
	})
}

// setCookie writes a SameSite=Strict cookie. httpOnly is false only for
// the CSRF cookie, which the UI must read.
func (s *Server) setCookie(w http.ResponseWriter, name, value, path string, ttl time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.cfg.Cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   s.cfg.Cookies.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, c := range []struct {
		name, path string
		httpOnly   bool
	}{
		{cookieAccess, "/", true},
		{cookieRefresh, refreshCookiePath, true},
		{cookieCSRF, "/", false},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			Domain:   s.cfg.Cookies.Domain,
			MaxAge:   -1,
			Secure:   s.cfg.Cookies.Secure,
			HttpOnly: c.httpOnly,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// refreshTokenFrom reads the refresh token from the JSON body or cookie.
func refreshTokenFrom(r *http.Request) string {
	if r.Body != nil && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}
	if c, err := r.Cookie(cookieRefresh); err == nil {
		return c.Value
	}
	return ""
}

func deviceInfo(r *http.Request) string {
	ua := r.UserAgent()
	if len(ua) > maxDeviceInfoLength {
		ua = ua[:maxDeviceInfoLength]
	}
	return ua
}

// ─── WebSocket tickets ─────────────────────────────────────────────

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	expiresAt time.Time
	userID    string
	role      auth.Role
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

func (ts *ticketStore) len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.tickets)
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	ticket := generateTicket()

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		expiresAt: s.now().Add(ticketTTL),
		userID:    p.UserID,
		role:      p.Role,
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validateTicket checks if a ticket is valid and consumes it (single-use).
func (s *Server) validateTicket(ticket string) (ticketEntry, bool) {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	entry, ok := s.tickets.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(s.tickets.tickets, ticket)

	if !s.now().Before(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// cleanExpiredTickets removes expired tickets from the store.
func (s *Server) cleanExpiredTickets() {
	s.tickets.mu.Lock()
	defer s.tickets.mu.Unlock()

	now := s.now()
	for ticket, entry := range s.tickets.tickets {
		if now.After(entry.expiresAt) {
			delete(s.tickets.tickets, ticket)
		}
	}
}

// cleanTicketsLoop runs cleanExpiredTickets periodically until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanExpiredTickets()
		}
	}
}
