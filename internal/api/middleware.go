package api

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/auth"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// ctxKeyRequestID is the context key for the request ID.
	ctxKeyRequestID contextKey = "request_id"

	// ctxKeyPrincipal is the context key for the authenticated caller.
	ctxKeyPrincipal contextKey = "principal"
)

// Cookie and header names.
const (
	cookieAccess  = "pmdesk_access"
	cookieRefresh = "pmdesk_refresh"
	cookieCSRF    = "pmdesk_csrf"
	headerCSRF    = "X-CSRF-Token"
)

// principal is the authenticated caller of a request.
type principal struct {
	UserID       string
	Role         auth.Role
	DepartmentID string
	// SessionID is the refresh family; empty for API tokens.
	SessionID string
	// ViaCookie is true when the access token came from the session cookie,
	// which makes the request subject to CSRF checks.
	ViaCookie  bool
	APITokenID string
	// Scope is nil for unrestricted callers.
	Scope *auth.ProjectScope
}

// principalFrom returns the caller stored by authMiddleware.
// Handlers behind authMiddleware can rely on it being non-nil.
func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*principal) //nolint:errcheck // nil on unauthenticated routes
	return p
}

// requestIDMiddleware generates a unique request ID for each request.
// If the client sends an X-Request-ID header, it is used; otherwise one is generated.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each HTTP request with method, path, status and
// duration, and records it in InfluxDB when enabled.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		elapsed := time.Since(start)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", r.Context().Value(ctxKeyRequestID),
		}
		if p := principalFrom(r.Context()); p != nil {
			attrs = append(attrs, "user_id", p.UserID)
		}
		s.logger.Info("http request", attrs...)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.influx.WriteRequest(r.Method, route, wrapped.status, elapsed)
	})
}

// recoveryMiddleware catches panics in handlers and returns a 500 response.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(err)
				}
				s.logger.Error("panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", r.Context().Value(ctxKeyRequestID),
				)
				writeInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles Cross-Origin Resource Sharing headers.
// Credentials are only allowed for explicitly listed origins; a wildcard or
// an empty list answers with "*" and no credentials.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.isAllowedOrigin(origin) {
			if s.isListedOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", joinOrDefault(s.cfg.CORS.AllowedMethods, "GET, POST, PUT, PATCH, DELETE, OPTIONS"))
			w.Header().Set("Access-Control-Allow-Headers", joinOrDefault(s.cfg.CORS.AllowedHeaders, "Authorization, Content-Type, X-Request-ID, X-CSRF-Token"))
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// bodySizeLimitMiddleware limits the size of incoming request bodies.
func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies the per-IP request budget.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiLimiter != nil {
			if ok, retry := s.apiLimiter.Allow(clientIP(r)); !ok {
				writeRateLimited(w, retry)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware authenticates the caller and resolves their project scope.
//
// Accepted credentials, in order: "Authorization: Bearer" carrying a JWT
// access token or a pmk_ API token, then the pmdesk_access cookie.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authenticate(r)
		if err != nil {
			msg := "authentication required"
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				msg = "access token expired"
			case errors.Is(err, auth.ErrUserInactive):
				msg = "account is inactive"
			case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked):
				msg = "invalid token"
			}
			writeUnauthorized(w, msg)
			return
		}

		scope, err := s.scopes.ResolveProjectScope(r.Context(), p.UserID, p.Role)
		if err != nil {
			s.logger.Error("resolving project scope failed", "user_id", p.UserID, "error", err)
			writeInternalError(w, "failed to resolve access scope")
			return
		}
		p.Scope = scope

		ctx := context.WithValue(r.Context(), ctxKeyPrincipal, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(r *http.Request) (*principal, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || raw == "" {
			return nil, auth.ErrTokenInvalid
		}
		if auth.IsAPIToken(raw) {
			user, tok, err := s.auth.AuthenticateAPIToken(r.Context(), raw)
			if err != nil {
				return nil, err
			}
			return &principal{
				UserID:       user.ID,
				Role:         user.Role,
				DepartmentID: user.DepartmentID,
				APITokenID:   tok.ID,
			}, nil
		}
		return s.principalFromJWT(r.Context(), raw, false)
	}

	if c, err := r.Cookie(cookieAccess); err == nil && c.Value != "" {
		return s.principalFromJWT(r.Context(), c.Value, true)
	}
	return nil, auth.ErrTokenInvalid
}

// principalFromJWT verifies the token and then reloads the user, so role
// changes, deactivation and logout apply before the token expires.
func (s *Server) principalFromJWT(ctx context.Context, raw string, viaCookie bool) (*principal, error) {
	claims, err := auth.ParseToken(raw, s.secCfg.JWT.Secret)
	if err != nil {
		return nil, err
	}
	user, err := s.auth.AuthenticateAccess(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &principal{
		UserID:       user.ID,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		SessionID:    claims.SessionID,
		ViaCookie:    viaCookie,
	}, nil
}

// csrfMiddleware enforces the double-submit token on unsafe methods for
// cookie-authenticated requests. Must run after authMiddleware.
func (s *Server) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		if s.secCfg.CSRF.Enabled && p != nil && p.ViaCookie && !isSafeMethod(r.Method) {
			if !s.validCSRF(r, p.SessionID) {
				writeForbidden(w, "missing or invalid CSRF token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// validCSRF checks the header against the cookie and the session binding.
func (s *Server) validCSRF(r *http.Request, sessionID string) bool {
	header := r.Header.Get(headerCSRF)
	c, err := r.Cookie(cookieCSRF)
	if header == "" || err != nil || c.Value == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(header), []byte(c.Value)) != 1 {
		return false
	}
	return auth.VerifyCSRFToken(s.secCfg.JWT.Secret, sessionID, header)
}

// requirePermission rejects callers whose role lacks perm.
func (s *Server) requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principalFrom(r.Context())
			if p == nil || !auth.HasPermission(p.Role, perm) {
				writeForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// isAllowedOrigin checks if the origin is in the allowed list.
// An empty list allows all origins (dev mode).
func (s *Server) isAllowedOrigin(origin string) bool {
	if len(s.cfg.CORS.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.CORS.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isListedOrigin reports an exact, non-wildcard match.
func (s *Server) isListedOrigin(origin string) bool {
	return slices.Contains(s.cfg.CORS.AllowedOrigins, origin)
}

// clientIP is the peer address without port. Forwarding headers are not
// trusted; deploy behind a proxy that sets RemoteAddr if needed.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets WebSocket upgrades pass through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// requestIDBytes is the number of random bytes used for request IDs.
const requestIDBytes = 8

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 64

// generateRequestID creates a random hex request ID.
func generateRequestID() string {
	b := make([]byte, requestIDBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// joinOrDefault joins a string slice with ", " or returns the default if empty.
func joinOrDefault(values []string, defaultVal string) string {
	if len(values) == 0 {
		return defaultVal
	}
	return strings.Join(values, ", ")
}
