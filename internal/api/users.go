package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
)

// ─── Request/Response Types ────────────────────────────────────────

type createUserRequest struct {
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name"`
	Email           string    `json:"email,omitempty"`
	Password        string    `json:"password"`
	Role            auth.Role `json:"role"`
	DepartmentID    string    `json:"department_id,omitempty"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
}

type updateUserRequest struct {
	DisplayName     *string    `json:"display_name,omitempty"`
	Email           *string    `json:"email,omitempty"`
	Role            *auth.Role `json:"role,omitempty"`
	DepartmentID    *string    `json:"department_id,omitempty"`
	HourlyRateCents *int64     `json:"hourly_rate_cents,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// directoryEntry is the public view of a user, used by pickers.
type directoryEntry struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Role         auth.Role `json:"role"`
	DepartmentID string    `json:"department_id,omitempty"`
}

const maxDisplayNameLength = 100

// ─── Handlers ──────────────────────────────────────────────────────

// handleListUsers returns user accounts, optionally filtered.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	users, err := s.users.List(r.Context(), auth.UserFilter{
		Role:         auth.Role(q.Get("role")),
		DepartmentID: q.Get("department_id"),
		ActiveOnly:   activeOnly,
		Query:        q.Get("q"),
	})
	if err != nil {
		s.writeDomainError(w, r, "list users", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleUserDirectory lists active users with their public fields only.
func (s *Server) handleUserDirectory(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context(), auth.UserFilter{ActiveOnly: true, Query: r.URL.Query().Get("q")})
	if err != nil {
		s.writeDomainError(w, r, "list users", err)
		return
	}
	entries := make([]directoryEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, directoryEntry{
			ID:           u.ID,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			Role:         u.Role,
			DepartmentID: u.DepartmentID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": entries, "count": len(entries)})
}

// handleCreateUser creates a new user account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Username == "" || req.Password == "" || req.DisplayName == "" {
		writeBadRequest(w, "username, password and display_name are required")
		return
	}
	if !auth.IsValidUsername(req.Username) {
		writeBadRequest(w, "username may only contain letters, digits, dots, hyphens and underscores (max 64)")
		return
	}
	if len(req.DisplayName) > maxDisplayNameLength {
		writeBadRequest(w, "display_name is too long")
		return
	}
	if req.HourlyRateCents < 0 {
		writeBadRequest(w, "hourly_rate_cents cannot be negative")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleStaff
	}
	if !auth.IsValidRole(req.Role) {
		writeBadRequest(w, "invalid role: must be staff, manager or admin")
		return
	}
	if !s.departmentExists(w, r, req.DepartmentID) {
		return
	}

	hash, err := s.auth.NewPasswordHash(req.Password)
	if err != nil {
		s.writeDomainError(w, r, "create user", err)
		return
	}

	p := principalFrom(r.Context())
	user := &auth.User{
		Username:        req.Username,
		DisplayName:     req.DisplayName,
		Email:           strings.TrimSpace(req.Email),
		PasswordHash:    hash,
		Role:            req.Role,
		DepartmentID:    req.DepartmentID,
		HourlyRateCents: req.HourlyRateCents,
		IsActive:        true,
		CreatedBy:       p.UserID,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.writeDomainError(w, r, "create user", err)
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role, "created_by", p.UserID)
	s.emit(r, "user", audit.ActionCreate, user.ID, "", map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser modifies a user's mutable fields. Admins cannot demote
// or deactivate themselves.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := principalFrom(r.Context())

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "update user", err)
		return
	}

	if id == p.UserID {
		if req.Role != nil && *req.Role != user.Role {
			writeForbidden(w, "cannot change your own role")
			return
		}
		if req.IsActive != nil && !*req.IsActive {
			writeForbidden(w, "cannot deactivate your own account")
			return
		}
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" || len(name) > maxDisplayNameLength {
			writeBadRequest(w, "display_name must be 1-100 characters")
			return
		}
		user.DisplayName = name
	}
	if req.HourlyRateCents != nil && *req.HourlyRateCents < 0 {
		writeBadRequest(w, "hourly_rate_cents cannot be negative")
		return
	}
	if req.DepartmentID != nil && !s.departmentExists(w, r, *req.DepartmentID) {
		return
	}

	changed := map[string]any{}
	if req.Role != nil && *req.Role != user.Role {
		changed["role"] = *req.Role
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		changed["is_active"] = *req.IsActive
	}
	setValue(&user.Email, req.Email)
	setValue(&user.Role, req.Role)
	setValue(&user.DepartmentID, req.DepartmentID)
	setValue(&user.HourlyRateCents, req.HourlyRateCents)
	setValue(&user.IsActive, req.IsActive)

	if err := s.users.Update(r.Context(), user); err != nil {
		s.writeDomainError(w, r, "update user", err)
		return
	}

	// A deactivated account keeps no sessions.
	if !user.IsActive {
		for _, sess := range s.sessionsOf(r, user.ID) {
			if err := s.auth.LogoutSession(r.Context(), user.ID, sess); err != nil {
				s.logger.Warn("revoking session of deactivated user failed", "user_id", user.ID, "error", err)
			}
		}
	}

	s.emit(r, "user", audit.ActionUpdate, user.ID, "", changed)
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == principalFrom(r.Context()).UserID {
		writeForbidden(w, "cannot delete your own account")
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, "delete user", err)
		return
	}
	s.emit(r, "user", audit.ActionDelete, id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleResetPassword sets a new password for another user and signs them
// out everywhere.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == principalFrom(r.Context()).UserID {
		writeForbidden(w, "use change-password for your own account")
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.auth.SetPassword(r.Context(), id, req.Password); err != nil {
		s.writeDomainError(w, r, "reset password", err)
		return
	}
	s.emit(r, "user", audit.ActionUpdate, id, "", map[string]any{"field": "password"})
	w.WriteHeader(http.StatusNoContent)
}

// sessionsOf returns the session ids of a user, logging failures.
func (s *Server) sessionsOf(r *http.Request, userID string) []string {
	tokens, err := s.auth.Sessions(r.Context(), userID)
	if err != nil {
		s.logger.Warn("listing sessions failed", "user_id", userID, "error", err)
		return nil
	}
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.FamilyID)
	}
	return ids
}

// departmentExists writes a 422 when a non-empty department id is unknown.
func (s *Server) departmentExists(w http.ResponseWriter, r *http.Request, id string) bool {
	if id == "" {
		return true
	}
	if _, err := s.departments.Get(r.Context(), id); err != nil {
		if matchAny(err, notFoundErrors) {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "unknown department_id")
			return false
		}
		s.writeDomainError(w, r, "get department", err)
		return false
	}
	return true
}
