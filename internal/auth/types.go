package auth

import (
	"errors"
	"regexp"
	"slices"
	"time"
)

// usernamePattern allows alphanumerics, dots, hyphens and underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleStaff works on projects they are a member of, manage or hold tasks in.
	RoleStaff Role = "staff"

	// RoleManager runs projects. Sees every project in the departments they
	// manage and every project they manage or belong to.
	RoleManager Role = "manager"

	// RoleAdmin has full control over users, departments and all projects.
	// Bypasses project scoping.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of assignable roles.
var ValidRoles = []Role{RoleStaff, RoleManager, RoleAdmin}

// IsValidRole returns true if r is an assignable role.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// User represents an authenticated account.
type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	DisplayName      string     `json:"display_name"`
	Email            string     `json:"email,omitempty"`
	PasswordHash     string     `json:"-"` // never serialised
	Role             Role       `json:"role"`
	DepartmentID     string     `json:"department_id,omitempty"`
	HourlyRateCents  int64      `json:"hourly_rate_cents"`
	IsActive         bool       `json:"is_active"`
	FailedLoginCount int        `json:"failed_login_count"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedBy        string     `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsLocked reports whether the account is locked at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RefreshToken is a stored refresh token. Tokens issued from one login share
// a FamilyID, which doubles as the session id.
type RefreshToken struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FamilyID   string    `json:"family_id"`
	TokenHash  string    `json:"-"` // never serialised
	DeviceInfo string    `json:"device_info,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `json:"revoked"`
	CreatedAt  time.Time `json:"created_at"`
}

// APIToken is a long-lived credential for scripts and integrations.
// Requests authenticated with it act as the owning user.
type APIToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"` // never serialised
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Revoked    bool       `json:"revoked"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ProjectScope holds the resolved project visibility for a request.
// A nil ProjectScope means unrestricted access (admin).
type ProjectScope struct {
	// ProjectIDs is every project the user can see.
	ProjectIDs []string

	// ManageProjectIDs is the subset of ProjectIDs the user can change
	// (edit, approve, delete children).
	ManageProjectIDs []string

	// DepartmentIDs lists departments the user manages.
	DepartmentIDs []string
}

// CanAccessProject returns true if the project is visible in this scope.
func (s *ProjectScope) CanAccessProject(projectID string) bool {
	if s == nil {
		return true
	}
	return slices.Contains(s.ProjectIDs, projectID)
}

// CanManageProject returns true if the project can be changed in this scope.
func (s *ProjectScope) CanManageProject(projectID string) bool {
	if s == nil {
		return true
	}
	return slices.Contains(s.ManageProjectIDs, projectID)
}

// ManagesDepartment returns true if the scope covers the whole department.
func (s *ProjectScope) ManagesDepartment(departmentID string) bool {
	if s == nil {
		return true
	}
	return departmentID != "" && slices.Contains(s.DepartmentIDs, departmentID)
}

// Restricted returns the visible project IDs, or nil when unrestricted.
// A non-nil empty slice means nothing is visible.
func (s *ProjectScope) Restricted() []string {
	if s == nil {
		return nil
	}
	if s.ProjectIDs == nil {
		return []string{}
	}
	return s.ProjectIDs
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenReuse         = errors.New("refresh token reuse detected")
	ErrTokenNotFound      = errors.New("token not found")
	ErrCSRFInvalid        = errors.New("invalid csrf token")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrSelfModification   = errors.New("cannot modify own account in this way")
)
