package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, filter UserFilter) ([]User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (*time.Time, error)
	RecordLoginSuccess(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// UserFilter narrows List results. Zero values match everything.
type UserFilter struct {
	Role         Role
	DepartmentID string
	ActiveOnly   bool
	Query        string // matches username, display name or email
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `id, username, display_name, email, password_hash, role, department_id,
	hourly_rate_cents, is_active, failed_login_count, locked_until, last_login_at,
	created_by, created_at, updated_at`

// Create inserts a new user account. The ID is generated if empty.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}
	if !IsValidRole(user.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, user.Role)
	}

	now := time.Now().UTC().Truncate(time.Second)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, email, password_hash, role, department_id,
			hourly_rate_cents, is_active, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.DisplayName, nullString(user.Email),
		user.PasswordHash, string(user.Role), nullString(user.DepartmentID),
		user.HourlyRateCents, boolToInt(user.IsActive),
		nullString(user.CreatedBy), formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? COLLATE NOCASE", username)
}

// List returns users matching the filter ordered by display name.
func (r *SQLiteUserRepository) List(ctx context.Context, filter UserFilter) ([]User, error) {
	var conditions []string
	var args []any
	if filter.Role != "" {
		conditions = append(conditions, "role = ?")
		args = append(args, string(filter.Role))
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, "(username LIKE ? OR display_name LIKE ? OR email LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users"+where+" ORDER BY display_name COLLATE NOCASE", args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Update modifies a user's mutable profile fields. Password and login
// counters have their own methods.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	if !IsValidRole(user.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, user.Role)
	}
	now := time.Now().UTC().Truncate(time.Second)
	user.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, email = ?, role = ?, department_id = ?,
			hourly_rate_cents = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		user.DisplayName, nullString(user.Email), string(user.Role), nullString(user.DepartmentID),
		user.HourlyRateCents, boolToInt(user.IsActive), formatTime(now), user.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// UpdatePassword changes a user's password hash and clears any lockout.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, failed_login_count = 0, locked_until = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// RecordLoginFailure increments the failure counter. When it reaches
// maxAttempts the account is locked for lockFor and the counter resets.
// Returns the lock expiry when this failure triggered a lock.
func (r *SQLiteUserRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockFor time.Duration) (*time.Time, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET failed_login_count = failed_login_count + 1 WHERE id = ?
		 RETURNING failed_login_count`, id,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("recording login failure: %w", err)
	}

	if maxAttempts <= 0 || count < maxAttempts {
		return nil, nil
	}

	until := time.Now().UTC().Add(lockFor).Truncate(time.Second)
	if _, err := r.db.ExecContext(ctx,
		"UPDATE users SET failed_login_count = 0, locked_until = ? WHERE id = ?",
		formatTime(until), id,
	); err != nil {
		return nil, fmt.Errorf("locking account: %w", err)
	}
	return &until, nil
}

// RecordLoginSuccess resets lockout state and stamps last_login_at.
func (r *SQLiteUserRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_login_count = 0, locked_until = NULL, last_login_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("recording login success: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// Delete removes a user account. Refresh tokens cascade.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireAffected(result, ErrUserNotFound)
}

// Count returns the total number of user accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUserFrom(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUserFrom(s scanner) (*User, error) {
	var u User
	var email, dept, lockedUntil, lastLogin, createdBy sql.NullString
	var role, createdAt, updatedAt string
	var isActive int

	err := s.Scan(&u.ID, &u.Username, &u.DisplayName, &email, &u.PasswordHash, &role, &dept,
		&u.HourlyRateCents, &isActive, &u.FailedLoginCount, &lockedUntil, &lastLogin,
		&createdBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	u.Email = email.String
	u.DepartmentID = dept.String
	u.CreatedBy = createdBy.String
	u.IsActive = isActive != 0
	u.LockedUntil = parseNullTime(lockedUntil)
	u.LastLoginAt = parseNullTime(lastLogin)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

// nullString converts an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s) //nolint:errcheck // format is controlled
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func requireAffected(result sql.Result, notFound error) error {
	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
