package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APITokenPrefix marks raw integration tokens so they can be told apart
// from JWTs in an Authorization header.
const APITokenPrefix = "pmk_"

// APITokenRepository persists integration tokens.
type APITokenRepository interface {
	Create(ctx context.Context, token *APIToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*APIToken, error)
	ListByUser(ctx context.Context, userID string) ([]APIToken, error)
	Revoke(ctx context.Context, userID, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}

// SQLiteAPITokenRepository implements APITokenRepository using SQLite.
type SQLiteAPITokenRepository struct {
	db *sql.DB
}

// NewAPITokenRepository creates a new SQLite-backed API token repository.
func NewAPITokenRepository(db *sql.DB) *SQLiteAPITokenRepository {
	return &SQLiteAPITokenRepository{db: db}
}

// GenerateAPIToken returns a new raw token with the pmk_ prefix.
func GenerateAPIToken() (string, error) {
	b := make([]byte, 24) //nolint:mnd // 192-bit token
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	return APITokenPrefix + hex.EncodeToString(b), nil
}

// IsAPIToken reports whether raw looks like an integration token.
func IsAPIToken(raw string) bool {
	return strings.HasPrefix(raw, APITokenPrefix)
}

const apiTokenColumns = "id, user_id, name, token_hash, expires_at, last_used_at, revoked, created_at"

// Create inserts a new API token. The ID is generated if empty.
func (r *SQLiteAPITokenRepository) Create(ctx context.Context, token *APIToken) error {
	if token.ID == "" {
		token.ID = "tok-" + uuid.NewString()[:16]
	}
	token.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var expires sql.NullString
	if token.ExpiresAt != nil {
		expires = nullString(formatTime(*token.ExpiresAt))
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO api_tokens ("+apiTokenColumns+") VALUES (?, ?, ?, ?, ?, NULL, 0, ?)",
		token.ID, token.UserID, token.Name, token.TokenHash, expires, formatTime(token.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating api token: %w", err)
	}
	return nil
}

// GetByTokenHash looks up a token during authentication. Revoked and
// expired tokens are reported as ErrTokenRevoked and ErrTokenExpired.
func (r *SQLiteAPITokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*APIToken, error) {
	t, err := scanAPIToken(r.db.QueryRowContext(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE token_hash = ?", tokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if t.Revoked {
		return nil, ErrTokenRevoked
	}
	if t.ExpiresAt != nil && !time.Now().Before(*t.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// ListByUser returns all tokens owned by a user, newest first.
func (r *SQLiteAPITokenRepository) ListByUser(ctx context.Context, userID string) ([]APIToken, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing api tokens: %w", err)
	}
	defer rows.Close()

	tokens := []APIToken{}
	for rows.Next() {
		t, err := scanAPIToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api tokens: %w", err)
	}
	return tokens, nil
}

// Revoke disables a token owned by userID.
func (r *SQLiteAPITokenRepository) Revoke(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE api_tokens SET revoked = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("revoking api token: %w", err)
	}
	return requireAffected(result, ErrTokenNotFound)
}

// TouchLastUsed stamps last_used_at.
func (r *SQLiteAPITokenRepository) TouchLastUsed(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE api_tokens SET last_used_at = ? WHERE id = ?", formatTime(time.Now()), id); err != nil {
		return fmt.Errorf("updating api token last use: %w", err)
	}
	return nil
}

func scanAPIToken(s scanner) (*APIToken, error) {
	var t APIToken
	var expires, lastUsed sql.NullString
	var revoked int
	var createdAt string
	if err := s.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &expires, &lastUsed, &revoked, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning api token: %w", err)
	}
	t.Revoked = revoked != 0
	t.ExpiresAt = parseNullTime(expires)
	t.LastUsedAt = parseNullTime(lastUsed)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
