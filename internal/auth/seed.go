package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes in the seed admin password.
const seedPasswordBytes = 12

// SeedAdmin creates the first admin account when the user table is empty.
// The generated password is logged once and must be changed on first login.
// Returns the generated password, or "" when seeding was skipped.
func SeedAdmin(ctx context.Context, users UserRepository, hasher Hasher, logger *slog.Logger) (string, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Debug("users exist, skipping admin seed")
		return "", nil
	}

	b := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(b); err != nil { //nolint:govet // shadow
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	// The trailing digit keeps the generated value inside the password policy.
	password := hex.EncodeToString(b) + "a1"

	hash, err := hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"username", admin.Username,
		"initial_login", password,
		"action_required", "change this password immediately",
	)
	return password, nil
}
