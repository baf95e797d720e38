package auth

import (
	"database/sql"
	"testing"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database/dbtest"
)

const testSecret = "test-secret-key-at-least-32-chars!"

// testDB returns a migrated temp database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbtest.SQL(t)
}

// fastHasher keeps repository tests quick. Argon2id is covered in password_test.go.
var fastHasher = Hasher{Algorithm: AlgorithmBcrypt, BcryptCost: 4}

// seedTestUser creates an active user whose password is "password123".
func seedTestUser(t *testing.T, db *sql.DB, username string, role Role) *User {
	t.Helper()

	hash, err := fastHasher.Hash("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := NewUserRepository(db).Create(t.Context(), user); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return user
}
