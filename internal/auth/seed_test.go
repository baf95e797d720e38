package auth

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedAdmin_CreatesOnEmptyDB(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	ctx := t.Context()

	password, err := SeedAdmin(ctx, users, fastHasher, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password == "" {
		t.Fatal("SeedAdmin() should return the generated password")
	}
	if err := ValidatePassword(password, 8); err != nil {
		t.Errorf("generated password fails policy: %v", err)
	}

	admin, err := users.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername(admin) error = %v", err)
	}
	if admin.Role != RoleAdmin || !admin.IsActive {
		t.Errorf("admin role=%q active=%v", admin.Role, admin.IsActive)
	}
	ok, err := VerifyPassword(password, admin.PasswordHash)
	if err != nil || !ok {
		t.Errorf("VerifyPassword(seed) = %v, %v", ok, err)
	}
}

func TestSeedAdmin_SkipsWhenUsersExist(t *testing.T) {
	db := testDB(t)
	seedTestUser(t, db, "someone", RoleStaff)
	users := NewUserRepository(db)

	password, err := SeedAdmin(t.Context(), users, fastHasher, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password != "" {
		t.Error("SeedAdmin() should skip when users exist")
	}
	n, _ := users.Count(t.Context())
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}
