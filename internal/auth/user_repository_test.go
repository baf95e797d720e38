package auth

import (
	"errors"
	"testing"
	"time"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := t.Context()

	user := &User{
		Username:        "jsmith",
		DisplayName:     "Jo Smith",
		Email:           "jo@example.com",
		PasswordHash:    "plain:x",
		Role:            RoleManager,
		HourlyRateCents: 8500,
		IsActive:        true,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "jsmith" || got.DisplayName != "Jo Smith" || got.Email != "jo@example.com" {
		t.Errorf("got %+v", got)
	}
	if got.Role != RoleManager {
		t.Errorf("Role = %q, want manager", got.Role)
	}
	if got.HourlyRateCents != 8500 {
		t.Errorf("HourlyRateCents = %d, want 8500", got.HourlyRateCents)
	}
	if got.LockedUntil != nil || got.LastLoginAt != nil {
		t.Error("new user should have no lock or last login")
	}

	byName, err := repo.GetByUsername(ctx, "JSMITH")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if byName.ID != user.ID {
		t.Errorf("GetByUsername() ID = %q, want %q", byName.ID, user.ID)
	}
}

func TestUserRepository_CreateErrors(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := t.Context()
	seedTestUser(t, db, "taken", RoleStaff)

	err := repo.Create(ctx, &User{Username: "taken", DisplayName: "x", PasswordHash: "h", Role: RoleStaff})
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("duplicate Create() error = %v, want ErrUsernameExists", err)
	}
	err = repo.Create(ctx, &User{Username: "new", DisplayName: "x", PasswordHash: "h", Role: "owner"})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role Create() error = %v, want ErrInvalidRole", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := t.Context()

	if _, err := repo.GetByID(ctx, "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Update(ctx, &User{ID: "usr-missing", Role: RoleStaff}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(ctx, "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_ListFilter(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := t.Context()

	seedTestUser(t, db, "alice", RoleStaff)
	seedTestUser(t, db, "bob", RoleManager)
	carol := seedTestUser(t, db, "carol", RoleStaff)
	carol.IsActive = false
	if err := repo.Update(ctx, carol); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tests := []struct {
		name   string
		filter UserFilter
		want   int
	}{
		{"all", UserFilter{}, 3},
		{"staff", UserFilter{Role: RoleStaff}, 2},
		{"active staff", UserFilter{Role: RoleStaff, ActiveOnly: true}, 1},
		{"query", UserFilter{Query: "bo"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(users) != tt.want {
				t.Errorf("List() returned %d users, want %d", len(users), tt.want)
			}
		})
	}
}

func TestUserRepository_LoginFailureLocks(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := t.Context()
	user := seedTestUser(t, db, "locky", RoleStaff)

	for i := 1; i < 3; i++ {
		until, err := repo.RecordLoginFailure(ctx, user.ID, 3, 15*time.Minute)
		if err != nil {
			t.Fatalf("RecordLoginFailure() error = %v", err)
		}
		if until != nil {
			t.Fatalf("attempt %d locked the account early", i)
		}
	}
	until, err := repo.RecordLoginFailure(ctx, user.ID, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("RecordLoginFailure() error = %v", err)
	}
	if until == nil {
		t.Fatal("third failure should lock the account")
	}

	got, _ := repo.GetByID(ctx, user.ID)
	if !got.IsLocked(time.Now()) {
		t.Error("user should be locked")
	}
	if got.FailedLoginCount != 0 {
		t.Errorf("FailedLoginCount = %d, want reset to 0 after lock", got.FailedLoginCount)
	}

	if err := repo.RecordLoginSuccess(ctx, user.ID); err != nil {
		t.Fatalf("RecordLoginSuccess() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, user.ID)
	if got.IsLocked(time.Now()) || got.LastLoginAt == nil {
		t.Errorf("after success: locked=%v last_login=%v", got.IsLocked(time.Now()), got.LastLoginAt)
	}
}

func TestUserRepository_UpdatePasswordClearsLock(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := t.Context()
	user := seedTestUser(t, db, "reset", RoleStaff)

	if _, err := repo.RecordLoginFailure(ctx, user.ID, 1, time.Hour); err != nil {
		t.Fatalf("RecordLoginFailure() error = %v", err)
	}
	if err := repo.UpdatePassword(ctx, user.ID, "plain:new"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, user.ID)
	if got.PasswordHash != "plain:new" || got.LockedUntil != nil {
		t.Errorf("hash=%q locked_until=%v", got.PasswordHash, got.LockedUntil)
	}
}

func TestUserRepository_DeleteCascadesTokens(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	tokens := NewTokenRepository(db)
	ctx := t.Context()
	user := seedTestUser(t, db, "gone", RoleStaff)

	if err := tokens.Create(ctx, &RefreshToken{UserID: user.ID, TokenHash: HashToken("x"), ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Create token error = %v", err)
	}
	if err := users.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM refresh_tokens").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("refresh_tokens rows = %d, want 0 after cascade", n)
	}
}

func TestIsValidUsername(t *testing.T) {
	valid := []string{"a", "jo.smith", "x_y-z", "A1"}
	invalid := []string{"", "has space", "émile", "a/b"}
	for _, u := range valid {
		if !IsValidUsername(u) {
			t.Errorf("IsValidUsername(%q) = false", u)
		}
	}
	for _, u := range invalid {
		if IsValidUsername(u) {
			t.Errorf("IsValidUsername(%q) = true", u)
		}
	}
}
