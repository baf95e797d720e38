package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAPITokenRepository_Lifecycle(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "integrator", RoleStaff)
	other := seedTestUser(t, db, "other", RoleStaff)
	repo := NewAPITokenRepository(db)
	ctx := t.Context()

	raw, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken() error = %v", err)
	}
	if !IsAPIToken(raw) {
		t.Fatalf("token %q lacks prefix", raw)
	}

	tok := &APIToken{UserID: user.ID, Name: "ci", TokenHash: HashToken(raw)}
	if err := repo.Create(ctx, tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByTokenHash(ctx, HashToken(raw))
	if err != nil {
		t.Fatalf("GetByTokenHash() error = %v", err)
	}
	if got.ID != tok.ID || got.Name != "ci" || got.ExpiresAt != nil {
		t.Errorf("got %+v", got)
	}

	if err := repo.TouchLastUsed(ctx, tok.ID); err != nil {
		t.Fatalf("TouchLastUsed() error = %v", err)
	}
	list, _ := repo.ListByUser(ctx, user.ID)
	if len(list) != 1 || list[0].LastUsedAt == nil {
		t.Errorf("ListByUser() = %+v", list)
	}

	if err := repo.Revoke(ctx, other.ID, tok.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Revoke() by non-owner error = %v, want ErrTokenNotFound", err)
	}
	if err := repo.Revoke(ctx, user.ID, tok.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := repo.GetByTokenHash(ctx, HashToken(raw)); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("revoked lookup error = %v, want ErrTokenRevoked", err)
	}
}

func TestAPITokenRepository_Expired(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "integrator", RoleStaff)
	repo := NewAPITokenRepository(db)

	past := time.Now().Add(-time.Hour)
	tok := &APIToken{UserID: user.ID, Name: "old", TokenHash: HashToken("pmk_old"), ExpiresAt: &past}
	if err := repo.Create(t.Context(), tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := repo.GetByTokenHash(t.Context(), HashToken("pmk_old")); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
	if _, err := repo.GetByTokenHash(t.Context(), HashToken("pmk_none")); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}
