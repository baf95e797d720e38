package auth

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func createToken(t *testing.T, repo *SQLiteTokenRepository, userID, raw string, expires time.Time) *RefreshToken {
	t.Helper()
	rt := &RefreshToken{UserID: userID, TokenHash: HashToken(raw), DeviceInfo: "test", ExpiresAt: expires}
	if err := repo.Create(t.Context(), rt); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return rt
}

func TestTokenRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "tokenuser", RoleStaff)
	repo := NewTokenRepository(db)

	rt := createToken(t, repo, user.ID, "raw-1", time.Now().Add(time.Hour))
	if rt.ID == "" || rt.FamilyID == "" {
		t.Fatal("Create() should generate ID and FamilyID")
	}

	got, err := repo.GetByTokenHash(t.Context(), HashToken("raw-1"))
	if err != nil {
		t.Fatalf("GetByTokenHash() error = %v", err)
	}
	if got.ID != rt.ID || got.UserID != user.ID || got.DeviceInfo != "test" || got.Revoked {
		t.Errorf("got %+v", got)
	}

	if _, err := repo.GetByTokenHash(t.Context(), HashToken("nope")); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("unknown hash error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenRepository_Rotate(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "rotator", RoleStaff)
	repo := NewTokenRepository(db)
	ctx := t.Context()

	old := createToken(t, repo, user.ID, "first", time.Now().Add(time.Hour))
	next := &RefreshToken{UserID: user.ID, TokenHash: HashToken("second"), ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.RotateRefreshToken(ctx, old.ID, next); err != nil {
		t.Fatalf("RotateRefreshToken() error = %v", err)
	}
	if next.FamilyID != old.FamilyID {
		t.Errorf("successor FamilyID = %q, want %q", next.FamilyID, old.FamilyID)
	}

	stored, _ := repo.GetByTokenHash(ctx, HashToken("first"))
	if !stored.Revoked {
		t.Error("consumed token should be revoked")
	}

	// A rotated session still lists once and stays active.
	if active, _ := repo.ListActiveByUser(ctx, user.ID); len(active) != 1 || active[0].ID != next.ID {
		t.Errorf("ListActiveByUser() = %+v, want only the successor", active)
	}
	if ok, err := repo.FamilyActive(ctx, user.ID, old.FamilyID); err != nil || !ok {
		t.Errorf("FamilyActive() = %v, %v; want true", ok, err)
	}

	// Rotating the consumed token again is reuse: the whole family dies.
	again := &RefreshToken{UserID: user.ID, TokenHash: HashToken("third"), ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.RotateRefreshToken(ctx, old.ID, again); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("second rotation error = %v, want ErrTokenReuse", err)
	}
	successor, _ := repo.GetByTokenHash(ctx, HashToken("second"))
	if !successor.Revoked {
		t.Error("successor should be revoked after reuse")
	}
	if ok, _ := repo.FamilyActive(ctx, user.ID, old.FamilyID); ok {
		t.Error("FamilyActive() = true after reuse")
	}
}

func TestTokenRepository_ConcurrentRotation(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "racer", RoleStaff)
	repo := NewTokenRepository(db)
	ctx := t.Context()

	old := createToken(t, repo, user.ID, "contended", time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := &RefreshToken{
				UserID:    user.ID,
				TokenHash: HashToken("next-" + string(rune('a'+i))),
				ExpiresAt: time.Now().Add(time.Hour),
			}
			errs <- repo.RotateRefreshToken(ctx, old.ID, next)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, reuse int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrTokenReuse):
			reuse++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || reuse != 1 {
		t.Errorf("ok=%d reuse=%d, want exactly one of each", ok, reuse)
	}

	active, err := repo.ListActiveByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active tokens = %d, want 0 after reuse", len(active))
	}
}

func TestTokenRepository_SessionsAndRevocation(t *testing.T) {
	db := testDB(t)
	alice := seedTestUser(t, db, "alice", RoleStaff)
	bob := seedTestUser(t, db, "bob", RoleStaff)
	repo := NewTokenRepository(db)
	ctx := t.Context()

	a1 := createToken(t, repo, alice.ID, "a1", time.Now().Add(time.Hour))
	createToken(t, repo, alice.ID, "a2", time.Now().Add(time.Hour))
	createToken(t, repo, alice.ID, "expired", time.Now().Add(-time.Hour))

	active, _ := repo.ListActiveByUser(ctx, alice.ID)
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}

	if err := repo.RevokeFamilyForUser(ctx, bob.ID, a1.FamilyID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("revoking another user's session error = %v, want ErrTokenNotFound", err)
	}
	if err := repo.RevokeFamilyForUser(ctx, alice.ID, a1.FamilyID); err != nil {
		t.Fatalf("RevokeFamilyForUser() error = %v", err)
	}
	active, _ = repo.ListActiveByUser(ctx, alice.ID)
	if len(active) != 1 {
		t.Errorf("active = %d, want 1", len(active))
	}

	if err := repo.RevokeAllForUser(ctx, alice.ID); err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}
	active, _ = repo.ListActiveByUser(ctx, alice.ID)
	if len(active) != 0 {
		t.Errorf("active = %d, want 0", len(active))
	}

	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}
}

func TestHashToken(t *testing.T) {
	if HashToken("a") == HashToken("b") {
		t.Error("different inputs should hash differently")
	}
	if len(HashToken("a")) != 64 {
		t.Error("hash should be 64 hex chars")
	}
}
