package asset

import (
	"errors"
	"testing"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database/dbtest"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db := dbtest.SQL(t)
	dbtest.Exec(t, db,
		`INSERT INTO users (id, username, display_name, password_hash) VALUES ('usr-a', 'alice', 'Alice', 'x')`,
		`INSERT INTO projects (id, code, name) VALUES ('prj-1', 'P1', 'One')`,
		`INSERT INTO projects (id, code, name) VALUES ('prj-2', 'P2', 'Two')`,
	)
	return NewSQLiteRepository(db)
}

func TestRepository_AssignRelease(t *testing.T) {
	repo := setupRepo(t)
	ctx := t.Context()

	a := &Asset{Tag: "lap-001", Name: "Laptop", Category: "hardware", PurchaseCostCents: 150000, PurchaseDate: "2025-11-02"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Tag != "LAP-001" || a.Status != StatusAvailable {
		t.Errorf("Create() = %+v", a)
	}
	if err := repo.Create(ctx, &Asset{Tag: "LAP-001", Name: "Dup"}); !errors.Is(err, ErrAssetTagExists) {
		t.Errorf("duplicate tag error = %v", err)
	}

	if _, err := repo.Assign(ctx, a.ID, Assignment{}); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("empty assignment error = %v", err)
	}
	got, err := repo.Assign(ctx, a.ID, Assignment{UserID: "usr-a", ProjectID: "prj-1"})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got.Status != StatusAssigned || got.AssignedTo != "usr-a" || got.ProjectID != "prj-1" {
		t.Errorf("Assign() = %+v", got)
	}
	if _, err := repo.Assign(ctx, a.ID, Assignment{UserID: "usr-a"}); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("double assign error = %v, want ErrNotAvailable", err)
	}

	released, err := repo.Release(ctx, a.ID)
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if released.Status != StatusAvailable || released.AssignedTo != "" || released.ProjectID != "" {
		t.Errorf("Release() = %+v", released)
	}
	if _, err := repo.Release(ctx, a.ID); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("double release error = %v, want ErrNotAssigned", err)
	}

	released.Status = StatusRetired
	if err := repo.Update(ctx, released); err != nil {
		t.Fatalf("Update(retired) error = %v", err)
	}
	if _, err := repo.Assign(ctx, a.ID, Assignment{UserID: "usr-a"}); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("assigning retired asset error = %v, want ErrNotAvailable", err)
	}

	released.Status = StatusAssigned
	if err := repo.Update(ctx, released); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("Update() into assigned error = %v, want ErrInvalidAsset", err)
	}
	if _, err := repo.Assign(ctx, "ast-missing", Assignment{UserID: "usr-a"}); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Assign(missing) error = %v", err)
	}
}

func TestRepository_ListScope(t *testing.T) {
	repo := setupRepo(t)
	ctx := t.Context()

	for _, a := range []*Asset{
		{ID: "ast-1", Tag: "A1", Name: "Pool item"},
		{ID: "ast-2", Tag: "A2", Name: "Project one"},
		{ID: "ast-3", Tag: "A3", Name: "Project two"},
		{ID: "ast-4", Tag: "A4", Name: "Alice's phone"},
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	for id, to := range map[string]Assignment{
		"ast-2": {ProjectID: "prj-1"},
		"ast-3": {ProjectID: "prj-2"},
		"ast-4": {UserID: "usr-a", ProjectID: "prj-2"},
	} {
		if _, err := repo.Assign(ctx, id, to); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"scope prj-1", Filter{ProjectIDs: []string{"prj-1"}}, 2},
		{"scope with own", Filter{ProjectIDs: []string{"prj-1"}, VisibleTo: "usr-a"}, 3},
		{"empty scope", Filter{ProjectIDs: []string{}}, 1},
		{"status", Filter{Status: StatusAssigned}, 3},
		{"assigned to", Filter{AssignedTo: "usr-a"}, 1},
		{"project", Filter{ProjectID: "prj-2"}, 2},
		{"query", Filter{Query: "phone"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil || len(got) != tt.want {
				t.Errorf("List() = %d, %v; want %d", len(got), err, tt.want)
			}
		})
	}
}
