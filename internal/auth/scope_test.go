package auth

import (
	"slices"
	"testing"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database/dbtest"
)

// scopeFixture builds two departments and four projects:
//
//	eng  (managed by mgr)  -> p-eng-1, p-eng-2
//	ops  (no manager)      -> p-ops-1 (managed by lead), p-ops-2
//
// staff is a member of p-ops-2 and holds a task in p-eng-2.
type scopeFixture struct {
	mgr, lead, staff, outsider *User
}

func newScopeFixture(t *testing.T) (*ScopeResolver, scopeFixture) {
	t.Helper()
	db := testDB(t)
	f := scopeFixture{
		mgr:      seedTestUser(t, db, "mgr", RoleManager),
		lead:     seedTestUser(t, db, "lead", RoleStaff),
		staff:    seedTestUser(t, db, "staff", RoleStaff),
		outsider: seedTestUser(t, db, "outsider", RoleManager),
	}
	dbtest.Exec(t, db,
		`INSERT INTO departments (id, name, code, manager_id) VALUES ('dept-eng', 'Engineering', 'ENG', '`+f.mgr.ID+`')`,
		`INSERT INTO departments (id, name, code) VALUES ('dept-ops', 'Operations', 'OPS')`,
		`INSERT INTO projects (id, code, name, department_id) VALUES ('p-eng-1', 'E1', 'Eng 1', 'dept-eng')`,
		`INSERT INTO projects (id, code, name, department_id) VALUES ('p-eng-2', 'E2', 'Eng 2', 'dept-eng')`,
		`INSERT INTO projects (id, code, name, department_id, manager_id) VALUES ('p-ops-1', 'O1', 'Ops 1', 'dept-ops', '`+f.lead.ID+`')`,
		`INSERT INTO projects (id, code, name, department_id) VALUES ('p-ops-2', 'O2', 'Ops 2', 'dept-ops')`,
		`INSERT INTO project_members (project_id, user_id) VALUES ('p-ops-2', '`+f.staff.ID+`')`,
		`INSERT INTO project_members (project_id, user_id) VALUES ('p-ops-2', '`+f.mgr.ID+`')`,
		`INSERT INTO tasks (id, project_id, title, assignee_id) VALUES ('t-1', 'p-eng-2', 'Fix it', '`+f.staff.ID+`')`,
	)
	return NewScopeResolver(db), f
}

func TestResolveProjectScope_Admin(t *testing.T) {
	r, f := newScopeFixture(t)
	scope, err := r.ResolveProjectScope(t.Context(), f.mgr.ID, RoleAdmin)
	if err != nil {
		t.Fatalf("ResolveProjectScope() error = %v", err)
	}
	if scope != nil {
		t.Errorf("admin scope = %+v, want nil", scope)
	}
}

func TestResolveProjectScope_Manager(t *testing.T) {
	r, f := newScopeFixture(t)
	scope, err := r.ResolveProjectScope(t.Context(), f.mgr.ID, RoleManager)
	if err != nil {
		t.Fatalf("ResolveProjectScope() error = %v", err)
	}

	if want := []string{"p-eng-1", "p-eng-2", "p-ops-2"}; !slices.Equal(scope.ProjectIDs, want) {
		t.Errorf("ProjectIDs = %v, want %v", scope.ProjectIDs, want)
	}
	if want := []string{"p-eng-1", "p-eng-2"}; !slices.Equal(scope.ManageProjectIDs, want) {
		t.Errorf("ManageProjectIDs = %v, want %v", scope.ManageProjectIDs, want)
	}
	if !scope.ManagesDepartment("dept-eng") || scope.ManagesDepartment("dept-ops") {
		t.Errorf("DepartmentIDs = %v", scope.DepartmentIDs)
	}
	if !scope.CanAccessProject("p-ops-2") || scope.CanManageProject("p-ops-2") {
		t.Error("membership should grant visibility but not management")
	}
}

func TestResolveProjectScope_Staff(t *testing.T) {
	r, f := newScopeFixture(t)

	scope, err := r.ResolveProjectScope(t.Context(), f.staff.ID, RoleStaff)
	if err != nil {
		t.Fatalf("ResolveProjectScope() error = %v", err)
	}
	if want := []string{"p-eng-2", "p-ops-2"}; !slices.Equal(scope.ProjectIDs, want) {
		t.Errorf("ProjectIDs = %v, want %v", scope.ProjectIDs, want)
	}
	if len(scope.ManageProjectIDs) != 0 {
		t.Errorf("ManageProjectIDs = %v, want none", scope.ManageProjectIDs)
	}

	lead, err := r.ResolveProjectScope(t.Context(), f.lead.ID, RoleStaff)
	if err != nil {
		t.Fatalf("ResolveProjectScope() error = %v", err)
	}
	if !lead.CanManageProject("p-ops-1") {
		t.Error("project manager should manage their project")
	}
}

func TestResolveProjectScope_Empty(t *testing.T) {
	r, f := newScopeFixture(t)
	scope, err := r.ResolveProjectScope(t.Context(), f.outsider.ID, RoleManager)
	if err != nil {
		t.Fatalf("ResolveProjectScope() error = %v", err)
	}
	if scope == nil || scope.ProjectIDs == nil {
		t.Fatal("non-admin scope must be non-nil with a non-nil slice")
	}
	if len(scope.ProjectIDs) != 0 || scope.CanAccessProject("p-eng-1") {
		t.Errorf("outsider scope = %+v, want empty", scope)
	}
}
