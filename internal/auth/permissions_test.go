package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleStaff, PermProjectRead, true},
		{RoleStaff, PermTaskWrite, true},
		{RoleStaff, PermTimeLog, true},
		{RoleStaff, PermProjectCreate, false},
		{RoleStaff, PermChangeApprove, false},
		{RoleStaff, PermBudgetRead, false},
		{RoleManager, PermChangeApprove, true},
		{RoleManager, PermTimeApprove, true},
		{RoleManager, PermReportExport, true},
		{RoleManager, PermUserManage, false},
		{RoleManager, PermAuditRead, false},
		{RoleAdmin, PermUserManage, true},
		{RoleAdmin, PermDepartmentManage, true},
		{RoleAdmin, PermTaskWrite, true},
		{"owner", PermProjectRead, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestPermissionsForRole_IsCopy(t *testing.T) {
	perms := PermissionsForRole(RoleStaff)
	if len(perms) == 0 {
		t.Fatal("staff should have permissions")
	}
	perms[0] = PermSystemAdmin
	if HasPermission(RoleStaff, PermSystemAdmin) {
		t.Error("mutating the returned slice changed the role map")
	}
	if PermissionsForRole("nobody") != nil {
		t.Error("unknown role should return nil")
	}
}

func TestRolesAreCumulative(t *testing.T) {
	for _, p := range PermissionsForRole(RoleStaff) {
		if !HasPermission(RoleManager, p) {
			t.Errorf("manager lacks staff permission %s", p)
		}
	}
	for _, p := range PermissionsForRole(RoleManager) {
		if !HasPermission(RoleAdmin, p) {
			t.Errorf("admin lacks manager permission %s", p)
		}
	}
}

func TestIsProjectScoped(t *testing.T) {
	if !IsProjectScoped(RoleStaff) || !IsProjectScoped(RoleManager) {
		t.Error("staff and manager should be project scoped")
	}
	if IsProjectScoped(RoleAdmin) {
		t.Error("admin should not be project scoped")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []Role{RoleStaff, RoleManager, RoleAdmin} {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%s) = false", r)
		}
	}
	for _, r := range []Role{"", "owner", "panel", "ADMIN"} {
		if IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = true", r)
		}
	}
}

func TestProjectScope_NilIsUnrestricted(t *testing.T) {
	var s *ProjectScope
	if !s.CanAccessProject("prj-any") || !s.CanManageProject("prj-any") || !s.ManagesDepartment("dep-any") {
		t.Error("nil scope should allow everything")
	}
	if s.Restricted() != nil {
		t.Error("nil scope Restricted() should be nil")
	}

	empty := &ProjectScope{}
	if empty.CanAccessProject("prj-any") {
		t.Error("empty scope should deny")
	}
	if r := empty.Restricted(); r == nil || len(r) != 0 {
		t.Errorf("empty scope Restricted() = %v, want non-nil empty", r)
	}
}
