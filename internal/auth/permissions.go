package auth

import "slices"

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermProjectRead      Permission = "project:read"
	PermProjectCreate    Permission = "project:create"
	PermProjectManage    Permission = "project:manage"
	PermTaskWrite        Permission = "task:write"
	PermSprintManage     Permission = "sprint:manage"
	PermRiskWrite        Permission = "risk:write"
	PermChangeCreate     Permission = "change:create"
	PermChangeApprove    Permission = "change:approve"
	PermAssetRead        Permission = "asset:read"
	PermAssetManage      Permission = "asset:manage"
	PermBudgetRead       Permission = "budget:read"
	PermBudgetManage     Permission = "budget:manage"
	PermTimeLog          Permission = "time:log"
	PermTimeApprove      Permission = "time:approve"
	PermReportExport     Permission = "report:export"
	PermUserManage       Permission = "user:manage"
	PermDepartmentManage Permission = "department:manage"
	PermAuditRead        Permission = "audit:read"
	PermSystemAdmin      Permission = "system:admin"
)

var staffPermissions = []Permission{
	PermProjectRead,
	PermTaskWrite,
	PermRiskWrite,
	PermChangeCreate,
	PermAssetRead,
	PermTimeLog,
}

var managerPermissions = append(slices.Clone(staffPermissions),
	PermProjectCreate,
	PermProjectManage, // project-scoped: only where ManageProjectIDs allows
	PermSprintManage,
	PermChangeApprove,
	PermAssetManage,
	PermBudgetRead,
	PermBudgetManage,
	PermTimeApprove,
	PermReportExport,
)

var adminPermissions = append(slices.Clone(managerPermissions),
	PermUserManage,
	PermDepartmentManage,
	PermAuditRead,
	PermSystemAdmin,
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleStaff:   staffPermissions,
	RoleManager: managerPermissions,
	RoleAdmin:   adminPermissions,
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	return slices.Clone(perms)
}

// IsProjectScoped returns true if the role's access is filtered by project scope.
func IsProjectScoped(role Role) bool {
	return role != RoleAdmin
}
