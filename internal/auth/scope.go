package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// ScopeResolver computes project visibility from departments, project
// management and membership.
type ScopeResolver struct {
	db *sql.DB
}

// NewScopeResolver creates a resolver over the application database.
func NewScopeResolver(db *sql.DB) *ScopeResolver {
	return &ScopeResolver{db: db}
}

// Scoping rules:
//
//	admin    nil scope (everything)
//	manager  projects in departments they manage, projects they manage and
//	         projects they are a member of; manage rights on the first two
//	staff    projects they are a member of, manage, or hold a task in;
//	         manage rights only where they are the project manager
const (
	managedDepartmentsQuery = `SELECT id FROM departments WHERE manager_id = ? ORDER BY id`

	managerVisibleQuery = `
		SELECT p.id FROM projects p
		JOIN departments d ON d.id = p.department_id
		WHERE d.manager_id = ?1
		UNION SELECT id FROM projects WHERE manager_id = ?1
		UNION SELECT project_id FROM project_members WHERE user_id = ?1
		ORDER BY 1`

	managerManageQuery = `
		SELECT p.id FROM projects p
		JOIN departments d ON d.id = p.department_id
		WHERE d.manager_id = ?1
		UNION SELECT id FROM projects WHERE manager_id = ?1
		ORDER BY 1`

	staffVisibleQuery = `
		SELECT project_id FROM project_members WHERE user_id = ?1
		UNION SELECT id FROM projects WHERE manager_id = ?1
		UNION SELECT DISTINCT project_id FROM tasks WHERE assignee_id = ?1
		ORDER BY 1`

	staffManageQuery = `SELECT id FROM projects WHERE manager_id = ?1 ORDER BY id`
)

// ResolveProjectScope builds the ProjectScope for a user.
// Returns nil (unrestricted) for admins. For everyone else the slices are
// non-nil so an empty scope is distinguishable from an unrestricted one.
func (r *ScopeResolver) ResolveProjectScope(ctx context.Context, userID string, role Role) (*ProjectScope, error) {
	if !IsProjectScoped(role) {
		return nil, nil //nolint:nilnil // nil scope means unrestricted
	}

	visibleQ, manageQ := staffVisibleQuery, staffManageQuery
	scope := &ProjectScope{DepartmentIDs: []string{}}

	if role == RoleManager {
		visibleQ, manageQ = managerVisibleQuery, managerManageQuery
		depts, err := r.queryIDs(ctx, managedDepartmentsQuery, userID)
		if err != nil {
			return nil, fmt.Errorf("resolving managed departments: %w", err)
		}
		scope.DepartmentIDs = depts
	}

	visible, err := r.queryIDs(ctx, visibleQ, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving visible projects: %w", err)
	}
	manage, err := r.queryIDs(ctx, manageQ, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving managed projects: %w", err)
	}

	scope.ProjectIDs = visible
	scope.ManageProjectIDs = manage
	return scope, nil
}

func (r *ScopeResolver) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
