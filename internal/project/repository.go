package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// Repository defines project and membership persistence.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, projectIDs []string) (map[Status]int, error)

	ListMembers(ctx context.Context, projectID string) ([]Member, error)
	PutMember(ctx context.Context, projectID, userID, role string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed project repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const projectColumns = `id, code, name, description, department_id, manager_id, status, priority,
	start_date, end_date, budget_cents, progress, created_by, created_at, updated_at`

// Create validates and inserts a project. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, p *Project) error {
	applyDefaults(p)
	if err := Validate(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = database.NewID("prj")
	}
	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Code, p.Name, p.Description,
		database.NullString(p.DepartmentID), database.NullString(p.ManagerID),
		string(p.Status), string(p.Priority),
		database.NullString(p.StartDate), database.NullString(p.EndDate),
		p.BudgetCents, p.Progress, database.NullString(p.CreatedBy),
		database.FormatTime(now), database.FormatTime(now))
	return mapWriteError(err, "inserting project")
}

// Get returns a project by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	return p, err
}

// List returns a page of projects matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	where, args := buildWhere(filter)
	limit, offset := database.ClampPage(filter.Limit, filter.Offset)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects"+where+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	result := &ListResult{Projects: []Project{}, Total: total, Limit: limit, Offset: offset}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result.Projects = append(result.Projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return result, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.ProjectIDs != nil {
		c, a := database.InClause("id", f.ProjectIDs)
		conds = append(conds, c)
		args = append(args, a...)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.DepartmentID != "" {
		conds = append(conds, "department_id = ?")
		args = append(args, f.DepartmentID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "(name LIKE ? OR code LIKE ? OR description LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update saves all mutable fields. A status change must be allowed by
// CanTransition from the stored status.
func (r *SQLiteRepository) Update(ctx context.Context, p *Project) error {
	applyDefaults(p)
	if err := Validate(p); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning project update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM projects WHERE id = ?", p.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("reading project status: %w", err)
	}
	if !CanTransition(Status(current), p.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, p.Status)
	}

	p.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET code = ?, name = ?, description = ?, department_id = ?, manager_id = ?,
			status = ?, priority = ?, start_date = ?, end_date = ?, budget_cents = ?, progress = ?,
			updated_at = ?
		 WHERE id = ?`,
		p.Code, p.Name, p.Description,
		database.NullString(p.DepartmentID), database.NullString(p.ManagerID),
		string(p.Status), string(p.Priority),
		database.NullString(p.StartDate), database.NullString(p.EndDate),
		p.BudgetCents, p.Progress, database.FormatTime(p.UpdatedAt), p.ID)
	if err := mapWriteError(err, "updating project"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing project update: %w", err)
	}
	return nil
}

// Delete removes a project. Tasks, sprints, risks, change requests, budget
// items, time entries and memberships cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return database.RequireAffected(result, ErrProjectNotFound)
}

// CountByStatus counts projects per status within a scope (nil = all).
func (r *SQLiteRepository) CountByStatus(ctx context.Context, projectIDs []string) (map[Status]int, error) {
	where, args := buildWhere(Filter{ProjectIDs: projectIDs})
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM projects"+where+" GROUP BY status", args...)
	if err != nil {
		return nil, fmt.Errorf("counting projects by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[Status(s)] = n
	}
	return counts, rows.Err()
}

// ListMembers returns the project team ordered by display name.
func (r *SQLiteRepository) ListMembers(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.project_id, m.user_id, u.username, u.display_name, m.role, m.added_at
		 FROM project_members m JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = ? ORDER BY u.display_name COLLATE NOCASE`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		var addedAt string
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Username, &m.DisplayName, &m.Role, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.AddedAt = database.ParseTime(addedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// PutMember adds a user to the team or updates their role label.
func (r *SQLiteRepository) PutMember(ctx context.Context, projectID, userID, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		role = "member"
	}
	if len(role) > maxMemberRoleLength {
		return fmt.Errorf("%w: member role exceeds %d characters", ErrInvalidProject, maxMemberRoleLength)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, role, added_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (project_id, user_id) DO UPDATE SET role = excluded.role`,
		projectID, userID, role, database.FormatTime(time.Now()))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown project or user", ErrInvalidProject)
		}
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// RemoveMember takes a user off the team.
func (r *SQLiteRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM project_members WHERE project_id = ? AND user_id = ?", projectID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return database.RequireAffected(result, ErrMemberNotFound)
}

// IsMember reports whether userID is on the project team.
func (r *SQLiteRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?", projectID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return true, nil
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrProjectCodeExists
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown department or manager", ErrInvalidProject)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var dept, manager, start, end, createdBy sql.NullString
	var status, priority, createdAt, updatedAt string
	err := s.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &dept, &manager, &status, &priority,
		&start, &end, &p.BudgetCents, &p.Progress, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	p.DepartmentID = dept.String
	p.ManagerID = manager.String
	p.Status = Status(status)
	p.Priority = Priority(priority)
	p.StartDate = start.String
	p.EndDate = end.String
	p.CreatedBy = createdBy.String
	p.CreatedAt = database.ParseTime(createdAt)
	p.UpdatedAt = database.ParseTime(updatedAt)
	return &p, nil
}
