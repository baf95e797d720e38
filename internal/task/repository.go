package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/project"
)

// Repository defines task persistence.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter) ([]Task, int, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, projectIDs []string) (map[Status]int, error)
	CountOverdue(ctx context.Context, projectIDs []string, today string) (int, error)
}

// SQLiteRepository implements Repository and SprintRepository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed task repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = `id, project_id, sprint_id, title, description, status, priority, assignee_id,
	reporter_id, estimate_hours, due_date, completed_at, sort_order, created_at, updated_at`

// Create validates and inserts a task. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, t *Task) error {
	applyDefaults(t)
	if err := Validate(t); err != nil {
		return err
	}
	if err := checkSprint(ctx, r.db, t, false); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = database.NewID("tsk")
	}
	now := time.Now().UTC().Truncate(time.Second)
	t.CreatedAt, t.UpdatedAt = now, now
	t.CompletedAt = nil
	if t.Status == StatusDone {
		t.CompletedAt = &now
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.ProjectID, database.NullString(t.SprintID), t.Title, t.Description,
		string(t.Status), string(t.Priority), database.NullString(t.AssigneeID),
		database.NullString(t.ReporterID), t.EstimateHours, database.NullString(t.DueDate),
		database.NullTime(t.CompletedAt), t.SortOrder, database.FormatTime(now), database.FormatTime(now))
	return mapWriteError(err, "inserting task")
}

// checkSprint enforces that a task's sprint belongs to its project and is
// still open. allowCompleted skips the open check for a task that already
// sits in the sprint.
func checkSprint(ctx context.Context, q database.Querier, t *Task, allowCompleted bool) error {
	if t.SprintID == "" {
		return nil
	}
	var projectID, status string
	err := q.QueryRowContext(ctx, "SELECT project_id, status FROM sprints WHERE id = ?", t.SprintID).
		Scan(&projectID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: sprint %s does not exist", ErrInvalidTask, t.SprintID)
	}
	if err != nil {
		return fmt.Errorf("checking sprint: %w", err)
	}
	if projectID != t.ProjectID {
		return fmt.Errorf("%w: sprint belongs to another project", ErrInvalidTask)
	}
	if SprintStatus(status) == SprintCompleted && !allowCompleted {
		return fmt.Errorf("%w: sprint is completed", ErrInvalidTask)
	}
	return nil
}

// Get returns a task by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

// List returns a page of tasks plus the unpaginated total.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Task, int, error) {
	where, args := buildWhere(filter)
	limit, offset := database.ClampPage(filter.Limit, filter.Offset)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks"+where+
			" ORDER BY sort_order, CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at, id"+
			" LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, total, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.ProjectIDs != nil {
		c, a := database.InClause("project_id", f.ProjectIDs)
		conds = append(conds, c)
		args = append(args, a...)
	}
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.AssigneeID != "" {
		conds = append(conds, "assignee_id = ?")
		args = append(args, f.AssigneeID)
	}
	switch {
	case f.Backlog:
		conds = append(conds, "sprint_id IS NULL")
	case f.SprintID != "":
		conds = append(conds, "sprint_id = ?")
		args = append(args, f.SprintID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update saves all mutable fields. The project of a task cannot change.
// CompletedAt is stamped on entering done and cleared on leaving it.
func (r *SQLiteRepository) Update(ctx context.Context, t *Task) error {
	applyDefaults(t)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning task update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var projectID, status string
	var sprintID, completedAt sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT project_id, sprint_id, status, completed_at FROM tasks WHERE id = ?", t.ID).
		Scan(&projectID, &sprintID, &status, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("reading task: %w", err)
	}
	t.ProjectID = projectID
	if err := Validate(t); err != nil {
		return err
	}
	if err := checkSprint(ctx, tx, t, t.SprintID == sprintID.String); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	switch {
	case t.Status == StatusDone && Status(status) != StatusDone:
		t.CompletedAt = &now
	case t.Status == StatusDone:
		t.CompletedAt = database.ParseNullTime(completedAt)
	default:
		t.CompletedAt = nil
	}
	t.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET sprint_id = ?, title = ?, description = ?, status = ?, priority = ?,
			assignee_id = ?, estimate_hours = ?, due_date = ?, completed_at = ?, sort_order = ?,
			updated_at = ?
		 WHERE id = ?`,
		database.NullString(t.SprintID), t.Title, t.Description, string(t.Status), string(t.Priority),
		database.NullString(t.AssigneeID), t.EstimateHours, database.NullString(t.DueDate),
		database.NullTime(t.CompletedAt), t.SortOrder, database.FormatTime(now), t.ID)
	if err := mapWriteError(err, "updating task"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task update: %w", err)
	}
	return nil
}

// Delete removes a task.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return database.RequireAffected(result, ErrTaskNotFound)
}

// CountByStatus counts tasks per status within a scope (nil = all).
func (r *SQLiteRepository) CountByStatus(ctx context.Context, projectIDs []string) (map[Status]int, error) {
	where, args := buildWhere(Filter{ProjectIDs: projectIDs})
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM tasks"+where+" GROUP BY status", args...)
	if err != nil {
		return nil, fmt.Errorf("counting tasks by status: %w", err)
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
			return nil, fmt.Errorf("scanning task count: %w", err)
		}
		counts[Status(s)] = n
	}
	return counts, rows.Err()
}

// CountOverdue counts unfinished tasks whose due date is before today
// (YYYY-MM-DD).
func (r *SQLiteRepository) CountOverdue(ctx context.Context, projectIDs []string, today string) (int, error) {
	where, args := buildWhere(Filter{ProjectIDs: projectIDs})
	if where == "" {
		where = " WHERE 1"
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks"+where+" AND status != 'done' AND due_date IS NOT NULL AND due_date < ?",
		append(args, today)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting overdue tasks: %w", err)
	}
	return n, nil
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown project, sprint or user", ErrInvalidTask)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var sprint, assignee, reporter, due, completed sql.NullString
	var status, priority, createdAt, updatedAt string
	err := s.Scan(&t.ID, &t.ProjectID, &sprint, &t.Title, &t.Description, &status, &priority,
		&assignee, &reporter, &t.EstimateHours, &due, &completed, &t.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	t.SprintID = sprint.String
	t.Status = Status(status)
	t.Priority = project.Priority(priority)
	t.AssigneeID = assignee.String
	t.ReporterID = reporter.String
	t.DueDate = due.String
	t.CompletedAt = database.ParseNullTime(completed)
	t.CreatedAt = database.ParseTime(createdAt)
	t.UpdatedAt = database.ParseTime(updatedAt)
	return &t, nil
}
