package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// SprintRepository defines sprint persistence and lifecycle.
type SprintRepository interface {
	CreateSprint(ctx context.Context, s *Sprint) error
	GetSprint(ctx context.Context, id string) (*Sprint, error)
	ListSprints(ctx context.Context, projectID string) ([]Sprint, error)
	UpdateSprint(ctx context.Context, s *Sprint) error
	DeleteSprint(ctx context.Context, id string) error
	StartSprint(ctx context.Context, id string) (*Sprint, error)
	CompleteSprint(ctx context.Context, id string) (*CompletionResult, error)
}

const selectSprint = `SELECT s.id, s.project_id, s.name, s.goal, s.start_date, s.end_date, s.status,
	(SELECT COUNT(*) FROM tasks t WHERE t.sprint_id = s.id),
	(SELECT COUNT(*) FROM tasks t WHERE t.sprint_id = s.id AND t.status = 'done'),
	s.completed_at, s.created_at, s.updated_at
	FROM sprints s`

// CreateSprint inserts a planned sprint.
func (r *SQLiteRepository) CreateSprint(ctx context.Context, s *Sprint) error {
	if err := ValidateSprint(s); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = database.NewID("spr")
	}
	s.Status = SprintPlanned
	s.CompletedAt = nil
	now := time.Now().UTC().Truncate(time.Second)
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sprints (id, project_id, name, goal, start_date, end_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.Name, s.Goal, database.NullString(s.StartDate), database.NullString(s.EndDate),
		string(s.Status), database.FormatTime(now), database.FormatTime(now))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown project", ErrInvalidSprint)
		}
		return fmt.Errorf("inserting sprint: %w", err)
	}
	return nil
}

// GetSprint returns a sprint with its task counts.
func (r *SQLiteRepository) GetSprint(ctx context.Context, id string) (*Sprint, error) {
	return getSprint(ctx, r.db, id)
}

func getSprint(ctx context.Context, q database.Querier, id string) (*Sprint, error) {
	s, err := scanSprint(q.QueryRowContext(ctx, selectSprint+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSprintNotFound
	}
	return s, err
}

// ListSprints returns a project's sprints, most recent start first.
func (r *SQLiteRepository) ListSprints(ctx context.Context, projectID string) ([]Sprint, error) {
	rows, err := r.db.QueryContext(ctx,
		selectSprint+" WHERE s.project_id = ? ORDER BY COALESCE(s.start_date, '9999') DESC, s.created_at DESC",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("querying sprints: %w", err)
	}
	defer rows.Close()

	sprints := []Sprint{}
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sprints: %w", err)
	}
	return sprints, nil
}

// UpdateSprint edits name, goal and dates. Status changes go through
// StartSprint and CompleteSprint.
func (r *SQLiteRepository) UpdateSprint(ctx context.Context, s *Sprint) error {
	existing, err := r.GetSprint(ctx, s.ID)
	if err != nil {
		return err
	}
	s.ProjectID = existing.ProjectID
	if err := ValidateSprint(s); err != nil {
		return err
	}
	if existing.Status == SprintCompleted {
		return fmt.Errorf("%w: completed sprints are read-only", ErrSprintState)
	}
	s.Status = existing.Status
	s.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = r.db.ExecContext(ctx,
		`UPDATE sprints SET name = ?, goal = ?, start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`,
		s.Name, s.Goal, database.NullString(s.StartDate), database.NullString(s.EndDate),
		database.FormatTime(s.UpdatedAt), s.ID)
	if err != nil {
		return fmt.Errorf("updating sprint: %w", err)
	}
	return nil
}

// DeleteSprint removes a sprint that is not active. Its tasks return to the
// backlog.
func (r *SQLiteRepository) DeleteSprint(ctx context.Context, id string) error {
	s, err := r.GetSprint(ctx, id)
	if err != nil {
		return err
	}
	if s.Status == SprintActive {
		return fmt.Errorf("%w: complete the sprint before deleting it", ErrSprintState)
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM sprints WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sprint: %w", err)
	}
	return database.RequireAffected(result, ErrSprintNotFound)
}

// StartSprint moves a planned sprint to active. A project can have only one
// active sprint.
func (r *SQLiteRepository) StartSprint(ctx context.Context, id string) (*Sprint, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning sprint start: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	s, err := getSprint(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != SprintPlanned {
		return nil, fmt.Errorf("%w: sprint is %s", ErrSprintState, s.Status)
	}

	now := time.Now().UTC()
	if s.StartDate == "" {
		s.StartDate = now.Format(database.DateLayout)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE sprints SET status = 'active', start_date = ?, updated_at = ? WHERE id = ?",
		s.StartDate, database.FormatTime(now), id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrSprintActiveExists
		}
		return nil, fmt.Errorf("starting sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sprint start: %w", err)
	}
	s.Status = SprintActive
	s.UpdatedAt = now.Truncate(time.Second)
	return s, nil
}

// CompleteSprint closes an active sprint and moves its unfinished tasks
// back to the backlog.
func (r *SQLiteRepository) CompleteSprint(ctx context.Context, id string) (*CompletionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning sprint completion: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	s, err := getSprint(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != SprintActive {
		return nil, fmt.Errorf("%w: sprint is %s", ErrSprintState, s.Status)
	}

	now := time.Now().UTC().Truncate(time.Second)
	moved, err := tx.ExecContext(ctx,
		"UPDATE tasks SET sprint_id = NULL, updated_at = ? WHERE sprint_id = ? AND status != 'done'",
		database.FormatTime(now), id)
	if err != nil {
		return nil, fmt.Errorf("returning tasks to backlog: %w", err)
	}
	carried, _ := moved.RowsAffected() //nolint:errcheck // always succeeds on SQLite

	if _, err := tx.ExecContext(ctx,
		"UPDATE sprints SET status = 'completed', completed_at = ?, updated_at = ? WHERE id = ?",
		database.FormatTime(now), database.FormatTime(now), id); err != nil {
		return nil, fmt.Errorf("completing sprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sprint completion: %w", err)
	}

	s.Status = SprintCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	s.TaskCount = s.DoneCount
	return &CompletionResult{Sprint: s, Completed: s.DoneCount, CarriedOver: int(carried)}, nil
}

func scanSprint(sc scanner) (*Sprint, error) {
	var s Sprint
	var start, end, completed sql.NullString
	var status, createdAt, updatedAt string
	err := sc.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Goal, &start, &end, &status,
		&s.TaskCount, &s.DoneCount, &completed, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sprint: %w", err)
	}
	s.StartDate = start.String
	s.EndDate = end.String
	s.Status = SprintStatus(status)
	s.CompletedAt = database.ParseNullTime(completed)
	s.CreatedAt = database.ParseTime(createdAt)
	s.UpdatedAt = database.ParseTime(updatedAt)
	return &s, nil
}
