package timesheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// Repository defines time entry persistence and approval.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]Entry, int, error)
	Update(ctx context.Context, e *Entry, actorID string) error
	Delete(ctx context.Context, id, actorID string) error
	Submit(ctx context.Context, id, actorID string) (*Entry, error)
	Approve(ctx context.Context, id, approverID string) (*Entry, error)
	Reject(ctx context.Context, id, approverID, note string) (*Entry, error)
	SumHours(ctx context.Context, filter Filter) (float64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed timesheet repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const entryColumns = `te.id, te.user_id, te.project_id, te.task_id, te.work_date, te.hours, te.description,
	te.billable, te.status, te.approver_id, te.decided_at, te.rejection_note, te.created_at, te.updated_at,
	u.username, p.code, u.hourly_rate_cents`

const entryFrom = ` FROM time_entries te
	JOIN users u ON u.id = te.user_id
	JOIN projects p ON p.id = te.project_id`

// Create validates and inserts a draft entry.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if err := Validate(e); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = database.NewID("tim")
	}
	e.Status = StatusDraft
	e.ApproverID, e.DecidedAt, e.RejectionNote = "", nil, ""
	now := time.Now().UTC().Truncate(time.Second)
	e.CreatedAt, e.UpdatedAt = now, now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning time entry create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := checkPlacement(ctx, tx, e); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO time_entries (id, user_id, project_id, task_id, work_date, hours, description,
			billable, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'draft', ?, ?)`,
		e.ID, e.UserID, e.ProjectID, database.NullString(e.TaskID), e.WorkDate, e.Hours, e.Description,
		database.BoolToInt(e.Billable), database.FormatTime(now), database.FormatTime(now))
	if err := mapWriteError(err, "inserting time entry"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing time entry: %w", err)
	}
	return nil
}

// checkPlacement verifies the task belongs to the entry's project and the
// user's day stays within MaxDailyHours.
func checkPlacement(ctx context.Context, q database.Querier, e *Entry) error {
	if e.TaskID != "" {
		var taskProject string
		err := q.QueryRowContext(ctx, "SELECT project_id FROM tasks WHERE id = ?", e.TaskID).Scan(&taskProject)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: unknown task", ErrInvalidEntry)
		}
		if err != nil {
			return fmt.Errorf("checking task: %w", err)
		}
		if taskProject != e.ProjectID {
			return fmt.Errorf("%w: task belongs to another project", ErrInvalidEntry)
		}
	}

	var booked float64
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(hours), 0) FROM time_entries WHERE user_id = ? AND work_date = ? AND id != ?",
		e.UserID, e.WorkDate, e.ID).Scan(&booked)
	if err != nil {
		return fmt.Errorf("totalling daily hours: %w", err)
	}
	if booked+e.Hours > MaxDailyHours {
		return fmt.Errorf("%w: %.2f hours already booked on %s", ErrDailyLimit, booked, e.WorkDate)
	}
	return nil
}

// Get returns an entry by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Entry, error) {
	return getEntry(ctx, r.db, id)
}

func getEntry(ctx context.Context, q database.Querier, id string) (*Entry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, "SELECT "+entryColumns+entryFrom+" WHERE te.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return e, err
}

// List returns a page of entries, newest work date first, and the total
// number of matches.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM time_entries te"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting time entries: %w", err)
	}

	limit, offset := database.ClampPage(filter.Limit, filter.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+entryColumns+entryFrom+where+" ORDER BY te.work_date DESC, u.username, te.created_at LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying time entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating time entries: %w", err)
	}
	return entries, total, nil
}

// SumHours totals the hours of all entries matching filter.
func (r *SQLiteRepository) SumHours(ctx context.Context, filter Filter) (float64, error) {
	where, args := buildWhere(filter)
	var hours float64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(te.hours), 0) FROM time_entries te"+where, args...).Scan(&hours)
	if err != nil {
		return 0, fmt.Errorf("totalling hours: %w", err)
	}
	return hours, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.ProjectIDs != nil {
		c, a := database.InClause("te.project_id", f.ProjectIDs)
		args = append(args, a...)
		if f.VisibleTo != "" {
			c = "(" + c + " OR te.user_id = ?)"
			args = append(args, f.VisibleTo)
		}
		conds = append(conds, c)
	}
	add := func(cond, v string) {
		if v != "" {
			conds = append(conds, cond)
			args = append(args, v)
		}
	}
	add("te.user_id = ?", f.UserID)
	add("te.project_id = ?", f.ProjectID)
	add("te.work_date >= ?", f.From)
	add("te.work_date <= ?", f.To)
	add("te.status = ?", string(f.Status))
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update lets the owner change a draft or rejected entry. Editing a rejected
// entry returns it to draft.
func (r *SQLiteRepository) Update(ctx context.Context, e *Entry, actorID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning time entry update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := getEntry(ctx, tx, e.ID)
	if err != nil {
		return err
	}
	if err := ownerMayEdit(existing, actorID); err != nil {
		return err
	}
	e.UserID = existing.UserID
	e.CreatedAt = existing.CreatedAt
	if err := Validate(e); err != nil {
		return err
	}
	if err := checkPlacement(ctx, tx, e); err != nil {
		return err
	}
	e.Status = StatusDraft
	e.ApproverID, e.DecidedAt, e.RejectionNote = "", nil, ""
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = tx.ExecContext(ctx,
		`UPDATE time_entries SET project_id = ?, task_id = ?, work_date = ?, hours = ?, description = ?,
			billable = ?, status = 'draft', approver_id = NULL, decided_at = NULL, rejection_note = '',
			updated_at = ?
		 WHERE id = ?`,
		e.ProjectID, database.NullString(e.TaskID), e.WorkDate, e.Hours, e.Description,
		database.BoolToInt(e.Billable), database.FormatTime(e.UpdatedAt), e.ID)
	if err := mapWriteError(err, "updating time entry"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing time entry update: %w", err)
	}
	return nil
}

// Delete lets the owner remove a draft or rejected entry.
func (r *SQLiteRepository) Delete(ctx context.Context, id, actorID string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := ownerMayEdit(existing, actorID); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM time_entries WHERE id = ? AND status IN ('draft', 'rejected')", id)
	if err != nil {
		return fmt.Errorf("deleting time entry: %w", err)
	}
	return database.RequireAffected(result, ErrNotEditable)
}

func ownerMayEdit(e *Entry, actorID string) error {
	if e.UserID != actorID {
		return ErrNotOwner
	}
	if !e.Editable() {
		return fmt.Errorf("%w: entry is %s", ErrNotEditable, e.Status)
	}
	return nil
}

// Submit sends a draft or rejected entry for approval.
func (r *SQLiteRepository) Submit(ctx context.Context, id, actorID string) (*Entry, error) {
	return r.decide(ctx, id, func(e *Entry) error {
		if e.UserID != actorID {
			return ErrNotOwner
		}
		if !e.Editable() {
			return fmt.Errorf("%w: cannot submit %s entry", ErrInvalidState, e.Status)
		}
		e.Status = StatusSubmitted
		e.ApproverID, e.DecidedAt, e.RejectionNote = "", nil, ""
		return nil
	})
}

// Approve accepts a submitted entry.
func (r *SQLiteRepository) Approve(ctx context.Context, id, approverID string) (*Entry, error) {
	return r.decide(ctx, id, func(e *Entry) error {
		if err := checkDecision(e, approverID); err != nil {
			return err
		}
		e.Status = StatusApproved
		e.RejectionNote = ""
		return nil
	})
}

// Reject returns a submitted entry to its owner with a note.
func (r *SQLiteRepository) Reject(ctx context.Context, id, approverID, note string) (*Entry, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("%w: a rejection note is required", ErrInvalidEntry)
	}
	return r.decide(ctx, id, func(e *Entry) error {
		if err := checkDecision(e, approverID); err != nil {
			return err
		}
		e.Status = StatusRejected
		e.RejectionNote = note
		return nil
	})
}

func checkDecision(e *Entry, approverID string) error {
	if e.UserID == approverID {
		return ErrSelfApproval
	}
	if e.Status != StatusSubmitted {
		return fmt.Errorf("%w: entry is %s", ErrInvalidState, e.Status)
	}
	now := time.Now().UTC().Truncate(time.Second)
	e.ApproverID = approverID
	e.DecidedAt = &now
	return nil
}

func (r *SQLiteRepository) decide(ctx context.Context, id string, apply func(*Entry) error) (*Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning time entry transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	e, err := getEntry(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx,
		`UPDATE time_entries SET status = ?, approver_id = ?, decided_at = ?, rejection_note = ?, updated_at = ?
		 WHERE id = ?`,
		string(e.Status), database.NullString(e.ApproverID), database.NullTime(e.DecidedAt),
		e.RejectionNote, database.FormatTime(e.UpdatedAt), e.ID)
	if err != nil {
		return nil, fmt.Errorf("updating time entry status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing time entry transition: %w", err)
	}
	return e, nil
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown user, project or task", ErrInvalidEntry)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var task, approver, decided sql.NullString
	var status, createdAt, updatedAt string
	var billable int
	err := s.Scan(&e.ID, &e.UserID, &e.ProjectID, &task, &e.WorkDate, &e.Hours, &e.Description,
		&billable, &status, &approver, &decided, &e.RejectionNote, &createdAt, &updatedAt,
		&e.Username, &e.ProjectCode, &e.HourlyRateCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning time entry: %w", err)
	}
	e.TaskID = task.String
	e.Billable = billable != 0
	e.Status = Status(status)
	e.ApproverID = approver.String
	e.DecidedAt = database.ParseNullTime(decided)
	e.CreatedAt = database.ParseTime(createdAt)
	e.UpdatedAt = database.ParseTime(updatedAt)
	return &e, nil
}
