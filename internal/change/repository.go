package change

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

// Repository defines change request persistence and workflow.
type Repository interface {
	Create(ctx context.Context, c *ChangeRequest) error
	Get(ctx context.Context, id string) (*ChangeRequest, error)
	List(ctx context.Context, filter Filter) ([]ChangeRequest, error)
	Update(ctx context.Context, c *ChangeRequest) error
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, id string, action Action, actorID, note string) (*ChangeRequest, error)
	History(ctx context.Context, id string) ([]HistoryEntry, error)
	CountPending(ctx context.Context, projectIDs []string) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed change request repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const changeColumns = `id, project_id, number, title, description, justification, schedule_impact_days,
	cost_impact_cents, priority, status, requested_by, decided_by, decision_note, decided_at,
	created_at, updated_at`

// Create inserts a draft request with the next number of its project.
func (r *SQLiteRepository) Create(ctx context.Context, c *ChangeRequest) error {
	applyDefaults(c)
	if err := Validate(c); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning change request insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(number), 0) + 1 FROM change_requests WHERE project_id = ?", c.ProjectID,
	).Scan(&c.Number); err != nil {
		return fmt.Errorf("allocating change request number: %w", err)
	}

	if c.ID == "" {
		c.ID = database.NewID("chg")
	}
	c.Reference = FormatReference(c.Number)
	c.Status = StatusDraft
	c.DecidedBy, c.DecisionNote, c.DecidedAt = "", "", nil
	now := time.Now().UTC().Truncate(time.Second)
	c.CreatedAt, c.UpdatedAt = now, now

	_, err = tx.ExecContext(ctx,
		"INSERT INTO change_requests ("+changeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, '', NULL, ?, ?)",
		c.ID, c.ProjectID, c.Number, c.Title, c.Description, c.Justification, c.ScheduleImpactDays,
		c.CostImpactCents, string(c.Priority), string(c.Status), database.NullString(c.RequestedBy),
		database.FormatTime(now), database.FormatTime(now))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown project or requester", ErrInvalidChange)
		}
		return fmt.Errorf("inserting change request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing change request: %w", err)
	}
	return nil
}

// Get returns a change request by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*ChangeRequest, error) {
	return getChange(ctx, r.db, id)
}

func getChange(ctx context.Context, q database.Querier, id string) (*ChangeRequest, error) {
	c, err := scanChange(q.QueryRowContext(ctx, "SELECT "+changeColumns+" FROM change_requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChangeNotFound
	}
	return c, err
}

// List returns change requests, newest number first within each project.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]ChangeRequest, error) {
	where, args := buildWhere(filter)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+changeColumns+" FROM change_requests"+where+" ORDER BY project_id, number DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("querying change requests: %w", err)
	}
	defer rows.Close()

	changes := []ChangeRequest{}
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change requests: %w", err)
	}
	return changes, nil
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
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update edits a draft request's content.
func (r *SQLiteRepository) Update(ctx context.Context, c *ChangeRequest) error {
	existing, err := r.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing.Status != StatusDraft {
		return ErrNotEditable
	}
	c.ProjectID = existing.ProjectID
	c.Number = existing.Number
	c.Reference = existing.Reference
	c.Status = existing.Status
	c.RequestedBy = existing.RequestedBy
	c.CreatedAt = existing.CreatedAt
	applyDefaults(c)
	if err := Validate(c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx,
		`UPDATE change_requests SET title = ?, description = ?, justification = ?,
			schedule_impact_days = ?, cost_impact_cents = ?, priority = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft'`,
		c.Title, c.Description, c.Justification, c.ScheduleImpactDays, c.CostImpactCents,
		string(c.Priority), database.FormatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("updating change request: %w", err)
	}
	return nil
}

// Delete removes a draft or cancelled request.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status != StatusDraft && existing.Status != StatusCancelled {
		return ErrNotEditable
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM change_requests WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting change request: %w", err)
	}
	return database.RequireAffected(result, ErrChangeNotFound)
}

// Transition applies an action, records history and, on approval with a
// cost impact, books the cost against the project budget.
func (r *SQLiteRepository) Transition(ctx context.Context, id string, action Action, actorID, note string) (*ChangeRequest, error) {
	note = strings.TrimSpace(note)
	if len(note) > maxTextLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", ErrInvalidChange, maxTextLength)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	c, err := getChange(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(c.Status, action)
	if err != nil {
		return nil, err
	}
	if IsDecision(action) && actorID != "" && actorID == c.RequestedBy {
		return nil, ErrSelfApproval
	}

	now := time.Now().UTC().Truncate(time.Second)
	from := c.Status
	c.Status = next
	c.UpdatedAt = now
	if IsDecision(action) {
		c.DecidedBy = actorID
		c.DecisionNote = note
		c.DecidedAt = &now
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE change_requests SET status = ?, decided_by = ?, decision_note = ?, decided_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(c.Status), database.NullString(c.DecidedBy), c.DecisionNote, database.NullTime(c.DecidedAt),
		database.FormatTime(now), c.ID); err != nil {
		return nil, fmt.Errorf("updating change request status: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO change_request_history (id, change_request_id, from_status, to_status, actor_id, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		database.NewID("chh"), c.ID, string(from), string(next), database.NullString(actorID), note,
		database.FormatTime(now)); err != nil {
		return nil, fmt.Errorf("recording change history: %w", err)
	}

	if action == ActionApprove && c.CostImpactCents > 0 {
		if err := bookCost(ctx, tx, c, actorID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transition: %w", err)
	}
	return c, nil
}

// bookCost adds the approved cost as a change budget line and raises the
// project's budget at completion by the same amount.
func bookCost(ctx context.Context, tx *sql.Tx, c *ChangeRequest, actorID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO budget_items (id, project_id, category, description, planned_cents, actual_cents,
			incurred_on, change_request_id, created_by, created_at, updated_at)
		 VALUES (?, ?, 'change', ?, ?, 0, ?, ?, ?, ?, ?)`,
		database.NewID("bud"), c.ProjectID, c.Reference+": "+c.Title, c.CostImpactCents,
		now.Format(database.DateLayout), c.ID, database.NullString(actorID),
		database.FormatTime(now), database.FormatTime(now)); err != nil {
		return fmt.Errorf("booking change cost: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		"UPDATE projects SET budget_cents = budget_cents + ?, updated_at = ? WHERE id = ?",
		c.CostImpactCents, database.FormatTime(now), c.ProjectID)
	if err != nil {
		return fmt.Errorf("raising project budget: %w", err)
	}
	return database.RequireAffected(result, project.ErrProjectNotFound)
}

// History returns the transitions of a request, oldest first.
func (r *SQLiteRepository) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, change_request_id, from_status, to_status, actor_id, note, created_at
		 FROM change_request_history WHERE change_request_id = ? ORDER BY created_at, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying change history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		var from, to, createdAt string
		var actor sql.NullString
		if err := rows.Scan(&h.ID, &h.ChangeID, &from, &to, &actor, &h.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning change history: %w", err)
		}
		h.FromStatus = Status(from)
		h.ToStatus = Status(to)
		h.ActorID = actor.String
		h.CreatedAt = database.ParseTime(createdAt)
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// CountPending counts requests awaiting a decision (submitted or under
// review) within a scope (nil = all).
func (r *SQLiteRepository) CountPending(ctx context.Context, projectIDs []string) (int, error) {
	where, args := buildWhere(Filter{ProjectIDs: projectIDs})
	if where == "" {
		where = " WHERE 1"
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM change_requests"+where+" AND status IN ('submitted', 'under_review')",
		args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting pending change requests: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChange(s scanner) (*ChangeRequest, error) {
	var c ChangeRequest
	var requested, decided, decidedAt sql.NullString
	var priority, status, createdAt, updatedAt string
	err := s.Scan(&c.ID, &c.ProjectID, &c.Number, &c.Title, &c.Description, &c.Justification,
		&c.ScheduleImpactDays, &c.CostImpactCents, &priority, &status, &requested, &decided,
		&c.DecisionNote, &decidedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning change request: %w", err)
	}
	c.Reference = FormatReference(c.Number)
	c.Priority = project.Priority(priority)
	c.Status = Status(status)
	c.RequestedBy = requested.String
	c.DecidedBy = decided.String
	c.DecidedAt = database.ParseNullTime(decidedAt)
	c.CreatedAt = database.ParseTime(createdAt)
	c.UpdatedAt = database.ParseTime(updatedAt)
	return &c, nil
}
