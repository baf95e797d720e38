package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/project"
)

// Repository defines budget persistence and reporting.
type Repository interface {
	Create(ctx context.Context, it *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, projectID string) ([]Item, error)
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, projectID string, day time.Time) (*Summary, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed budget repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const itemColumns = `id, project_id, category, description, planned_cents, actual_cents,
	incurred_on, change_request_id, created_by, created_at, updated_at`

// Create inserts a manual budget item. The change category is reserved for
// items booked by approved change requests.
func (r *SQLiteRepository) Create(ctx context.Context, it *Item) error {
	if err := Validate(it); err != nil {
		return err
	}
	if it.Category == CategoryChange {
		return fmt.Errorf("%w: change items are booked by approving a change request", ErrInvalidItem)
	}
	if it.ID == "" {
		it.ID = database.NewID("bud")
	}
	it.ChangeRequestID = ""
	now := time.Now().UTC().Truncate(time.Second)
	it.CreatedAt, it.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO budget_items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)",
		it.ID, it.ProjectID, string(it.Category), it.Description, it.PlannedCents, it.ActualCents,
		database.NullString(it.IncurredOn), database.NullString(it.CreatedBy),
		database.FormatTime(now), database.FormatTime(now))
	return mapWriteError(err, "inserting budget item")
}

// Get returns a budget item by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM budget_items WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	return it, err
}

// List returns a project's items, newest incurred first.
func (r *SQLiteRepository) List(ctx context.Context, projectID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemColumns+` FROM budget_items WHERE project_id = ?
		 ORDER BY COALESCE(incurred_on, substr(created_at, 1, 10)) DESC, created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying budget items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budget items: %w", err)
	}
	return items, nil
}

// Update saves an item. Project is fixed; items booked from a change request
// keep their category and planned amount but can record actual spend.
func (r *SQLiteRepository) Update(ctx context.Context, it *Item) error {
	existing, err := r.Get(ctx, it.ID)
	if err != nil {
		return err
	}
	it.ProjectID = existing.ProjectID
	it.ChangeRequestID = existing.ChangeRequestID
	it.CreatedBy = existing.CreatedBy
	it.CreatedAt = existing.CreatedAt
	if err := Validate(it); err != nil {
		return err
	}
	if existing.ChangeRequestID != "" {
		if it.Category != existing.Category || it.PlannedCents != existing.PlannedCents {
			return ErrChangeItem
		}
	} else if it.Category == CategoryChange && existing.Category != CategoryChange {
		return fmt.Errorf("%w: change items are booked by approving a change request", ErrInvalidItem)
	}
	it.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx,
		`UPDATE budget_items SET category = ?, description = ?, planned_cents = ?, actual_cents = ?,
			incurred_on = ?, updated_at = ? WHERE id = ?`,
		string(it.Category), it.Description, it.PlannedCents, it.ActualCents,
		database.NullString(it.IncurredOn), database.FormatTime(it.UpdatedAt), it.ID)
	return mapWriteError(err, "updating budget item")
}

// Delete removes a manual item.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.ChangeRequestID != "" {
		return ErrChangeItem
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM budget_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting budget item: %w", err)
	}
	return database.RequireAffected(result, ErrItemNotFound)
}

// Summary totals a project's budget, adds labour from approved time entries
// and computes earned value as of day.
func (r *SQLiteRepository) Summary(ctx context.Context, projectID string, day time.Time) (*Summary, error) {
	var b Baseline
	var start, end sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT budget_cents, progress, start_date, end_date FROM projects WHERE id = ?", projectID).
		Scan(&b.BudgetCents, &b.Progress, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading project baseline: %w", err)
	}
	b.StartDate, b.EndDate = start.String, end.String

	s := &Summary{ProjectID: projectID, ByCategory: []CategoryTotal{}}
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(planned_cents), SUM(actual_cents)
		 FROM budget_items WHERE project_id = ? GROUP BY category`, projectID)
	if err != nil {
		return nil, fmt.Errorf("totalling budget items: %w", err)
	}
	totals := make(map[Category]CategoryTotal)
	for rows.Next() {
		var ct CategoryTotal
		var cat string
		if err := rows.Scan(&cat, &ct.PlannedCents, &ct.ActualCents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning budget totals: %w", err)
		}
		ct.Category = Category(cat)
		totals[ct.Category] = ct
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating budget totals: %w", err)
	}
	rows.Close()

	for _, c := range Categories {
		if ct, ok := totals[c]; ok {
			s.ByCategory = append(s.ByCategory, ct)
			s.PlannedCents += ct.PlannedCents
			s.ActualCents += ct.ActualCents
		}
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(te.hours), 0), CAST(ROUND(COALESCE(SUM(te.hours * u.hourly_rate_cents), 0)) AS INTEGER)
		 FROM time_entries te JOIN users u ON u.id = te.user_id
		 WHERE te.project_id = ? AND te.status = 'approved'`, projectID).
		Scan(&s.LabourHours, &s.LabourCents)
	if err != nil {
		return nil, fmt.Errorf("totalling labour: %w", err)
	}

	s.VarianceCents = s.PlannedCents - (s.ActualCents + s.LabourCents)
	s.EarnedValue = ComputeEarnedValue(b, s.PlannedCents, s.ActualCents+s.LabourCents, day)
	return s, nil
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown project", ErrInvalidItem)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*Item, error) {
	var it Item
	var category, createdAt, updatedAt string
	var incurred, change, createdBy sql.NullString
	err := s.Scan(&it.ID, &it.ProjectID, &category, &it.Description, &it.PlannedCents, &it.ActualCents,
		&incurred, &change, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning budget item: %w", err)
	}
	it.Category = Category(category)
	it.IncurredOn = incurred.String
	it.ChangeRequestID = change.String
	it.CreatedBy = createdBy.String
	it.CreatedAt = database.ParseTime(createdAt)
	it.UpdatedAt = database.ParseTime(updatedAt)
	return &it, nil
}
