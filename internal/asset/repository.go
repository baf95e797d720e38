package asset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// Repository defines asset persistence and assignment.
type Repository interface {
	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context, filter Filter) ([]Asset, error)
	Update(ctx context.Context, a *Asset) error
	Delete(ctx context.Context, id string) error
	Assign(ctx context.Context, id string, to Assignment) (*Asset, error)
	Release(ctx context.Context, id string) (*Asset, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed asset repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = `id, tag, name, category, status, project_id, assigned_to, purchase_date,
	purchase_cost_cents, location, notes, created_at, updated_at`

// Create validates and inserts an asset.
func (r *SQLiteRepository) Create(ctx context.Context, a *Asset) error {
	applyDefaults(a)
	if err := Validate(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = database.NewID("ast")
	}
	now := time.Now().UTC().Truncate(time.Second)
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO assets ("+assetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.Tag, a.Name, a.Category, string(a.Status),
		database.NullString(a.ProjectID), database.NullString(a.AssignedTo),
		database.NullString(a.PurchaseDate), a.PurchaseCostCents, a.Location, a.Notes,
		database.FormatTime(now), database.FormatTime(now))
	return mapWriteError(err, "inserting asset")
}

// Get returns an asset by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Asset, error) {
	return getAsset(ctx, r.db, id)
}

func getAsset(ctx context.Context, q database.Querier, id string) (*Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	return a, err
}

// List returns assets ordered by tag.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Asset, error) {
	where, args := buildWhere(filter)
	rows, err := r.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets"+where+" ORDER BY tag", args...)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	assets := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}
	return assets, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.ProjectIDs != nil {
		c, a := database.InClause("project_id", f.ProjectIDs)
		scope := "(project_id IS NULL OR " + c + ")"
		args = append(args, a...)
		if f.VisibleTo != "" {
			scope = "(project_id IS NULL OR " + c + " OR assigned_to = ?)"
			args = append(args, f.VisibleTo)
		}
		conds = append(conds, scope)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.AssignedTo != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "(tag LIKE ? OR name LIKE ? OR category LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update saves descriptive fields and status. Assignment fields are only
// changed through Assign and Release, so an update cannot move an asset
// into or out of the assigned status.
func (r *SQLiteRepository) Update(ctx context.Context, a *Asset) error {
	existing, err := r.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	applyDefaults(a)
	if (a.Status == StatusAssigned) != (existing.Status == StatusAssigned) {
		return fmt.Errorf("%w: use assign or release to change assignment", ErrInvalidAsset)
	}
	a.ProjectID = existing.ProjectID
	a.AssignedTo = existing.AssignedTo
	a.CreatedAt = existing.CreatedAt
	if err := Validate(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx,
		`UPDATE assets SET tag = ?, name = ?, category = ?, status = ?, purchase_date = ?,
			purchase_cost_cents = ?, location = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		a.Tag, a.Name, a.Category, string(a.Status), database.NullString(a.PurchaseDate),
		a.PurchaseCostCents, a.Location, a.Notes, database.FormatTime(a.UpdatedAt), a.ID)
	return mapWriteError(err, "updating asset")
}

// Delete removes an asset.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return database.RequireAffected(result, ErrAssetNotFound)
}

// Assign hands an available asset to a user and/or project.
func (r *SQLiteRepository) Assign(ctx context.Context, id string, to Assignment) (*Asset, error) {
	if to.UserID == "" && to.ProjectID == "" {
		return nil, fmt.Errorf("%w: assignment needs a user or project", ErrInvalidAsset)
	}
	return r.setAssignment(ctx, id, func(a *Asset) error {
		if a.Status != StatusAvailable {
			return fmt.Errorf("%w: asset is %s", ErrNotAvailable, a.Status)
		}
		a.Status = StatusAssigned
		a.AssignedTo = to.UserID
		a.ProjectID = to.ProjectID
		return nil
	})
}

// Release returns an assigned asset to the pool.
func (r *SQLiteRepository) Release(ctx context.Context, id string) (*Asset, error) {
	return r.setAssignment(ctx, id, func(a *Asset) error {
		if a.Status != StatusAssigned {
			return fmt.Errorf("%w: asset is %s", ErrNotAssigned, a.Status)
		}
		a.Status = StatusAvailable
		a.AssignedTo = ""
		a.ProjectID = ""
		return nil
	})
}

func (r *SQLiteRepository) setAssignment(ctx context.Context, id string, apply func(*Asset) error) (*Asset, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning asset assignment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	a, err := getAsset(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx,
		"UPDATE assets SET status = ?, assigned_to = ?, project_id = ?, updated_at = ? WHERE id = ?",
		string(a.Status), database.NullString(a.AssignedTo), database.NullString(a.ProjectID),
		database.FormatTime(a.UpdatedAt), a.ID)
	if err := mapWriteError(err, "updating asset assignment"); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing asset assignment: %w", err)
	}
	return a, nil
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrAssetTagExists
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown project or user", ErrInvalidAsset)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (*Asset, error) {
	var a Asset
	var project, assigned, purchased sql.NullString
	var status, createdAt, updatedAt string
	err := s.Scan(&a.ID, &a.Tag, &a.Name, &a.Category, &status, &project, &assigned, &purchased,
		&a.PurchaseCostCents, &a.Location, &a.Notes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning asset: %w", err)
	}
	a.Status = Status(status)
	a.ProjectID = project.String
	a.AssignedTo = assigned.String
	a.PurchaseDate = purchased.String
	a.CreatedAt = database.ParseTime(createdAt)
	a.UpdatedAt = database.ParseTime(updatedAt)
	return &a, nil
}
