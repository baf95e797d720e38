package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// Repository defines department persistence.
type Repository interface {
	Create(ctx context.Context, d *Department) error
	Get(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed department repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDepartment = `SELECT d.id, d.name, d.code, d.description, d.manager_id,
	(SELECT COUNT(*) FROM projects p WHERE p.department_id = d.id),
	(SELECT COUNT(*) FROM users u WHERE u.department_id = d.id),
	d.created_at, d.updated_at
	FROM departments d`

// Create validates and inserts a department. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, d *Department) error {
	d.Normalise()
	if err := Validate(d); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = database.NewID("dept")
	}
	now := time.Now().UTC().Truncate(time.Second)
	d.CreatedAt, d.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO departments (id, name, code, description, manager_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Code, d.Description, database.NullString(d.ManagerID),
		database.FormatTime(now), database.FormatTime(now))
	return mapWriteError(err, "inserting department")
}

// Get returns a department by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Department, error) {
	d, err := scanDepartment(r.db.QueryRowContext(ctx, selectDepartment+" WHERE d.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDepartmentNotFound
	}
	return d, err
}

// List returns all departments ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.db.QueryContext(ctx, selectDepartment+" ORDER BY d.name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("querying departments: %w", err)
	}
	defer rows.Close()

	depts := []Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		depts = append(depts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating departments: %w", err)
	}
	return depts, nil
}

// Update modifies name, code, description and manager.
func (r *SQLiteRepository) Update(ctx context.Context, d *Department) error {
	d.Normalise()
	if err := Validate(d); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, code = ?, description = ?, manager_id = ?, updated_at = ?
		 WHERE id = ?`,
		d.Name, d.Code, d.Description, database.NullString(d.ManagerID),
		database.FormatTime(d.UpdatedAt), d.ID)
	if err := mapWriteError(err, "updating department"); err != nil {
		return err
	}
	return database.RequireAffected(result, ErrDepartmentNotFound)
}

// Delete removes a department. Users are detached; projects block deletion.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	var projects int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE department_id = ?", id).Scan(&projects); err != nil {
		return fmt.Errorf("counting department projects: %w", err)
	}
	if projects > 0 {
		return ErrDepartmentInUse
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM departments WHERE id = ?", id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrDepartmentInUse
		}
		return fmt.Errorf("deleting department: %w", err)
	}
	return database.RequireAffected(result, ErrDepartmentNotFound)
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrDepartmentCodeExists
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: manager does not exist", ErrInvalidDepartment)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDepartment(s scanner) (*Department, error) {
	var d Department
	var manager sql.NullString
	var createdAt, updatedAt string
	err := s.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &manager,
		&d.ProjectCount, &d.UserCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning department: %w", err)
	}
	d.ManagerID = manager.String
	d.CreatedAt = database.ParseTime(createdAt)
	d.UpdatedAt = database.ParseTime(updatedAt)
	return &d, nil
}
