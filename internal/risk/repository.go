package risk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// Repository defines risk register persistence.
type Repository interface {
	Create(ctx context.Context, r *Risk) error
	Get(ctx context.Context, id string) (*Risk, error)
	List(ctx context.Context, filter Filter) ([]Risk, error)
	Update(ctx context.Context, r *Risk) error
	Delete(ctx context.Context, id string) error
	Matrix(ctx context.Context, projectID string) (*Matrix, error)
	CountOpenByLevel(ctx context.Context, projectIDs []string) (map[Level]int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed risk repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const riskColumns = `id, project_id, title, description, category, probability, impact, score,
	status, response_strategy, owner_id, mitigation_plan, due_date, created_by, created_at, updated_at`

// Create validates and inserts a risk. Score and level are derived.
func (r *SQLiteRepository) Create(ctx context.Context, rk *Risk) error {
	applyDefaults(rk)
	if err := Validate(rk); err != nil {
		return err
	}
	if rk.ID == "" {
		rk.ID = database.NewID("rsk")
	}
	now := time.Now().UTC().Truncate(time.Second)
	rk.CreatedAt, rk.UpdatedAt = now, now
	rk.Score = Score(rk.Probability, rk.Impact)
	rk.Level = LevelFor(rk.Score)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO risks (id, project_id, title, description, category, probability, impact, status,
			response_strategy, owner_id, mitigation_plan, due_date, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rk.ID, rk.ProjectID, rk.Title, rk.Description, string(rk.Category), rk.Probability, rk.Impact,
		string(rk.Status), string(rk.ResponseStrategy), database.NullString(rk.OwnerID),
		rk.MitigationPlan, database.NullString(rk.DueDate), database.NullString(rk.CreatedBy),
		database.FormatTime(now), database.FormatTime(now))
	return mapWriteError(err, "inserting risk")
}

// Get returns a risk by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Risk, error) {
	rk, err := scanRisk(r.db.QueryRowContext(ctx, "SELECT "+riskColumns+" FROM risks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRiskNotFound
	}
	return rk, err
}

// List returns risks ordered by score, highest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Risk, error) {
	where, args := buildWhere(filter)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+riskColumns+" FROM risks"+where+" ORDER BY score DESC, created_at, id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying risks: %w", err)
	}
	defer rows.Close()

	risks := []Risk{}
	for rows.Next() {
		rk, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		risks = append(risks, *rk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating risks: %w", err)
	}
	return risks, nil
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
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.OpenOnly {
		conds = append(conds, "status != 'closed'")
	}
	if f.MinScore > 0 {
		conds = append(conds, "score >= ?")
		args = append(args, f.MinScore)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update saves all mutable fields. The project of a risk cannot change.
func (r *SQLiteRepository) Update(ctx context.Context, rk *Risk) error {
	existing, err := r.Get(ctx, rk.ID)
	if err != nil {
		return err
	}
	rk.ProjectID = existing.ProjectID
	rk.CreatedBy = existing.CreatedBy
	rk.CreatedAt = existing.CreatedAt
	applyDefaults(rk)
	if err := Validate(rk); err != nil {
		return err
	}
	rk.Score = Score(rk.Probability, rk.Impact)
	rk.Level = LevelFor(rk.Score)
	rk.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE risks SET title = ?, description = ?, category = ?, probability = ?, impact = ?,
			status = ?, response_strategy = ?, owner_id = ?, mitigation_plan = ?, due_date = ?,
			updated_at = ?
		 WHERE id = ?`,
		rk.Title, rk.Description, string(rk.Category), rk.Probability, rk.Impact,
		string(rk.Status), string(rk.ResponseStrategy), database.NullString(rk.OwnerID),
		rk.MitigationPlan, database.NullString(rk.DueDate), database.FormatTime(rk.UpdatedAt), rk.ID)
	if err := mapWriteError(err, "updating risk"); err != nil {
		return err
	}
	return database.RequireAffected(result, ErrRiskNotFound)
}

// Delete removes a risk.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM risks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting risk: %w", err)
	}
	return database.RequireAffected(result, ErrRiskNotFound)
}

// Matrix builds the probability/impact matrix of a project's open risks.
func (r *SQLiteRepository) Matrix(ctx context.Context, projectID string) (*Matrix, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT probability, impact, COUNT(*) FROM risks
		 WHERE project_id = ? AND status != 'closed' GROUP BY probability, impact`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying risk matrix: %w", err)
	}
	defer rows.Close()

	m := &Matrix{ProjectID: projectID}
	for rows.Next() {
		var p, i, n int
		if err := rows.Scan(&p, &i, &n); err != nil {
			return nil, fmt.Errorf("scanning matrix cell: %w", err)
		}
		m.Cells[p-1][i-1] = n
		m.Total += n
	}
	return m, rows.Err()
}

// CountOpenByLevel counts open risks per level within a scope (nil = all).
func (r *SQLiteRepository) CountOpenByLevel(ctx context.Context, projectIDs []string) (map[Level]int, error) {
	where, args := buildWhere(Filter{ProjectIDs: projectIDs, OpenOnly: true})
	rows, err := r.db.QueryContext(ctx, "SELECT score FROM risks"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying open risks: %w", err)
	}
	defer rows.Close()

	counts := make(map[Level]int, len(Levels))
	for _, l := range Levels {
		counts[l] = 0
	}
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scanning risk score: %w", err)
		}
		counts[LevelFor(score)]++
	}
	return counts, rows.Err()
}

func mapWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown project or owner", ErrInvalidRisk)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRisk(s scanner) (*Risk, error) {
	var rk Risk
	var owner, due, createdBy sql.NullString
	var category, status, strategy, createdAt, updatedAt string
	err := s.Scan(&rk.ID, &rk.ProjectID, &rk.Title, &rk.Description, &category, &rk.Probability,
		&rk.Impact, &rk.Score, &status, &strategy, &owner, &rk.MitigationPlan, &due, &createdBy,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning risk: %w", err)
	}
	rk.Category = Category(category)
	rk.Status = Status(status)
	rk.ResponseStrategy = Strategy(strategy)
	rk.Level = LevelFor(rk.Score)
	rk.OwnerID = owner.String
	rk.DueDate = due.String
	rk.CreatedBy = createdBy.String
	rk.CreatedAt = database.ParseTime(createdAt)
	rk.UpdatedAt = database.ParseTime(updatedAt)
	return &rk, nil
}
