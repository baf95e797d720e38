package task

import (
	"errors"
	"testing"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database/dbtest"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db := dbtest.SQL(t)
	dbtest.Exec(t, db,
		`INSERT INTO users (id, username, display_name, password_hash) VALUES ('usr-a', 'alice', 'Alice', 'x')`,
		`INSERT INTO projects (id, code, name) VALUES ('prj-1', 'P1', 'One')`,
		`INSERT INTO projects (id, code, name) VALUES ('prj-2', 'P2', 'Two')`,
	)
	return NewSQLiteRepository(db)
}

func TestRepository_TaskLifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := t.Context()

	tk := &Task{ProjectID: "prj-1", Title: "  Write docs ", AssigneeID: "usr-a", DueDate: "2026-01-10", EstimateHours: 3.5}
	if err := repo.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tk.Title != "Write docs" || tk.Status != StatusTodo || tk.CompletedAt != nil {
		t.Errorf("Create() = %+v", tk)
	}

	tk.Status = StatusDone
	if err := repo.Update(ctx, tk); err != nil {
		t.Fatalf("Update(done) error = %v", err)
	}
	got, _ := repo.Get(ctx, tk.ID)
	if got.CompletedAt == nil {
		t.Fatal("CompletedAt should be set on entering done")
	}
	stamp := *got.CompletedAt

	got.Title = "Write better docs"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.Get(ctx, tk.ID)
	if again.CompletedAt == nil || !again.CompletedAt.Equal(stamp) {
		t.Errorf("CompletedAt changed while staying done: %v -> %v", stamp, again.CompletedAt)
	}

	again.Status = StatusInProgress
	if err := repo.Update(ctx, again); err != nil {
		t.Fatal(err)
	}
	reopened, _ := repo.Get(ctx, tk.ID)
	if reopened.CompletedAt != nil {
		t.Error("CompletedAt should clear when leaving done")
	}

	// The project of a task is fixed.
	reopened.ProjectID = "prj-2"
	if err := repo.Update(ctx, reopened); err != nil {
		t.Fatal(err)
	}
	if moved, _ := repo.Get(ctx, tk.ID); moved.ProjectID != "prj-1" {
		t.Errorf("ProjectID = %s, want prj-1", moved.ProjectID)
	}

	if err := repo.Delete(ctx, tk.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, tk.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}

func TestRepository_TaskValidation(t *testing.T) {
	repo := setupRepo(t)
	ctx := t.Context()

	other := &Sprint{ProjectID: "prj-2", Name: "Other"}
	if err := repo.CreateSprint(ctx, other); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		task Task
	}{
		{"no title", Task{ProjectID: "prj-1"}},
		{"bad status", Task{ProjectID: "prj-1", Title: "x", Status: "waiting"}},
		{"negative estimate", Task{ProjectID: "prj-1", Title: "x", EstimateHours: -1}},
		{"bad due date", Task{ProjectID: "prj-1", Title: "x", DueDate: "soon"}},
		{"sprint of other project", Task{ProjectID: "prj-1", Title: "x", SprintID: other.ID}},
		{"unknown sprint", Task{ProjectID: "prj-1", Title: "x", SprintID: "spr-none"}},
		{"unknown assignee", Task{ProjectID: "prj-1", Title: "x", AssigneeID: "usr-none"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(ctx, &tt.task); !errors.Is(err, ErrInvalidTask) {
				t.Errorf("Create() error = %v, want ErrInvalidTask", err)
			}
		})
	}
}

func TestRepository_ListAndCounts(t *testing.T) {
	repo := setupRepo(t)
	ctx := t.Context()

	sp := &Sprint{ProjectID: "prj-1", Name: "S1"}
	if err := repo.CreateSprint(ctx, sp); err != nil {
		t.Fatal(err)
	}
	for _, tk := range []*Task{
		{ProjectID: "prj-1", Title: "a", SprintID: sp.ID, AssigneeID: "usr-a", DueDate: "2020-01-01"},
		{ProjectID: "prj-1", Title: "b", Status: StatusDone, DueDate: "2020-01-01"},
		{ProjectID: "prj-1", Title: "c", Priority: "critical"},
		{ProjectID: "prj-2", Title: "d", AssigneeID: "usr-a", DueDate: "2099-01-01"},
	} {
		if err := repo.Create(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"project", Filter{ProjectID: "prj-1"}, 3},
		{"scoped", Filter{ProjectIDs: []string{"prj-2"}}, 1},
		{"no scope", Filter{ProjectIDs: []string{}}, 0},
		{"assignee", Filter{AssigneeID: "usr-a"}, 2},
		{"sprint", Filter{SprintID: sp.ID}, 1},
		{"backlog", Filter{ProjectID: "prj-1", Backlog: true}, 2},
		{"status", Filter{Status: StatusDone}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, total, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != tt.want || len(tasks) != tt.want {
				t.Errorf("List() total=%d len=%d, want %d", total, len(tasks), tt.want)
			}
		})
	}

	backlog, _, _ := repo.List(ctx, Filter{ProjectID: "prj-1", Backlog: true})
	if backlog[0].Title != "c" {
		t.Errorf("critical task should sort first, got %q", backlog[0].Title)
	}

	counts, err := repo.CountByStatus(ctx, []string{"prj-1"})
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusTodo] != 2 || counts[StatusDone] != 1 || counts[StatusBlocked] != 0 {
		t.Errorf("CountByStatus() = %v", counts)
	}

	overdue, err := repo.CountOverdue(ctx, nil, "2026-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if overdue != 1 {
		t.Errorf("CountOverdue() = %d, want 1", overdue)
	}
	if n, _ := repo.CountOverdue(ctx, []string{}, "2026-03-01"); n != 0 {
		t.Errorf("CountOverdue(empty scope) = %d, want 0", n)
	}
}
