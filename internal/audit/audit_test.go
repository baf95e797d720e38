package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database/dbtest"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/logging"
)

func discardLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestRepository_CreateList(t *testing.T) {
	repo := NewSQLiteRepository(dbtest.SQL(t))
	ctx := t.Context()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []AuditLog{
		{Action: ActionLogin, EntityType: "user", EntityID: "usr-a", UserID: "usr-a"},
		{Action: ActionCreate, EntityType: "project", EntityID: "prj-1", UserID: "usr-a", Details: map[string]any{"code": "P1"}},
		{Action: ActionUpdate, EntityType: "project", EntityID: "prj-1", UserID: "usr-b"},
		{Action: ActionTransition, EntityType: "change_request", EntityID: "chg-1", UserID: "usr-b"},
	}
	for i := range entries {
		entries[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 4 || all.Limit != 50 || all.Logs[0].Action != ActionTransition {
		t.Errorf("List() = total %d, limit %d, first %+v", all.Total, all.Limit, all.Logs[0])
	}
	if all.Logs[2].Details["code"] != "P1" || all.Logs[2].Source != "api" {
		t.Errorf("details round trip = %+v", all.Logs[2])
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"action", Filter{Action: ActionUpdate}, 1},
		{"entity type", Filter{EntityType: "project"}, 2},
		{"entity id", Filter{EntityID: "usr-a"}, 1},
		{"user", Filter{UserID: "usr-b"}, 2},
		{"combined", Filter{EntityType: "project", UserID: "usr-a"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil || got.Total != tt.want || len(got.Logs) != tt.want {
				t.Errorf("List() = %+v, %v; want %d", got, err, tt.want)
			}
		})
	}

	page, err := repo.List(ctx, Filter{Limit: 1000, Offset: 3})
	if err != nil || page.Limit != 200 || len(page.Logs) != 1 || page.Logs[0].Action != ActionLogin {
		t.Errorf("paged List() = %+v, %v", page, err)
	}
}

type memoryRepo struct {
	mu   sync.Mutex
	logs []AuditLog
	fail bool
}

func (m *memoryRepo) Create(_ context.Context, log *AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memoryRepo) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("not implemented")
}

func TestRecorder_WritesInOrder(t *testing.T) {
	repo := &memoryRepo{}
	rec := NewRecorder(repo, discardLogger(), 16)
	rec.Start()

	for _, id := range []string{"a", "b", "c"} {
		rec.Record(AuditLog{Action: ActionCreate, EntityType: "task", EntityID: id})
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rec.Stop(ctx)

	if len(repo.logs) != 3 {
		t.Fatalf("written = %d, want 3", len(repo.logs))
	}
	for i, id := range []string{"a", "b", "c"} {
		if repo.logs[i].EntityID != id {
			t.Errorf("logs[%d] = %q, want %q", i, repo.logs[i].EntityID, id)
		}
	}

	// Recording after shutdown is dropped without panicking.
	rec.Record(AuditLog{Action: ActionDelete})
	rec.Stop(ctx)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	repo := &memoryRepo{}
	rec := NewRecorder(repo, discardLogger(), 2)

	// Not started, so the queue only holds two entries.
	for range 5 {
		rec.Record(AuditLog{Action: ActionUpdate})
	}
	if rec.Pending() != 2 || rec.Dropped() != 3 {
		t.Errorf("Pending() = %d, Dropped() = %d, want 2 and 3", rec.Pending(), rec.Dropped())
	}
	rec.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rec.Stop(ctx)

	if len(repo.logs) != 2 {
		t.Errorf("written = %d, want 2", len(repo.logs))
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	if rec.Pending() != 0 || rec.Dropped() != 0 {
		t.Error("nil recorder reported activity")
	}
}

func TestRecorder_SurvivesWriteErrors(t *testing.T) {
	repo := &memoryRepo{fail: true}
	rec := NewRecorder(repo, discardLogger(), 0)
	rec.Start()
	rec.Record(AuditLog{Action: ActionCreate})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rec.Stop(ctx)

	if len(repo.logs) != 0 {
		t.Errorf("written = %d, want 0", len(repo.logs))
	}
}
