package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mohamed54683/pm-sub003/internal/asset"
	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/change"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/config"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database/dbtest"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/logging"
	"github.com/mohamed54683/pm-sub003/internal/org"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/task"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters-long"
	testPassword = "correct-horse-battery"
)

// fixture is a server over a fresh database with three users: an admin, a
// manager who runs the Engineering department, and a staff member in it.
type fixture struct {
	srv     *Server
	handler http.Handler

	users    *auth.SQLiteUserRepository
	projects *project.SQLiteRepository
	tasks    *task.SQLiteRepository

	admin, manager, staff *auth.User
	dept                  *org.Department
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	users := auth.NewUserRepository(db.DB)
	hasher := auth.Hasher{Algorithm: auth.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost}
	svc := auth.NewService(users, auth.NewTokenRepository(db.DB), auth.NewAPITokenRepository(db.DB), hasher,
		auth.SessionConfig{
			Secret:            testSecret,
			AccessTTL:         15 * time.Minute,
			RefreshTTL:        24 * time.Hour,
			MaxAttempts:       3,
			LockoutDuration:   time.Minute,
			PasswordMinLength: 8,
		}, logger.Logger)

	departments := org.NewSQLiteRepository(db.DB)
	projects := project.NewSQLiteRepository(db.DB)
	tasks := task.NewSQLiteRepository(db.DB)

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:     config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security: config.SecurityConfig{
			JWT:  config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15, RefreshTokenTTL: 1440},
			CSRF: config.CSRFConfig{Enabled: true},
		},
		Exports:     config.ExportConfig{MaxRows: 1000},
		Org:         config.OrganisationConfig{Name: "Test", Timezone: "UTC", WeekStart: "monday"},
		Logger:      logger,
		DB:          db,
		Auth:        svc,
		Users:       users,
		Scopes:      auth.NewScopeResolver(db.DB),
		Departments: departments,
		Projects:    projects,
		Tasks:       tasks,
		Sprints:     tasks,
		Risks:       risk.NewSQLiteRepository(db.DB),
		Changes:     change.NewSQLiteRepository(db.DB),
		Assets:      asset.NewSQLiteRepository(db.DB),
		Budget:      budget.NewSQLiteRepository(db.DB),
		Timesheets:  timesheet.NewSQLiteRepository(db.DB),
		AuditRepo:   audit.NewSQLiteRepository(db.DB),
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f := &fixture{
		srv:      srv,
		handler:  srv.Handler(),
		users:    users,
		projects: projects,
		tasks:    tasks,
	}

	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	mkUser := func(username string, role auth.Role) *auth.User {
		u := &auth.User{
			Username:     username,
			DisplayName:  username,
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
		}
		if err := users.Create(t.Context(), u); err != nil {
			t.Fatalf("creating %s: %v", username, err)
		}
		return u
	}
	f.admin = mkUser("admin", auth.RoleAdmin)
	f.manager = mkUser("maria", auth.RoleManager)
	f.staff = mkUser("sam", auth.RoleStaff)

	f.dept = &org.Department{Name: "Engineering", Code: "ENG", ManagerID: f.manager.ID}
	if err := departments.Create(t.Context(), f.dept); err != nil {
		t.Fatalf("creating department: %v", err)
	}
	f.staff.DepartmentID = f.dept.ID
	if err := users.Update(t.Context(), f.staff); err != nil {
		t.Fatalf("updating staff: %v", err)
	}
	return f
}

// token mints an access token for u without going through login.
func (f *fixture) token(t *testing.T, u *auth.User) string {
	t.Helper()
	sess, err := f.srv.auth.IssueSession(t.Context(), u, "test")
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	return sess.AccessToken
}

// project creates a project in the fixture department.
func (f *fixture) project(t *testing.T, code string) *project.Project {
	t.Helper()
	p := &project.Project{Code: code, Name: "Project " + code, DepartmentID: f.dept.ID, ManagerID: f.manager.ID}
	if err := f.projects.Create(t.Context(), p); err != nil {
		t.Fatalf("creating project %s: %v", code, err)
	}
	return p
}

// do sends a request with a bearer token (if any) and a JSON body (if any).
func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

// decode unmarshals a response body, failing the test on error.
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}
