package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/report"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

func today() string {
	return time.Now().UTC().Format(database.DateLayout)
}

// bookHours creates a draft entry for the staff user on a project they belong to.
func bookHours(t *testing.T, f *fixture, projectID string, hours float64) timesheet.Entry {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/time-entries", f.token(t, f.staff), timeEntryRequest{
		ProjectID: ptr(projectID),
		WorkDate:  ptr(today()),
		Hours:     ptr(hours),
		Billable:  ptr(true),
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[timesheet.Entry](t, w)
}

// ─── Time Entry Tests ───────────────────────────────────────────────

func TestTimeEntryApprovalFlow(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "HOURS")
	if err := f.projects.PutMember(t.Context(), p.ID, f.staff.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	staffTok, mgrTok := f.token(t, f.staff), f.token(t, f.manager)

	e := bookHours(t, f, p.ID, 7.5)
	if e.Status != timesheet.StatusDraft || e.UserID != f.staff.ID {
		t.Fatalf("entry = %+v, want draft owned by staff", e)
	}

	// Drafts cannot be approved.
	w := f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/approve", mgrTok, nil)
	expectStatus(t, w, http.StatusConflict)

	w = f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/submit", staffTok, nil)
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/approve", staffTok, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/approve", mgrTok, nil)
	expectStatus(t, w, http.StatusOK)
	approved := decode[timesheet.Entry](t, w)
	if approved.Status != timesheet.StatusApproved || approved.ApproverID != f.manager.ID {
		t.Errorf("entry = %+v, want approved by manager", approved)
	}

	w = f.do(t, http.MethodPatch, "/api/v1/time-entries/"+e.ID, staffTok, timeEntryRequest{Hours: ptr(8.0)})
	expectStatus(t, w, http.StatusConflict)
}

func TestTimeEntryRejectNeedsNote(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "REJ")
	if err := f.projects.PutMember(t.Context(), p.ID, f.staff.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	e := bookHours(t, f, p.ID, 2)
	w := f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/submit", f.token(t, f.staff), nil)
	expectStatus(t, w, http.StatusOK)

	mgrTok := f.token(t, f.manager)
	w = f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/reject", mgrTok, rejectRequest{})
	expectStatus(t, w, http.StatusUnprocessableEntity)

	w = f.do(t, http.MethodPost, "/api/v1/time-entries/"+e.ID+"/reject", mgrTok, rejectRequest{Note: "wrong project"})
	expectStatus(t, w, http.StatusOK)

	// Editing a rejected entry returns it to draft.
	w = f.do(t, http.MethodPatch, "/api/v1/time-entries/"+e.ID, f.token(t, f.staff), timeEntryRequest{Hours: ptr(1.5)})
	expectStatus(t, w, http.StatusOK)
	if got := decode[timesheet.Entry](t, w); got.Status != timesheet.StatusDraft || got.RejectionNote != "" {
		t.Errorf("entry = %+v, want clean draft", got)
	}
}

func TestTimeEntryValidation(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "VAL")
	if err := f.projects.PutMember(t.Context(), p.ID, f.staff.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	tok := f.token(t, f.staff)
	future := time.Now().UTC().AddDate(0, 0, 7).Format(database.DateLayout)

	tests := []struct {
		name string
		req  timeEntryRequest
		want int
	}{
		{"missing project", timeEntryRequest{WorkDate: ptr(today()), Hours: ptr(1.0)}, http.StatusBadRequest},
		{"invisible project", timeEntryRequest{ProjectID: ptr("prj-nope"), WorkDate: ptr(today()), Hours: ptr(1.0)}, http.StatusNotFound},
		{"future date", timeEntryRequest{ProjectID: ptr(p.ID), WorkDate: ptr(future), Hours: ptr(1.0)}, http.StatusUnprocessableEntity},
		{"odd hours", timeEntryRequest{ProjectID: ptr(p.ID), WorkDate: ptr(today()), Hours: ptr(1.1)}, http.StatusUnprocessableEntity},
		{"too many hours", timeEntryRequest{ProjectID: ptr(p.ID), WorkDate: ptr(today()), Hours: ptr(25.0)}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/time-entries", tok, tt.req)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestTimeEntryVisibility(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "VIS")
	if err := f.projects.PutMember(t.Context(), p.ID, f.staff.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	e := bookHours(t, f, p.ID, 4)

	// A second staff member sees neither the list row nor the entry.
	other := *f.staff
	other.ID, other.Username = "", "olive"
	if err := f.users.Create(t.Context(), &other); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if err := f.projects.PutMember(t.Context(), p.ID, other.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	otherTok := f.token(t, &other)

	w := f.do(t, http.MethodGet, "/api/v1/time-entries/"+e.ID, otherTok, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = f.do(t, http.MethodGet, "/api/v1/time-entries", otherTok, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[timeEntryList](t, w).Total; got != 0 {
		t.Errorf("other staff total = %d, want 0", got)
	}

	// The project manager sees it with the hours totalled.
	w = f.do(t, http.MethodGet, "/api/v1/time-entries?project_id="+p.ID, f.token(t, f.manager), nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[timeEntryList](t, w)
	if list.Total != 1 || list.Hours != 4 {
		t.Errorf("manager list = %+v, want 1 entry of 4h", list)
	}

	w = f.do(t, http.MethodGet, "/api/v1/time-entries?from=yesterday", f.token(t, f.manager), nil)
	expectStatus(t, w, http.StatusBadRequest)
}

// ─── Dashboard Tests ────────────────────────────────────────────────

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "DASH")
	if err := f.projects.PutMember(t.Context(), p.ID, f.staff.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	bookHours(t, f, p.ID, 3)

	w := f.do(t, http.MethodGet, "/api/v1/dashboard", f.token(t, f.staff), nil)
	expectStatus(t, w, http.StatusOK)

	body := decode[map[string]any](t, w)
	for _, key := range []string{
		"projects_by_status", "overdue_tasks", "open_risks_by_level", "pending_changes",
		"hours_this_week", "my_hours_this_week", "week_start", "today",
	} {
		if _, ok := body[key]; !ok {
			t.Errorf("dashboard missing %q", key)
		}
	}
	if body["my_hours_this_week"] != float64(3) {
		t.Errorf("my_hours_this_week = %v, want 3", body["my_hours_this_week"])
	}
}

func TestWeekStart(t *testing.T) {
	wed := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		setting string
		want    string
	}{
		{"", "2026-10-12"},
		{"monday", "2026-10-12"},
		{"Sunday", "2026-10-11"},
	}
	for _, tt := range tests {
		s := &Server{}
		s.org.WeekStart = tt.setting
		if got := s.weekStart(wed).Format(database.DateLayout); got != tt.want {
			t.Errorf("weekStart(%q) = %s, want %s", tt.setting, got, tt.want)
		}
	}
}

// ─── Export Tests ───────────────────────────────────────────────────

func TestTimesheetExport(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "XLS")
	if err := f.projects.PutMember(t.Context(), p.ID, f.staff.ID, ""); err != nil {
		t.Fatalf("PutMember() error = %v", err)
	}
	bookHours(t, f, p.ID, 2)
	bookHours(t, f, p.ID, 1.25)

	w := f.do(t, http.MethodGet, "/api/v1/reports/timesheet.xlsx", f.token(t, f.manager), nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != report.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "timesheet-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if got := w.Header().Get("X-Export-Rows"); got != "2" {
		t.Errorf("X-Export-Rows = %q, want 2", got)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Entries")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want header plus 2", len(rows))
	}
}

func TestRiskExportOutOfScope(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "RSK")

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/risks/export.xlsx", f.token(t, f.manager), nil)
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/api/v1/projects/prj-missing/risks/export.xlsx", f.token(t, f.manager), nil)
	expectStatus(t, w, http.StatusNotFound)
}
