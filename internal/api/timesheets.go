package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

type timeEntryRequest struct {
	ProjectID   *string  `json:"project_id,omitempty"`
	TaskID      *string  `json:"task_id,omitempty"`
	WorkDate    *string  `json:"work_date,omitempty"`
	Hours       *float64 `json:"hours,omitempty"`
	Description *string  `json:"description,omitempty"`
	Billable    *bool    `json:"billable,omitempty"`
}

func (req timeEntryRequest) apply(e *timesheet.Entry) {
	setValue(&e.TaskID, req.TaskID)
	setValue(&e.WorkDate, req.WorkDate)
	setValue(&e.Hours, req.Hours)
	setValue(&e.Description, req.Description)
	setValue(&e.Billable, req.Billable)
}

type rejectRequest struct {
	Note string `json:"note"`
}

type timeEntryList struct {
	Entries []timesheet.Entry `json:"entries"`
	Total   int               `json:"total"`
	Hours   float64           `json:"hours"`
}

// timeFilter reads list filters and narrows them to what the caller may
// see: their own entries plus entries of projects they manage.
func timeFilter(r *http.Request) (timesheet.Filter, error) {
	q := r.URL.Query()
	p := principalFrom(r.Context())
	f := timesheet.Filter{
		UserID:    q.Get("user_id"),
		ProjectID: q.Get("project_id"),
		Status:    timesheet.Status(q.Get("status")),
	}
	if p.Scope != nil {
		f.ProjectIDs = p.Scope.ManageProjectIDs
		if f.ProjectIDs == nil {
			f.ProjectIDs = []string{}
		}
		f.VisibleTo = p.UserID
	}

	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = queryPage(r); err != nil {
		return f, err
	}
	switch f.Status {
	case "", timesheet.StatusDraft, timesheet.StatusSubmitted, timesheet.StatusApproved, timesheet.StatusRejected:
	default:
		return f, errInvalidParam("status")
	}
	return f, nil
}

func (s *Server) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	f, err := timeFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	entries, total, err := s.timesheets.List(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, "list time entries", err)
		return
	}
	hours, err := s.timesheets.SumHours(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, "list time entries", err)
		return
	}
	writeJSON(w, http.StatusOK, timeEntryList{Entries: entries, Total: total, Hours: hours})
}

// handleCreateTimeEntry books the caller's own hours on a visible project.
func (s *Server) handleCreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req timeEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.ProjectID == nil || *req.ProjectID == "" {
		writeBadRequest(w, "project_id is required")
		return
	}
	if !s.checkProject(w, r, *req.ProjectID, accessRead, "project not found") {
		return
	}

	e := &timesheet.Entry{UserID: principalFrom(r.Context()).UserID, ProjectID: *req.ProjectID}
	req.apply(e)
	if err := s.timesheets.Create(r.Context(), e); err != nil {
		s.writeDomainError(w, r, "create time entry", err)
		return
	}
	s.emit(r, "time_entry", audit.ActionCreate, e.ID, e.ProjectID, map[string]any{"hours": e.Hours})
	writeJSON(w, http.StatusCreated, e)
}

// loadTimeEntry returns an entry the caller owns or can manage.
func (s *Server) loadTimeEntry(w http.ResponseWriter, r *http.Request) (*timesheet.Entry, bool) {
	e, err := s.timesheets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get time entry", err)
		return nil, false
	}
	if e.UserID != principalFrom(r.Context()).UserID && !canManage(r, e.ProjectID) {
		writeNotFound(w, "time entry not found")
		return nil, false
	}
	return e, true
}

func (s *Server) handleGetTimeEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadTimeEntry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req timeEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.ProjectID != nil {
		writeBadRequest(w, "project_id cannot be changed; delete the entry and book it again")
		return
	}
	e, ok := s.loadTimeEntry(w, r)
	if !ok {
		return
	}
	req.apply(e)
	if err := s.timesheets.Update(r.Context(), e, principalFrom(r.Context()).UserID); err != nil {
		s.writeDomainError(w, r, "update time entry", err)
		return
	}
	s.emit(r, "time_entry", audit.ActionUpdate, e.ID, e.ProjectID, nil)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadTimeEntry(w, r)
	if !ok {
		return
	}
	if err := s.timesheets.Delete(r.Context(), e.ID, principalFrom(r.Context()).UserID); err != nil {
		s.writeDomainError(w, r, "delete time entry", err)
		return
	}
	s.emit(r, "time_entry", audit.ActionDelete, e.ID, e.ProjectID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitTimeEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadTimeEntry(w, r)
	if !ok {
		return
	}
	updated, err := s.timesheets.Submit(r.Context(), e.ID, principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeDomainError(w, r, "submit time entry", err)
		return
	}
	s.emit(r, "time_entry", "submit", updated.ID, updated.ProjectID, nil)
	writeJSON(w, http.StatusOK, updated)
}

// handleApproveTimeEntry accepts a submitted entry and records the hours
// in InfluxDB.
func (s *Server) handleApproveTimeEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadTimeEntry(w, r)
	if !ok || !s.checkProject(w, r, e.ProjectID, accessManage, "time entry not found") {
		return
	}
	updated, err := s.timesheets.Approve(r.Context(), e.ID, principalFrom(r.Context()).UserID)
	if err != nil {
		s.writeDomainError(w, r, "approve time entry", err)
		return
	}

	if day, err := time.Parse(database.DateLayout, updated.WorkDate); err == nil {
		s.influx.WriteTimeEntry(updated.ProjectID, updated.UserID, day, updated.Hours, updated.Billable)
	}
	s.emit(r, "time_entry", "approve", updated.ID, updated.ProjectID, map[string]any{"hours": updated.Hours})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRejectTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	e, ok := s.loadTimeEntry(w, r)
	if !ok || !s.checkProject(w, r, e.ProjectID, accessManage, "time entry not found") {
		return
	}
	updated, err := s.timesheets.Reject(r.Context(), e.ID, principalFrom(r.Context()).UserID, req.Note)
	if err != nil {
		s.writeDomainError(w, r, "reject time entry", err)
		return
	}
	s.emit(r, "time_entry", "reject", updated.ID, updated.ProjectID, nil)
	writeJSON(w, http.StatusOK, updated)
}
