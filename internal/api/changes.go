package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/change"
	"github.com/mohamed54683/pm-sub003/internal/project"
)

type changeRequest struct {
	Title              *string           `json:"title,omitempty"`
	Description        *string           `json:"description,omitempty"`
	Justification      *string           `json:"justification,omitempty"`
	ScheduleImpactDays *int              `json:"schedule_impact_days,omitempty"`
	CostImpactCents    *int64            `json:"cost_impact_cents,omitempty"`
	Priority           *project.Priority `json:"priority,omitempty"`
}

func (req changeRequest) apply(c *change.ChangeRequest) {
	setValue(&c.Title, req.Title)
	setValue(&c.Description, req.Description)
	setValue(&c.Justification, req.Justification)
	setValue(&c.ScheduleImpactDays, req.ScheduleImpactDays)
	setValue(&c.CostImpactCents, req.CostImpactCents)
	setValue(&c.Priority, req.Priority)
}

type transitionRequest struct {
	Action change.Action `json:"action"`
	Note   string        `json:"note,omitempty"`
}

type changeDetail struct {
	*change.ChangeRequest
	History []change.HistoryEntry `json:"history"`
}

func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	changes, err := s.changes.List(r.Context(), change.Filter{
		ProjectID: id,
		Status:    change.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.writeDomainError(w, r, "list change requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes, "count": len(changes)})
}

// handleCreateChange files a draft change request.
func (s *Server) handleCreateChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req changeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}

	c := &change.ChangeRequest{ProjectID: id, RequestedBy: principalFrom(r.Context()).UserID}
	req.apply(c)
	if err := s.changes.Create(r.Context(), c); err != nil {
		s.writeDomainError(w, r, "create change request", err)
		return
	}
	s.emit(r, "change", audit.ActionCreate, c.ID, c.ProjectID, map[string]any{"reference": c.Reference})
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) loadChange(w http.ResponseWriter, r *http.Request) (*change.ChangeRequest, bool) {
	c, err := s.changes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get change request", err)
		return nil, false
	}
	if !s.checkProject(w, r, c.ProjectID, accessRead, "change request not found") {
		return nil, false
	}
	return c, true
}

// handleGetChange returns a request with its transition history.
func (s *Server) handleGetChange(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadChange(w, r)
	if !ok {
		return
	}
	history, err := s.changes.History(r.Context(), c.ID)
	if err != nil {
		s.writeDomainError(w, r, "change history", err)
		return
	}
	writeJSON(w, http.StatusOK, changeDetail{ChangeRequest: c, History: history})
}

// handleUpdateChange edits a draft. Only the requester and project
// managers may touch it.
func (s *Server) handleUpdateChange(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	c, ok := s.loadChange(w, r)
	if !ok || !s.ownsChange(w, r, c) {
		return
	}
	req.apply(c)
	if err := s.changes.Update(r.Context(), c); err != nil {
		s.writeDomainError(w, r, "update change request", err)
		return
	}
	s.emit(r, "change", audit.ActionUpdate, c.ID, c.ProjectID, nil)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteChange(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadChange(w, r)
	if !ok || !s.ownsChange(w, r, c) {
		return
	}
	if err := s.changes.Delete(r.Context(), c.ID); err != nil {
		s.writeDomainError(w, r, "delete change request", err)
		return
	}
	s.emit(r, "change", audit.ActionDelete, c.ID, c.ProjectID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleTransitionChange moves a request through its workflow. Review,
// implementation and decisions need manage rights on the project;
// decisions also need change:approve.
func (s *Server) handleTransitionChange(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Action == "" {
		writeBadRequest(w, "action is required")
		return
	}
	c, ok := s.loadChange(w, r)
	if !ok {
		return
	}

	caller := principalFrom(r.Context())
	switch {
	case change.IsDecision(req.Action) && !auth.HasPermission(caller.Role, auth.PermChangeApprove):
		writeForbidden(w, "insufficient permissions")
		return
	case change.RequiresManager(req.Action):
		if !canManage(r, c.ProjectID) {
			writeForbidden(w, "only project managers can "+string(req.Action)+" change requests")
			return
		}
	default:
		if !s.ownsChange(w, r, c) {
			return
		}
	}

	updated, err := s.changes.Transition(r.Context(), c.ID, req.Action, caller.UserID, req.Note)
	if err != nil {
		s.writeDomainError(w, r, "transition change request", err)
		return
	}

	s.emit(r, "change", string(req.Action), updated.ID, updated.ProjectID, map[string]any{
		"from": c.Status,
		"to":   updated.Status,
	})
	if req.Action == change.ActionApprove && updated.CostImpactCents != 0 {
		s.emit(r, "budget", audit.ActionUpdate, updated.ID, updated.ProjectID, map[string]any{
			"change_request": updated.Reference,
			"cost_cents":     updated.CostImpactCents,
		})
		s.recordBudgetSnapshot(r, updated.ProjectID)
	}
	writeJSON(w, http.StatusOK, updated)
}

// ownsChange allows the requester and project managers.
func (s *Server) ownsChange(w http.ResponseWriter, r *http.Request, c *change.ChangeRequest) bool {
	if c.RequestedBy == principalFrom(r.Context()).UserID || canManage(r, c.ProjectID) {
		return true
	}
	writeForbidden(w, "only the requester or a project manager can do this")
	return false
}
