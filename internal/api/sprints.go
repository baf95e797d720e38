package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/task"
)

type sprintRequest struct {
	Name      *string `json:"name,omitempty"`
	Goal      *string `json:"goal,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

func (req sprintRequest) apply(sp *task.Sprint) {
	setValue(&sp.Name, req.Name)
	setValue(&sp.Goal, req.Goal)
	setValue(&sp.StartDate, req.StartDate)
	setValue(&sp.EndDate, req.EndDate)
}

func (s *Server) handleListSprints(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	sprints, err := s.sprints.ListSprints(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "list sprints", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sprints": sprints, "count": len(sprints)})
}

func (s *Server) handleCreateSprint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sprintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.checkProject(w, r, id, accessManage, "project not found") {
		return
	}

	sp := &task.Sprint{ProjectID: id}
	req.apply(sp)
	if err := s.sprints.CreateSprint(r.Context(), sp); err != nil {
		s.writeDomainError(w, r, "create sprint", err)
		return
	}
	s.emit(r, "sprint", audit.ActionCreate, sp.ID, sp.ProjectID, map[string]any{"name": sp.Name})
	writeJSON(w, http.StatusCreated, sp)
}

// loadSprint fetches a sprint and applies the scope of its project.
func (s *Server) loadSprint(w http.ResponseWriter, r *http.Request, manage bool) (*task.Sprint, bool) {
	sp, err := s.sprints.GetSprint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get sprint", err)
		return nil, false
	}
	if !s.checkProject(w, r, sp.ProjectID, manage, "sprint not found") {
		return nil, false
	}
	return sp, true
}

func (s *Server) handleGetSprint(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.loadSprint(w, r, accessRead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleUpdateSprint(w http.ResponseWriter, r *http.Request) {
	var req sprintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sp, ok := s.loadSprint(w, r, accessManage)
	if !ok {
		return
	}
	req.apply(sp)
	if err := s.sprints.UpdateSprint(r.Context(), sp); err != nil {
		s.writeDomainError(w, r, "update sprint", err)
		return
	}
	s.emit(r, "sprint", audit.ActionUpdate, sp.ID, sp.ProjectID, nil)
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleDeleteSprint(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.loadSprint(w, r, accessManage)
	if !ok {
		return
	}
	if err := s.sprints.DeleteSprint(r.Context(), sp.ID); err != nil {
		s.writeDomainError(w, r, "delete sprint", err)
		return
	}
	s.emit(r, "sprint", audit.ActionDelete, sp.ID, sp.ProjectID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartSprint(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.loadSprint(w, r, accessManage)
	if !ok {
		return
	}
	started, err := s.sprints.StartSprint(r.Context(), sp.ID)
	if err != nil {
		s.writeDomainError(w, r, "start sprint", err)
		return
	}
	s.emit(r, "sprint", "start", started.ID, started.ProjectID, nil)
	writeJSON(w, http.StatusOK, started)
}

// handleCompleteSprint closes the sprint; unfinished tasks go back to the backlog.
func (s *Server) handleCompleteSprint(w http.ResponseWriter, r *http.Request) {
	sp, ok := s.loadSprint(w, r, accessManage)
	if !ok {
		return
	}
	result, err := s.sprints.CompleteSprint(r.Context(), sp.ID)
	if err != nil {
		s.writeDomainError(w, r, "complete sprint", err)
		return
	}
	s.emit(r, "sprint", "complete", sp.ID, sp.ProjectID, map[string]any{
		"completed":    result.Completed,
		"carried_over": result.CarriedOver,
	})
	writeJSON(w, http.StatusOK, result)
}
