package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/task"
)

type taskRequest struct {
	SprintID      *string           `json:"sprint_id,omitempty"`
	Title         *string           `json:"title,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Status        *task.Status      `json:"status,omitempty"`
	Priority      *project.Priority `json:"priority,omitempty"`
	AssigneeID    *string           `json:"assignee_id,omitempty"`
	EstimateHours *float64          `json:"estimate_hours,omitempty"`
	DueDate       *string           `json:"due_date,omitempty"`
	SortOrder     *int              `json:"sort_order,omitempty"`
}

func (req taskRequest) apply(t *task.Task) {
	setValue(&t.SprintID, req.SprintID)
	setValue(&t.Title, req.Title)
	setValue(&t.Description, req.Description)
	setValue(&t.Status, req.Status)
	setValue(&t.Priority, req.Priority)
	setValue(&t.AssigneeID, req.AssigneeID)
	setValue(&t.EstimateHours, req.EstimateHours)
	setValue(&t.DueDate, req.DueDate)
	setValue(&t.SortOrder, req.SortOrder)
}

type taskList struct {
	Tasks  []task.Task `json:"tasks"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset"`
}

// taskFilter reads the shared task list query parameters.
func taskFilter(r *http.Request) (task.Filter, error) {
	q := r.URL.Query()
	f := task.Filter{
		Status:     task.Status(q.Get("status")),
		AssigneeID: q.Get("assignee_id"),
		SprintID:   q.Get("sprint_id"),
	}
	var err error
	if f.Backlog, err = queryBool(r, "backlog"); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = queryPage(r); err != nil {
		return f, err
	}
	if f.Status != "" && !task.ValidStatus(f.Status) {
		return f, errInvalidParam("status")
	}
	return f, nil
}

func (s *Server) handleListProjectTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	f, err := taskFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	f.ProjectID = id
	s.writeTasks(w, r, f)
}

// handleMyTasks lists tasks assigned to the caller across visible projects.
func (s *Server) handleMyTasks(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	p := principalFrom(r.Context())
	f.AssigneeID = p.UserID
	f.ProjectIDs = p.Scope.Restricted()
	s.writeTasks(w, r, f)
}

func (s *Server) writeTasks(w http.ResponseWriter, r *http.Request, f task.Filter) {
	tasks, total, err := s.tasks.List(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, taskList{Tasks: tasks, Total: total, Limit: f.Limit, Offset: f.Offset})
}

// handleCreateTask adds a task. Anyone who can see the project may file
// one; without manage rights it can only be assigned to the caller.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	caller := principalFrom(r.Context())
	if req.AssigneeID != nil && *req.AssigneeID != "" && *req.AssigneeID != caller.UserID && !canManage(r, id) {
		writeForbidden(w, "only project managers can assign tasks to others")
		return
	}

	t := &task.Task{ProjectID: id, ReporterID: caller.UserID}
	req.apply(t)
	if err := s.tasks.Create(r.Context(), t); err != nil {
		s.writeDomainError(w, r, "create task", err)
		return
	}
	s.emit(r, "task", audit.ActionCreate, t.ID, t.ProjectID, map[string]any{"title": t.Title})
	writeJSON(w, http.StatusCreated, t)
}

// loadTask fetches a task through the scope of its project.
func (s *Server) loadTask(w http.ResponseWriter, r *http.Request) (*task.Task, bool) {
	t, err := s.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get task", err)
		return nil, false
	}
	if !s.checkProject(w, r, t.ProjectID, accessRead, "task not found") {
		return nil, false
	}
	return t, true
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTask lets project managers edit any task, and the assignee
// or reporter edit their own without reassigning it to someone else.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	t, ok := s.loadTask(w, r)
	if !ok {
		return
	}

	caller := principalFrom(r.Context()).UserID
	if !canManage(r, t.ProjectID) {
		if t.AssigneeID != caller && t.ReporterID != caller {
			writeForbidden(w, "you can only edit tasks assigned to or reported by you")
			return
		}
		if req.AssigneeID != nil && *req.AssigneeID != "" && *req.AssigneeID != caller && *req.AssigneeID != t.AssigneeID {
			writeForbidden(w, "only project managers can assign tasks to others")
			return
		}
	}

	before := t.Status
	req.apply(t)
	if err := s.tasks.Update(r.Context(), t); err != nil {
		s.writeDomainError(w, r, "update task", err)
		return
	}

	var details map[string]any
	if t.Status != before {
		details = map[string]any{"from": before, "to": t.Status}
	}
	s.emit(r, "task", audit.ActionUpdate, t.ID, t.ProjectID, details)
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTask is allowed to project managers and the task's reporter.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	if !canManage(r, t.ProjectID) && t.ReporterID != principalFrom(r.Context()).UserID {
		writeForbidden(w, "you can only delete tasks you reported")
		return
	}
	if err := s.tasks.Delete(r.Context(), t.ID); err != nil {
		s.writeDomainError(w, r, "delete task", err)
		return
	}
	s.emit(r, "task", audit.ActionDelete, t.ID, t.ProjectID, nil)
	w.WriteHeader(http.StatusNoContent)
}
