package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/task"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

// ─── Request/Response Types ────────────────────────────────────────

type projectRequest struct {
	Code         *string           `json:"code,omitempty"`
	Name         *string           `json:"name,omitempty"`
	Description  *string           `json:"description,omitempty"`
	DepartmentID *string           `json:"department_id,omitempty"`
	ManagerID    *string           `json:"manager_id,omitempty"`
	Status       *project.Status   `json:"status,omitempty"`
	Priority     *project.Priority `json:"priority,omitempty"`
	StartDate    *string           `json:"start_date,omitempty"`
	EndDate      *string           `json:"end_date,omitempty"`
	BudgetCents  *int64            `json:"budget_cents,omitempty"`
	Progress     *int              `json:"progress,omitempty"`
}

func (req projectRequest) apply(p *project.Project) {
	setValue(&p.Code, req.Code)
	setValue(&p.Name, req.Name)
	setValue(&p.Description, req.Description)
	setValue(&p.DepartmentID, req.DepartmentID)
	setValue(&p.ManagerID, req.ManagerID)
	setValue(&p.Status, req.Status)
	setValue(&p.Priority, req.Priority)
	setValue(&p.StartDate, req.StartDate)
	setValue(&p.EndDate, req.EndDate)
	setValue(&p.BudgetCents, req.BudgetCents)
	setValue(&p.Progress, req.Progress)
}

type memberRequest struct {
	Role string `json:"role"`
}

// projectSummary is the at-a-glance position of one project.
type projectSummary struct {
	Project      *project.Project    `json:"project"`
	Tasks        map[task.Status]int `json:"tasks"`
	OverdueTasks int                 `json:"overdue_tasks"`
	OpenRisks    map[risk.Level]int  `json:"open_risks"`
	Pending      int                 `json:"pending_changes"`
	Hours        hoursSummary        `json:"hours"`
	Budget       *budget.Summary     `json:"budget,omitempty"`
}

type hoursSummary struct {
	Logged   float64 `json:"logged"`
	Approved float64 `json:"approved"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleListProjects lists the projects visible to the caller.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := queryPage(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	status := project.Status(q.Get("status"))
	if status != "" && !project.ValidStatus(status) {
		writeBadRequest(w, "invalid status")
		return
	}

	result, err := s.projects.List(r.Context(), project.Filter{
		ProjectIDs:   principalFrom(r.Context()).Scope.Restricted(),
		Status:       status,
		DepartmentID: q.Get("department_id"),
		Query:        q.Get("q"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		s.writeDomainError(w, r, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateProject creates a project. Non-admins may only file projects
// under departments they manage (or none), and default to managing it.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	caller := principalFrom(r.Context())

	p := &project.Project{CreatedBy: caller.UserID}
	req.apply(p)
	if p.ManagerID == "" && caller.Scope != nil {
		p.ManagerID = caller.UserID
	}
	if !s.allowedDepartment(w, r, p.DepartmentID) {
		return
	}
	if caller.Scope != nil && p.ManagerID != caller.UserID && !caller.Scope.ManagesDepartment(p.DepartmentID) {
		writeForbidden(w, "you can only create projects you manage or that belong to your department")
		return
	}

	if err := s.projects.Create(r.Context(), p); err != nil {
		s.writeDomainError(w, r, "create project", err)
		return
	}
	s.logger.Info("project created", "project_id", p.ID, "code", p.Code, "created_by", caller.UserID)
	s.emit(r, "project", audit.ActionCreate, p.ID, p.ID, map[string]any{"code": p.Code})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProject(w, r, chi.URLParam(r, "id"), accessRead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateProject applies a partial update. Status changes follow the
// project lifecycle.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	p, ok := s.loadProject(w, r, chi.URLParam(r, "id"), accessManage)
	if !ok {
		return
	}
	if req.DepartmentID != nil && *req.DepartmentID != p.DepartmentID && !s.allowedDepartment(w, r, *req.DepartmentID) {
		return
	}

	before := p.Status
	req.apply(p)
	if err := s.projects.Update(r.Context(), p); err != nil {
		s.writeDomainError(w, r, "update project", err)
		return
	}

	var details map[string]any
	if p.Status != before {
		details = map[string]any{"from": before, "to": p.Status}
	}
	s.emit(r, "project", audit.ActionUpdate, p.ID, p.ID, details)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessManage, "project not found") {
		return
	}
	if err := s.projects.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, "delete project", err)
		return
	}
	s.emit(r, "project", audit.ActionDelete, id, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleProjectSummary aggregates tasks, risks, changes, hours and, for
// callers allowed to see money, the budget position.
func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProject(w, r, chi.URLParam(r, "id"), accessRead)
	if !ok {
		return
	}
	ctx := r.Context()
	ids := []string{p.ID}
	sum := projectSummary{Project: p}

	var err error
	if sum.Tasks, err = s.tasks.CountByStatus(ctx, ids); err != nil {
		s.writeDomainError(w, r, "project summary", err)
		return
	}
	if sum.OverdueTasks, err = s.tasks.CountOverdue(ctx, ids, s.today()); err != nil {
		s.writeDomainError(w, r, "project summary", err)
		return
	}
	if sum.OpenRisks, err = s.risks.CountOpenByLevel(ctx, ids); err != nil {
		s.writeDomainError(w, r, "project summary", err)
		return
	}
	if sum.Pending, err = s.changes.CountPending(ctx, ids); err != nil {
		s.writeDomainError(w, r, "project summary", err)
		return
	}
	if sum.Hours.Logged, err = s.timesheets.SumHours(ctx, timesheet.Filter{ProjectID: p.ID}); err != nil {
		s.writeDomainError(w, r, "project summary", err)
		return
	}
	if sum.Hours.Approved, err = s.timesheets.SumHours(ctx, timesheet.Filter{
		ProjectID: p.ID,
		Status:    timesheet.StatusApproved,
	}); err != nil {
		s.writeDomainError(w, r, "project summary", err)
		return
	}

	if auth.HasPermission(principalFrom(ctx).Role, auth.PermBudgetRead) {
		if sum.Budget, err = s.budget.Summary(ctx, p.ID, s.now()); err != nil {
			s.writeDomainError(w, r, "project summary", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sum)
}

// ─── Members ───────────────────────────────────────────────────────

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	members, err := s.projects.ListMembers(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "list members", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

// handlePutMember adds a user to the team or changes their role label.
func (s *Server) handlePutMember(w http.ResponseWriter, r *http.Request) {
	id, userID := chi.URLParam(r, "id"), chi.URLParam(r, "userID")
	if !s.checkProject(w, r, id, accessManage, "project not found") {
		return
	}
	var req memberRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}
	if err := s.projects.PutMember(r.Context(), id, userID, req.Role); err != nil {
		s.writeDomainError(w, r, "add member", err)
		return
	}
	s.emit(r, "member", audit.ActionUpdate, userID, id, map[string]any{"role": req.Role})

	members, err := s.projects.ListMembers(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "list members", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, userID := chi.URLParam(r, "id"), chi.URLParam(r, "userID")
	if !s.checkProject(w, r, id, accessManage, "project not found") {
		return
	}
	if err := s.projects.RemoveMember(r.Context(), id, userID); err != nil {
		s.writeDomainError(w, r, "remove member", err)
		return
	}
	s.emit(r, "member", audit.ActionDelete, userID, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// allowedDepartment checks a department assignment for the caller. Admins
// may use any existing department; others only those they manage.
func (s *Server) allowedDepartment(w http.ResponseWriter, r *http.Request, departmentID string) bool {
	if departmentID == "" {
		return true
	}
	scope := principalFrom(r.Context()).Scope
	if scope != nil && !scope.ManagesDepartment(departmentID) {
		writeForbidden(w, "you do not manage this department")
		return false
	}
	return s.departmentExists(w, r, departmentID)
}
