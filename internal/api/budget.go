package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/influxdb"
)

type budgetItemRequest struct {
	Category     *budget.Category `json:"category,omitempty"`
	Description  *string          `json:"description,omitempty"`
	PlannedCents *int64           `json:"planned_cents,omitempty"`
	ActualCents  *int64           `json:"actual_cents,omitempty"`
	IncurredOn   *string          `json:"incurred_on,omitempty"`
}

func (req budgetItemRequest) apply(it *budget.Item) {
	setValue(&it.Category, req.Category)
	setValue(&it.Description, req.Description)
	setValue(&it.PlannedCents, req.PlannedCents)
	setValue(&it.ActualCents, req.ActualCents)
	setValue(&it.IncurredOn, req.IncurredOn)
}

// handleListBudget returns a project's budget lines and cost position.
func (s *Server) handleListBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	items, err := s.budget.List(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "list budget items", err)
		return
	}
	summary, err := s.budget.Summary(r.Context(), id, s.now())
	if err != nil {
		s.writeDomainError(w, r, "budget summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   items,
		"count":   len(items),
		"summary": summary,
	})
}

func (s *Server) handleCreateBudgetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req budgetItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.checkProject(w, r, id, accessManage, "project not found") {
		return
	}

	it := &budget.Item{ProjectID: id, CreatedBy: principalFrom(r.Context()).UserID}
	req.apply(it)
	if err := s.budget.Create(r.Context(), it); err != nil {
		s.writeDomainError(w, r, "create budget item", err)
		return
	}
	s.emit(r, "budget", audit.ActionCreate, it.ID, it.ProjectID, map[string]any{"category": it.Category})
	s.recordBudgetSnapshot(r, id)
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) loadBudgetItem(w http.ResponseWriter, r *http.Request) (*budget.Item, bool) {
	it, err := s.budget.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get budget item", err)
		return nil, false
	}
	if !s.checkProject(w, r, it.ProjectID, accessManage, "budget item not found") {
		return nil, false
	}
	return it, true
}

func (s *Server) handleUpdateBudgetItem(w http.ResponseWriter, r *http.Request) {
	var req budgetItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	it, ok := s.loadBudgetItem(w, r)
	if !ok {
		return
	}
	req.apply(it)
	if err := s.budget.Update(r.Context(), it); err != nil {
		s.writeDomainError(w, r, "update budget item", err)
		return
	}
	s.emit(r, "budget", audit.ActionUpdate, it.ID, it.ProjectID, nil)
	s.recordBudgetSnapshot(r, it.ProjectID)
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.loadBudgetItem(w, r)
	if !ok {
		return
	}
	if err := s.budget.Delete(r.Context(), it.ID); err != nil {
		s.writeDomainError(w, r, "delete budget item", err)
		return
	}
	s.emit(r, "budget", audit.ActionDelete, it.ID, it.ProjectID, nil)
	s.recordBudgetSnapshot(r, it.ProjectID)
	w.WriteHeader(http.StatusNoContent)
}

// recordBudgetSnapshot writes the project's cost position to InfluxDB.
func (s *Server) recordBudgetSnapshot(r *http.Request, projectID string) {
	if !s.influx.IsConnected() {
		return
	}
	sum, err := s.budget.Summary(r.Context(), projectID, s.now())
	if err != nil {
		s.logger.Warn("budget snapshot failed", "project_id", projectID, "error", err)
		return
	}
	ev := sum.EarnedValue
	s.influx.WriteBudget(influxdb.BudgetSnapshot{
		ProjectID:    projectID,
		PlannedCents: sum.PlannedCents,
		ActualCents:  sum.ActualCents,
		LabourCents:  sum.LabourCents,
		BAC:          ev.BAC,
		EV:           ev.EV,
		PV:           ev.PV,
		AC:           ev.AC,
		CPI:          ev.CPI,
		SPI:          ev.SPI,
	})
}
