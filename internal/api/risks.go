package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/risk"
)

type riskRequest struct {
	Title            *string        `json:"title,omitempty"`
	Description      *string        `json:"description,omitempty"`
	Category         *risk.Category `json:"category,omitempty"`
	Probability      *int           `json:"probability,omitempty"`
	Impact           *int           `json:"impact,omitempty"`
	Status           *risk.Status   `json:"status,omitempty"`
	ResponseStrategy *risk.Strategy `json:"response_strategy,omitempty"`
	OwnerID          *string        `json:"owner_id,omitempty"`
	MitigationPlan   *string        `json:"mitigation_plan,omitempty"`
	DueDate          *string        `json:"due_date,omitempty"`
}

func (req riskRequest) apply(rk *risk.Risk) {
	setValue(&rk.Title, req.Title)
	setValue(&rk.Description, req.Description)
	setValue(&rk.Category, req.Category)
	setValue(&rk.Probability, req.Probability)
	setValue(&rk.Impact, req.Impact)
	setValue(&rk.Status, req.Status)
	setValue(&rk.ResponseStrategy, req.ResponseStrategy)
	setValue(&rk.OwnerID, req.OwnerID)
	setValue(&rk.MitigationPlan, req.MitigationPlan)
	setValue(&rk.DueDate, req.DueDate)
}

// riskFilter reads register filters for one project.
func riskFilter(r *http.Request, projectID string) (risk.Filter, error) {
	q := r.URL.Query()
	f := risk.Filter{
		ProjectID: projectID,
		Status:    risk.Status(q.Get("status")),
		Category:  risk.Category(q.Get("category")),
	}
	var err error
	if f.OpenOnly, err = queryBool(r, "open"); err != nil {
		return f, err
	}
	if f.MinScore, err = queryInt(r, "min_score"); err != nil {
		return f, err
	}
	if f.Status != "" && !risk.ValidStatus(f.Status) {
		return f, errInvalidParam("status")
	}
	if f.Category != "" && !risk.ValidCategory(f.Category) {
		return f, errInvalidParam("category")
	}
	return f, nil
}

func (s *Server) handleListRisks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	f, err := riskFilter(r, id)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	risks, err := s.risks.List(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, "list risks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risks": risks, "count": len(risks)})
}

// handleRiskMatrix returns the 5x5 probability/impact grid of open risks.
func (s *Server) handleRiskMatrix(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}
	m, err := s.risks.Matrix(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "risk matrix", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateRisk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req riskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if !s.checkProject(w, r, id, accessRead, "project not found") {
		return
	}

	rk := &risk.Risk{ProjectID: id, CreatedBy: principalFrom(r.Context()).UserID}
	req.apply(rk)
	if err := s.risks.Create(r.Context(), rk); err != nil {
		s.writeDomainError(w, r, "create risk", err)
		return
	}
	s.emit(r, "risk", audit.ActionCreate, rk.ID, rk.ProjectID, map[string]any{"score": rk.Score})
	writeJSON(w, http.StatusCreated, rk)
}

func (s *Server) loadRisk(w http.ResponseWriter, r *http.Request) (*risk.Risk, bool) {
	rk, err := s.risks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get risk", err)
		return nil, false
	}
	if !s.checkProject(w, r, rk.ProjectID, accessRead, "risk not found") {
		return nil, false
	}
	return rk, true
}

func (s *Server) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	rk, ok := s.loadRisk(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rk)
}

// handleUpdateRisk is open to project managers, the risk owner and whoever
// raised it.
func (s *Server) handleUpdateRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rk, ok := s.loadRisk(w, r)
	if !ok {
		return
	}
	caller := principalFrom(r.Context()).UserID
	if !canManage(r, rk.ProjectID) && rk.OwnerID != caller && rk.CreatedBy != caller {
		writeForbidden(w, "you can only edit risks you own or raised")
		return
	}

	beforeScore := rk.Score
	req.apply(rk)
	if err := s.risks.Update(r.Context(), rk); err != nil {
		s.writeDomainError(w, r, "update risk", err)
		return
	}

	var details map[string]any
	if rk.Score != beforeScore {
		details = map[string]any{"score": rk.Score, "level": rk.Level}
	}
	s.emit(r, "risk", audit.ActionUpdate, rk.ID, rk.ProjectID, details)
	writeJSON(w, http.StatusOK, rk)
}

func (s *Server) handleDeleteRisk(w http.ResponseWriter, r *http.Request) {
	rk, ok := s.loadRisk(w, r)
	if !ok {
		return
	}
	if !canManage(r, rk.ProjectID) && rk.CreatedBy != principalFrom(r.Context()).UserID {
		writeForbidden(w, "you can only delete risks you raised")
		return
	}
	if err := s.risks.Delete(r.Context(), rk.ID); err != nil {
		s.writeDomainError(w, r, "delete risk", err)
		return
	}
	s.emit(r, "risk", audit.ActionDelete, rk.ID, rk.ProjectID, nil)
	w.WriteHeader(http.StatusNoContent)
}
