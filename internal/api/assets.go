package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/asset"
	"github.com/mohamed54683/pm-sub003/internal/audit"
)

type assetRequest struct {
	Tag               *string       `json:"tag,omitempty"`
	Name              *string       `json:"name,omitempty"`
	Category          *string       `json:"category,omitempty"`
	Status            *asset.Status `json:"status,omitempty"`
	PurchaseDate      *string       `json:"purchase_date,omitempty"`
	PurchaseCostCents *int64        `json:"purchase_cost_cents,omitempty"`
	Location          *string       `json:"location,omitempty"`
	Notes             *string       `json:"notes,omitempty"`
}

func (req assetRequest) apply(a *asset.Asset) {
	setValue(&a.Tag, req.Tag)
	setValue(&a.Name, req.Name)
	setValue(&a.Category, req.Category)
	setValue(&a.Status, req.Status)
	setValue(&a.PurchaseDate, req.PurchaseDate)
	setValue(&a.PurchaseCostCents, req.PurchaseCostCents)
	setValue(&a.Location, req.Location)
	setValue(&a.Notes, req.Notes)
}

// handleListAssets lists pool assets, assets of visible projects and
// assets held by the caller.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := principalFrom(r.Context())
	f := asset.Filter{
		ProjectIDs: p.Scope.Restricted(),
		Status:     asset.Status(q.Get("status")),
		ProjectID:  q.Get("project_id"),
		AssignedTo: q.Get("assigned_to"),
		Query:      q.Get("q"),
	}
	if f.ProjectIDs != nil {
		f.VisibleTo = p.UserID
	}

	assets, err := s.assets.List(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets, "count": len(assets)})
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	a := &asset.Asset{}
	req.apply(a)
	if err := s.assets.Create(r.Context(), a); err != nil {
		s.writeDomainError(w, r, "create asset", err)
		return
	}
	s.emit(r, "asset", audit.ActionCreate, a.ID, "", map[string]any{"tag": a.Tag})
	writeJSON(w, http.StatusCreated, a)
}

// loadAsset fetches an asset the caller can see. With manage set, an asset
// bound to a project also needs manage rights on that project.
func (s *Server) loadAsset(w http.ResponseWriter, r *http.Request, manage bool) (*asset.Asset, bool) {
	a, err := s.assets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get asset", err)
		return nil, false
	}
	if a.ProjectID == "" {
		return a, true
	}
	if a.AssignedTo == principalFrom(r.Context()).UserID && !manage {
		return a, true
	}
	if !s.checkProject(w, r, a.ProjectID, manage, "asset not found") {
		return nil, false
	}
	return a, true
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAsset(w, r, accessRead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	a, ok := s.loadAsset(w, r, accessManage)
	if !ok {
		return
	}
	before := a.Status
	req.apply(a)
	if err := s.assets.Update(r.Context(), a); err != nil {
		s.writeDomainError(w, r, "update asset", err)
		return
	}

	var details map[string]any
	if a.Status != before {
		details = map[string]any{"from": before, "to": a.Status}
	}
	s.emit(r, "asset", audit.ActionUpdate, a.ID, a.ProjectID, details)
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAsset(w, r, accessManage)
	if !ok {
		return
	}
	if err := s.assets.Delete(r.Context(), a.ID); err != nil {
		s.writeDomainError(w, r, "delete asset", err)
		return
	}
	s.emit(r, "asset", audit.ActionDelete, a.ID, a.ProjectID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignAsset hands an available asset to a user and/or project.
// Assigning to a project needs manage rights on it.
func (s *Server) handleAssignAsset(w http.ResponseWriter, r *http.Request) {
	var req asset.Assignment
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	a, ok := s.loadAsset(w, r, accessManage)
	if !ok {
		return
	}
	if req.ProjectID != "" && !s.checkProject(w, r, req.ProjectID, accessManage, "project not found") {
		return
	}

	updated, err := s.assets.Assign(r.Context(), a.ID, req)
	if err != nil {
		s.writeDomainError(w, r, "assign asset", err)
		return
	}
	s.emit(r, "asset", "assign", updated.ID, updated.ProjectID, map[string]any{"user_id": updated.AssignedTo})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleReleaseAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAsset(w, r, accessManage)
	if !ok {
		return
	}
	updated, err := s.assets.Release(r.Context(), a.ID)
	if err != nil {
		s.writeDomainError(w, r, "release asset", err)
		return
	}
	s.emit(r, "asset", "release", updated.ID, a.ProjectID, nil)
	writeJSON(w, http.StatusOK, updated)
}
