package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/org"
)

type departmentRequest struct {
	Name        *string `json:"name,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
}

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := s.departments.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list departments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"departments": depts,
		"count":       len(depts),
	})
}

func (s *Server) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	d, err := s.departments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get department", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	d := &org.Department{}
	req.apply(d)

	if err := s.departments.Create(r.Context(), d); err != nil {
		s.writeDomainError(w, r, "create department", err)
		return
	}
	s.emit(r, "department", audit.ActionCreate, d.ID, "", map[string]any{"code": d.Code})
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	d, err := s.departments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "update department", err)
		return
	}
	req.apply(d)

	if err := s.departments.Update(r.Context(), d); err != nil {
		s.writeDomainError(w, r, "update department", err)
		return
	}
	s.emit(r, "department", audit.ActionUpdate, d.ID, "", nil)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.departments.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, "delete department", err)
		return
	}
	s.emit(r, "department", audit.ActionDelete, id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (req departmentRequest) apply(d *org.Department) {
	setValue(&d.Name, req.Name)
	setValue(&d.Code, req.Code)
	setValue(&d.Description, req.Description)
	setValue(&d.ManagerID, req.ManagerID)
}
