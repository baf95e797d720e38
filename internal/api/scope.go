package api

import (
	"net/http"

	"github.com/mohamed54683/pm-sub003/internal/project"
)

// access levels for project checks.
const (
	accessRead   = false
	accessManage = true
)

// loadProject fetches a project through the caller's scope. Projects the
// caller cannot see answer 404; with manage set, visible projects the
// caller cannot change answer 403.
func (s *Server) loadProject(w http.ResponseWriter, r *http.Request, id string, manage bool) (*project.Project, bool) {
	if !s.checkProject(w, r, id, manage, "project not found") {
		return nil, false
	}
	p, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "get project", err)
		return nil, false
	}
	return p, true
}

// checkProject applies the scope rules to projectID for a child resource.
// notFound is the message used when the project is out of scope, so child
// lookups do not reveal that the parent exists.
func (s *Server) checkProject(w http.ResponseWriter, r *http.Request, projectID string, manage bool, notFound string) bool {
	scope := principalFrom(r.Context()).Scope
	if !scope.CanAccessProject(projectID) {
		writeNotFound(w, notFound)
		return false
	}
	if manage && !scope.CanManageProject(projectID) {
		writeForbidden(w, "you cannot change this project")
		return false
	}
	return true
}

// canManage reports manage rights without writing a response.
func canManage(r *http.Request, projectID string) bool {
	return principalFrom(r.Context()).Scope.CanManageProject(projectID)
}
