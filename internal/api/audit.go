package api

import (
	"net/http"

	"github.com/mohamed54683/pm-sub003/internal/audit"
)

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: create, update, delete, login, logout, transition
//   - entity_type: project, task, sprint, risk, change, asset, budget, time_entry, user, ...
//   - entity_id: a specific entity
//   - user_id: the acting user
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := queryPage(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.auditRepo.List(r.Context(), audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.writeDomainError(w, r, "list audit logs", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
