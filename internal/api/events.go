package api

import (
	"maps"
	"net/http"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/audit"
)

// Event is a domain change relayed to WebSocket clients and MQTT.
type Event struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id,omitempty"`
	Actor     string    `json:"actor"`
	At        time.Time `json:"at"`
}

// WebSocket channels.
const (
	channelActivity      = "activity"
	channelProjectPrefix = "project:"
)

// emit records an audit entry and fans the event out to WebSocket clients
// and MQTT. details go to the audit trail only.
func (s *Server) emit(r *http.Request, entity, action, id, projectID string, details map[string]any) {
	actor := ""
	if p := principalFrom(r.Context()); p != nil {
		actor = p.UserID
	}
	ev := Event{
		Entity:    entity,
		Action:    action,
		ID:        id,
		ProjectID: projectID,
		Actor:     actor,
		At:        s.now().UTC(),
	}

	s.recordAudit(action, entity, id, actor, projectID, details)
	s.hub.BroadcastEvent(ev)
	s.publishEvent(ev)
}

// recordAudit queues an audit entry. Workflow actions are stored as
// transitions with the concrete action in details.
func (s *Server) recordAudit(action, entity, id, actor, projectID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	d := make(map[string]any, len(details)+2)
	maps.Copy(d, details)
	if projectID != "" {
		d["project_id"] = projectID
	}

	auditAction := action
	switch action {
	case audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete, audit.ActionLogin, audit.ActionLogout:
	default:
		auditAction = audit.ActionTransition
		d["action"] = action
	}
	if len(d) == 0 {
		d = nil
	}

	s.audit.Record(audit.AuditLog{
		Action:     auditAction,
		EntityType: entity,
		EntityID:   id,
		UserID:     actor,
		Source:     "api",
		Details:    d,
	})
}

// publishEvent sends the event to MQTT without holding up the request.
func (s *Server) publishEvent(ev Event) {
	if s.mqtt == nil || !s.mqtt.IsConnected() {
		return
	}
	topic := s.mqtt.Topics().Event(ev.Entity, ev.Action)
	go func() {
		if err := s.mqtt.PublishJSON(topic, ev, false); err != nil {
			s.logger.Warn("publishing event to MQTT failed", "topic", topic, "error", err)
		}
	}()
}
