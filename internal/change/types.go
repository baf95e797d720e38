package change

import (
	"fmt"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/project"
)

// Status is the workflow state of a change request.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusImplemented Status = "implemented"
	StatusCancelled   Status = "cancelled"
)

// Action drives a transition.
type Action string

const (
	ActionSubmit    Action = "submit"
	ActionReview    Action = "review"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionImplement Action = "implement"
	ActionCancel    Action = "cancel"
)

// ChangeRequest is a proposed change to a project's scope, schedule or cost.
type ChangeRequest struct {
	ID                 string           `json:"id"`
	ProjectID          string           `json:"project_id"`
	Number             int              `json:"number"`
	Reference          string           `json:"reference"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Justification      string           `json:"justification"`
	ScheduleImpactDays int              `json:"schedule_impact_days"`
	CostImpactCents    int64            `json:"cost_impact_cents"`
	Priority           project.Priority `json:"priority"`
	Status             Status           `json:"status"`
	RequestedBy        string           `json:"requested_by,omitempty"`
	DecidedBy          string           `json:"decided_by,omitempty"`
	DecisionNote       string           `json:"decision_note,omitempty"`
	DecidedAt          *time.Time       `json:"decided_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// HistoryEntry records one transition.
type HistoryEntry struct {
	ID         string    `json:"id"`
	ChangeID   string    `json:"change_request_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    string    `json:"actor_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows listings. ProjectIDs: nil is unrestricted, empty matches nothing.
type Filter struct {
	ProjectIDs []string
	ProjectID  string
	Status     Status
}

// FormatReference renders a request number as CR-001.
func FormatReference(n int) string {
	return fmt.Sprintf("CR-%03d", n)
}
