package timesheet

import "time"

// Status is the approval state of an entry.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// MaxDailyHours caps a user's booked hours per day.
const MaxDailyHours = 24.0

// Entry is hours worked by one user on one day.
type Entry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ProjectID     string     `json:"project_id"`
	TaskID        string     `json:"task_id,omitempty"`
	WorkDate      string     `json:"work_date"`
	Hours         float64    `json:"hours"`
	Description   string     `json:"description"`
	Billable      bool       `json:"billable"`
	Status        Status     `json:"status"`
	ApproverID    string     `json:"approver_id,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	RejectionNote string     `json:"rejection_note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Read-only, joined for listings and exports.
	Username        string `json:"username,omitempty"`
	ProjectCode     string `json:"project_code,omitempty"`
	HourlyRateCents int64  `json:"-"`
}

// Editable reports whether the owner may still change the entry.
func (e *Entry) Editable() bool {
	return e.Status == StatusDraft || e.Status == StatusRejected
}

// Filter narrows entry listings.
//
// ProjectIDs restricts results to a scope; when VisibleTo is set the user's
// own entries are always included.
type Filter struct {
	ProjectIDs []string
	VisibleTo  string
	UserID     string
	ProjectID  string
	From       string
	To         string
	Status     Status
	Limit      int
	Offset     int
}
