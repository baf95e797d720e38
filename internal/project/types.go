package project

import "time"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists project statuses in lifecycle order.
var AllStatuses = []Status{StatusPlanning, StatusActive, StatusOnHold, StatusCompleted, StatusCancelled}

// Priority is shared by projects, tasks and change requests.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Project is a unit of delivery with a budget and a team.
type Project struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DepartmentID string    `json:"department_id,omitempty"`
	ManagerID    string    `json:"manager_id,omitempty"`
	Status       Status    `json:"status"`
	Priority     Priority  `json:"priority"`
	StartDate    string    `json:"start_date,omitempty"`
	EndDate      string    `json:"end_date,omitempty"`
	BudgetCents  int64     `json:"budget_cents"`
	Progress     int       `json:"progress"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member is a user's membership of a project team.
type Member struct {
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	AddedAt     time.Time `json:"added_at"`
}

// Filter narrows List results.
//
// ProjectIDs restricts results to a scope: nil means unrestricted, an empty
// slice matches nothing.
type Filter struct {
	ProjectIDs   []string
	Status       Status
	DepartmentID string
	Query        string
	Limit        int
	Offset       int
}

// ListResult is a page of projects plus the unpaginated total.
type ListResult struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
