package task

import (
	"time"

	"github.com/mohamed54683/pm-sub003/internal/project"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// AllStatuses lists task statuses in board order.
var AllStatuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone, StatusBlocked}

// Task is a unit of work within a project.
type Task struct {
	ID            string           `json:"id"`
	ProjectID     string           `json:"project_id"`
	SprintID      string           `json:"sprint_id,omitempty"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Status        Status           `json:"status"`
	Priority      project.Priority `json:"priority"`
	AssigneeID    string           `json:"assignee_id,omitempty"`
	ReporterID    string           `json:"reporter_id,omitempty"`
	EstimateHours float64          `json:"estimate_hours"`
	DueDate       string           `json:"due_date,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	SortOrder     int              `json:"sort_order"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Filter narrows task listings. ProjectIDs follows the project.Filter
// convention: nil is unrestricted, empty matches nothing.
type Filter struct {
	ProjectIDs []string
	ProjectID  string
	Status     Status
	AssigneeID string
	SprintID   string
	Backlog    bool
	Limit      int
	Offset     int
}

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// Sprint is a time-boxed iteration of a project.
type Sprint struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Name        string       `json:"name"`
	Goal        string       `json:"goal"`
	StartDate   string       `json:"start_date,omitempty"`
	EndDate     string       `json:"end_date,omitempty"`
	Status      SprintStatus `json:"status"`
	TaskCount   int          `json:"task_count"`
	DoneCount   int          `json:"done_count"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CompletionResult reports what happened to a sprint's tasks on completion.
type CompletionResult struct {
	Sprint      *Sprint `json:"sprint"`
	Completed   int     `json:"completed"`
	CarriedOver int     `json:"carried_over"`
}
