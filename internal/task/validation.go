package task

import (
	"fmt"
	"math"
	"strings"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/project"
)

const (
	maxTitleLength       = 300
	maxDescriptionLength = 20000
	maxEstimateHours     = 10000
	maxSprintNameLength  = 100
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s Status) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func applyDefaults(t *Task) {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = project.PriorityMedium
	}
}

// Validate checks a task's own fields. Cross-row rules (sprint belongs to
// the project) are enforced by the repository.
func Validate(t *Task) error {
	if t.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidTask)
	}
	if t.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTask)
	}
	if len(t.Title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, maxTitleLength)
	}
	if len(t.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidTask, maxDescriptionLength)
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	if !project.ValidPriority(t.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	}
	if t.EstimateHours < 0 || t.EstimateHours > maxEstimateHours || math.IsNaN(t.EstimateHours) {
		return fmt.Errorf("%w: estimate must be between 0 and %d hours", ErrInvalidTask, maxEstimateHours)
	}
	if !database.ValidDate(t.DueDate) {
		return fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidTask)
	}
	return nil
}

// ValidateSprint checks a sprint before persistence.
func ValidateSprint(s *Sprint) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Goal = strings.TrimSpace(s.Goal)
	if s.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidSprint)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidSprint)
	}
	if len(s.Name) > maxSprintNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidSprint, maxSprintNameLength)
	}
	if !database.ValidDate(s.StartDate) || !database.ValidDate(s.EndDate) {
		return fmt.Errorf("%w: dates must be YYYY-MM-DD", ErrInvalidSprint)
	}
	if s.StartDate != "" && s.EndDate != "" && s.EndDate < s.StartDate {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidSprint)
	}
	return nil
}
