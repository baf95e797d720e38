package change

import (
	"fmt"
	"strings"

	"github.com/mohamed54683/pm-sub003/internal/project"
)

const (
	maxTitleLength     = 300
	maxTextLength      = 20000
	maxScheduleImpact  = 3650
	maxCostImpactCents = 100_000_000_000
)

func applyDefaults(c *ChangeRequest) {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Justification = strings.TrimSpace(c.Justification)
	if c.Priority == "" {
		c.Priority = project.PriorityMedium
	}
}

// Validate checks a change request before persistence.
func Validate(c *ChangeRequest) error {
	if c.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidChange)
	}
	if c.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidChange)
	}
	if len(c.Title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidChange, maxTitleLength)
	}
	if len(c.Description) > maxTextLength || len(c.Justification) > maxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidChange, maxTextLength)
	}
	if c.ScheduleImpactDays < -maxScheduleImpact || c.ScheduleImpactDays > maxScheduleImpact {
		return fmt.Errorf("%w: schedule impact must be within ±%d days", ErrInvalidChange, maxScheduleImpact)
	}
	if c.CostImpactCents < 0 || c.CostImpactCents > maxCostImpactCents {
		return fmt.Errorf("%w: cost impact must be a non-negative amount", ErrInvalidChange)
	}
	if !project.ValidPriority(c.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidChange, c.Priority)
	}
	return nil
}
