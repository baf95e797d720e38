package project

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 10000
	maxMemberRoleLength  = 50
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9-]{2,20}$`)

var transitions = map[Status][]Status{
	StatusPlanning: {StatusActive, StatusCancelled},
	StatusActive:   {StatusOnHold, StatusCompleted, StatusCancelled},
	StatusOnHold:   {StatusActive, StatusCancelled},
}

// ValidStatus reports whether s is a known project status.
func ValidStatus(s Status) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// CanTransition reports whether a project may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is possible.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// applyDefaults trims input and fills status and priority.
func applyDefaults(p *Project) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Status == "" {
		p.Status = StatusPlanning
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
}

// Validate checks a project before persistence.
func Validate(p *Project) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProject)
	}
	if len(p.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidProject, maxNameLength)
	}
	if len(p.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidProject, maxDescriptionLength)
	}
	if !codeRegex.MatchString(p.Code) {
		return fmt.Errorf("%w: code must be 2-20 upper-case letters, digits or hyphens", ErrInvalidProject)
	}
	if !ValidStatus(p.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProject, p.Status)
	}
	if !ValidPriority(p.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidProject, p.Priority)
	}
	if !database.ValidDate(p.StartDate) || !database.ValidDate(p.EndDate) {
		return fmt.Errorf("%w: dates must be YYYY-MM-DD", ErrInvalidProject)
	}
	if p.StartDate != "" && p.EndDate != "" && p.EndDate < p.StartDate {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidProject)
	}
	if p.BudgetCents < 0 {
		return fmt.Errorf("%w: budget cannot be negative", ErrInvalidProject)
	}
	if p.Progress < 0 || p.Progress > 100 {
		return fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidProject)
	}
	return nil
}
