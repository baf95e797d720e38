package risk

import (
	"fmt"
	"strings"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

const (
	maxTitleLength = 300
	maxTextLength  = 20000
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryTechnical, CategorySchedule, CategoryCost, CategoryResource,
		CategoryScope, CategoryExternal, CategoryQuality:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusIdentified, StatusAnalysing, StatusMitigating, StatusMonitoring, StatusClosed:
		return true
	}
	return false
}

// ValidStrategy reports whether s is a known response strategy.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyAvoid, StrategyMitigate, StrategyTransfer, StrategyAccept, StrategyEscalate:
		return true
	}
	return false
}

func applyDefaults(r *Risk) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.MitigationPlan = strings.TrimSpace(r.MitigationPlan)
	if r.Status == "" {
		r.Status = StatusIdentified
	}
	if r.ResponseStrategy == "" {
		r.ResponseStrategy = StrategyMitigate
	}
}

// Validate checks a risk before persistence.
func Validate(r *Risk) error {
	if r.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidRisk)
	}
	if r.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidRisk)
	}
	if len(r.Title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidRisk, maxTitleLength)
	}
	if len(r.Description) > maxTextLength || len(r.MitigationPlan) > maxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidRisk, maxTextLength)
	}
	if !ValidCategory(r.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRisk, r.Category)
	}
	if r.Probability < 1 || r.Probability > 5 {
		return fmt.Errorf("%w: probability must be between 1 and 5", ErrInvalidRisk)
	}
	if r.Impact < 1 || r.Impact > 5 {
		return fmt.Errorf("%w: impact must be between 1 and 5", ErrInvalidRisk)
	}
	if !ValidStatus(r.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRisk, r.Status)
	}
	if !ValidStrategy(r.ResponseStrategy) {
		return fmt.Errorf("%w: unknown response strategy %q", ErrInvalidRisk, r.ResponseStrategy)
	}
	if !database.ValidDate(r.DueDate) {
		return fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidRisk)
	}
	return nil
}
