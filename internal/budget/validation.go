package budget

import (
	"fmt"
	"strings"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

const (
	maxDescriptionLength = 500
	maxAmountCents       = 100_000_000_000
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Validate checks an item before persistence.
func Validate(it *Item) error {
	it.Description = strings.TrimSpace(it.Description)
	if it.Category == "" {
		it.Category = CategoryOther
	}
	if it.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidItem)
	}
	if !ValidCategory(it.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidItem, it.Category)
	}
	if len(it.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidItem, maxDescriptionLength)
	}
	if it.PlannedCents < 0 || it.ActualCents < 0 {
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidItem)
	}
	if it.PlannedCents > maxAmountCents || it.ActualCents > maxAmountCents {
		return fmt.Errorf("%w: amount too large", ErrInvalidItem)
	}
	if !database.ValidDate(it.IncurredOn) {
		return fmt.Errorf("%w: incurred_on must be YYYY-MM-DD", ErrInvalidItem)
	}
	return nil
}
