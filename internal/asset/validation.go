package asset

import (
	"fmt"
	"strings"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

const (
	maxTagLength  = 50
	maxNameLength = 200
	maxTextLength = 5000
)

// ValidStatus reports whether s is a known asset status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

func applyDefaults(a *Asset) {
	a.Tag = strings.ToUpper(strings.TrimSpace(a.Tag))
	a.Name = strings.TrimSpace(a.Name)
	a.Category = strings.TrimSpace(a.Category)
	a.Location = strings.TrimSpace(a.Location)
	a.Notes = strings.TrimSpace(a.Notes)
	if a.Status == "" {
		a.Status = StatusAvailable
	}
}

// Validate checks an asset before persistence. Assigned assets must name a
// user or project; other statuses must not.
func Validate(a *Asset) error {
	if a.Tag == "" || len(a.Tag) > maxTagLength {
		return fmt.Errorf("%w: tag must be 1-%d characters", ErrInvalidAsset, maxTagLength)
	}
	if a.Name == "" || len(a.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidAsset, maxNameLength)
	}
	if len(a.Notes) > maxTextLength || len(a.Location) > maxNameLength || len(a.Category) > maxNameLength {
		return fmt.Errorf("%w: text field too long", ErrInvalidAsset)
	}
	if !ValidStatus(a.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAsset, a.Status)
	}
	if !database.ValidDate(a.PurchaseDate) {
		return fmt.Errorf("%w: purchase_date must be YYYY-MM-DD", ErrInvalidAsset)
	}
	if a.PurchaseCostCents < 0 {
		return fmt.Errorf("%w: purchase cost cannot be negative", ErrInvalidAsset)
	}
	bound := a.AssignedTo != "" || a.ProjectID != ""
	if a.Status == StatusAssigned && !bound {
		return fmt.Errorf("%w: assigned asset needs a user or project", ErrInvalidAsset)
	}
	if a.Status != StatusAssigned && bound {
		return fmt.Errorf("%w: only assigned assets can reference a user or project", ErrInvalidAsset)
	}
	return nil
}
