package timesheet

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

const maxDescriptionLength = 1000

// ValidHours reports whether h is positive, at most 24 and a whole number of
// quarter hours.
func ValidHours(h float64) bool {
	if h <= 0 || h > MaxDailyHours {
		return false
	}
	q := h * 4
	return math.Abs(q-math.Round(q)) < 1e-9
}

// Validate checks an entry before persistence.
func Validate(e *Entry) error {
	e.Description = strings.TrimSpace(e.Description)
	if e.UserID == "" || e.ProjectID == "" {
		return fmt.Errorf("%w: user_id and project_id are required", ErrInvalidEntry)
	}
	if e.WorkDate == "" || !database.ValidDate(e.WorkDate) {
		return fmt.Errorf("%w: work_date must be YYYY-MM-DD", ErrInvalidEntry)
	}
	if d, _ := time.Parse(database.DateLayout, e.WorkDate); d.After(time.Now().UTC().AddDate(0, 0, 1)) { //nolint:errcheck // validated above
		return fmt.Errorf("%w: work_date cannot be in the future", ErrInvalidEntry)
	}
	if !ValidHours(e.Hours) {
		return fmt.Errorf("%w: hours must be between 0.25 and 24 in quarter-hour steps", ErrInvalidEntry)
	}
	if len(e.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidEntry, maxDescriptionLength)
	}
	return nil
}
