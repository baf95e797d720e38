package risk

import "errors"

var (
	// ErrRiskNotFound is returned when a risk ID does not exist.
	ErrRiskNotFound = errors.New("risk not found")

	// ErrInvalidRisk is returned when a risk fails validation.
	ErrInvalidRisk = errors.New("invalid risk")
)
