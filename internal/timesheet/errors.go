package timesheet

import "errors"

var (
	// ErrEntryNotFound is returned when a time entry ID does not exist.
	ErrEntryNotFound = errors.New("time entry not found")

	// ErrInvalidEntry is returned when a time entry fails validation.
	ErrInvalidEntry = errors.New("invalid time entry")

	// ErrDailyLimit is returned when an entry would take a user's day past 24 hours.
	ErrDailyLimit = errors.New("daily hours limit exceeded")

	// ErrNotEditable is returned when changing an entry that is submitted or approved.
	ErrNotEditable = errors.New("time entry is not editable")

	// ErrNotOwner is returned when a user changes someone else's entry.
	ErrNotOwner = errors.New("time entry belongs to another user")

	// ErrSelfApproval is returned when a user decides on their own entry.
	ErrSelfApproval = errors.New("cannot approve or reject own time entry")

	// ErrInvalidState is returned when a workflow step does not apply to the
	// entry's current status.
	ErrInvalidState = errors.New("time entry is in the wrong state")
)
