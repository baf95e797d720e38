package budget

import "errors"

var (
	// ErrItemNotFound is returned when a budget item ID does not exist.
	ErrItemNotFound = errors.New("budget item not found")

	// ErrInvalidItem is returned when a budget item fails validation.
	ErrInvalidItem = errors.New("invalid budget item")

	// ErrChangeItem is returned when deleting or re-planning an item that was
	// booked by an approved change request.
	ErrChangeItem = errors.New("budget item belongs to an approved change request")
)
