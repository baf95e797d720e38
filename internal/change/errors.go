package change

import "errors"

var (
	// ErrChangeNotFound is returned when a change request ID does not exist.
	ErrChangeNotFound = errors.New("change request not found")

	// ErrInvalidChange is returned when a change request fails validation.
	ErrInvalidChange = errors.New("invalid change request")

	// ErrInvalidTransition is returned when an action does not apply to the
	// current status.
	ErrInvalidTransition = errors.New("invalid change request transition")

	// ErrSelfApproval is returned when the requester tries to decide their own request.
	ErrSelfApproval = errors.New("requester cannot approve or reject their own change request")

	// ErrNotEditable is returned when editing or deleting a request that has left draft.
	ErrNotEditable = errors.New("change request can only be edited while in draft")
)
