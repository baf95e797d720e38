package project

import "errors"

var (
	// ErrProjectNotFound is returned when a project ID does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectCodeExists is returned when a project code is already taken.
	ErrProjectCodeExists = errors.New("project code already exists")

	// ErrInvalidProject is returned when a project fails validation.
	ErrInvalidProject = errors.New("invalid project")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMemberNotFound is returned when removing a user who is not a member.
	ErrMemberNotFound = errors.New("project member not found")
)
