package task

import "errors"

var (
	// ErrTaskNotFound is returned when a task ID does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTask is returned when a task fails validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrSprintNotFound is returned when a sprint ID does not exist.
	ErrSprintNotFound = errors.New("sprint not found")

	// ErrInvalidSprint is returned when a sprint fails validation.
	ErrInvalidSprint = errors.New("invalid sprint")

	// ErrSprintActiveExists is returned when starting a sprint while another
	// sprint of the same project is active.
	ErrSprintActiveExists = errors.New("project already has an active sprint")

	// ErrSprintState is returned when a sprint operation does not fit its status.
	ErrSprintState = errors.New("operation not allowed in current sprint status")
)
