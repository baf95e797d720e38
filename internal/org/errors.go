package org

import "errors"

var (
	// ErrDepartmentNotFound is returned when a department ID does not exist.
	ErrDepartmentNotFound = errors.New("department not found")

	// ErrDepartmentCodeExists is returned when a code is already taken.
	ErrDepartmentCodeExists = errors.New("department code already exists")

	// ErrDepartmentInUse is returned when deleting a department that still has projects.
	ErrDepartmentInUse = errors.New("department has projects: move or delete them first")

	// ErrInvalidDepartment is returned when a department fails validation.
	ErrInvalidDepartment = errors.New("invalid department")
)
