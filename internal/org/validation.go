package org

import (
	"fmt"
	"regexp"
	"strings"
)

const maxNameLength = 100

var codeRegex = regexp.MustCompile(`^[A-Z0-9-]{2,16}$`)

// Normalise trims whitespace and upper-cases the code.
func (d *Department) Normalise() {
	d.Name = strings.TrimSpace(d.Name)
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.Description = strings.TrimSpace(d.Description)
}

// Validate checks a department before persistence.
func Validate(d *Department) error {
	if d.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidDepartment)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDepartment, maxNameLength)
	}
	if !codeRegex.MatchString(d.Code) {
		return fmt.Errorf("%w: code must be 2-16 upper-case letters, digits or hyphens", ErrInvalidDepartment)
	}
	return nil
}
