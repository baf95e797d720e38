package org

import "time"

// Department is an organisational unit with an optional manager.
type Department struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
	ManagerID    string    `json:"manager_id,omitempty"`
	ProjectCount int       `json:"project_count"`
	UserCount    int       `json:"user_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
