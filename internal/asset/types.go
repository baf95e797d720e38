package asset

import "time"

// Status is the availability of an asset.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusAssigned    Status = "assigned"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
)

// Asset is a tracked piece of equipment.
type Asset struct {
	ID                string    `json:"id"`
	Tag               string    `json:"tag"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	Status            Status    `json:"status"`
	ProjectID         string    `json:"project_id,omitempty"`
	AssignedTo        string    `json:"assigned_to,omitempty"`
	PurchaseDate      string    `json:"purchase_date,omitempty"`
	PurchaseCostCents int64     `json:"purchase_cost_cents"`
	Location          string    `json:"location"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Filter narrows asset listings.
//
// ProjectIDs restricts project-bound assets to a scope; when VisibleTo is
// set, assets assigned to that user and unassigned assets are included too.
type Filter struct {
	ProjectIDs []string
	VisibleTo  string
	Status     Status
	ProjectID  string
	AssignedTo string
	Query      string
}

// Assignment names who and what an asset is assigned to.
type Assignment struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}
