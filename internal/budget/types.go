package budget

import "time"

// Category groups budget items.
type Category string

const (
	CategoryLabour    Category = "labour"
	CategoryMaterials Category = "materials"
	CategoryEquipment Category = "equipment"
	CategoryServices  Category = "services"
	CategoryTravel    Category = "travel"
	CategoryChange    Category = "change"
	CategoryOther     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryLabour, CategoryMaterials, CategoryEquipment, CategoryServices,
	CategoryTravel, CategoryChange, CategoryOther,
}

// Item is one planned or incurred cost line.
type Item struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	Category        Category  `json:"category"`
	Description     string    `json:"description"`
	PlannedCents    int64     `json:"planned_cents"`
	ActualCents     int64     `json:"actual_cents"`
	IncurredOn      string    `json:"incurred_on,omitempty"`
	ChangeRequestID string    `json:"change_request_id,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CategoryTotal is the planned and actual spend of one category.
type CategoryTotal struct {
	Category     Category `json:"category"`
	PlannedCents int64    `json:"planned_cents"`
	ActualCents  int64    `json:"actual_cents"`
}

// Summary is the cost position of a project.
type Summary struct {
	ProjectID     string          `json:"project_id"`
	PlannedCents  int64           `json:"planned_cents"`
	ActualCents   int64           `json:"actual_cents"`
	VarianceCents int64           `json:"variance_cents"`
	LabourHours   float64         `json:"labour_hours"`
	LabourCents   int64           `json:"labour_cents"`
	ByCategory    []CategoryTotal `json:"by_category"`
	EarnedValue   EarnedValue     `json:"earned_value"`
}

// EarnedValue holds the standard EVM indicators.
type EarnedValue struct {
	BAC float64 `json:"bac"`
	PV  float64 `json:"pv"`
	EV  float64 `json:"ev"`
	AC  float64 `json:"ac"`
	CPI float64 `json:"cpi"`
	SPI float64 `json:"spi"`
	EAC float64 `json:"eac"`
	VAC float64 `json:"vac"`
	CV  float64 `json:"cv"`
	SV  float64 `json:"sv"`
}

// Baseline is the project data earned value is computed from.
type Baseline struct {
	BudgetCents int64
	Progress    int
	StartDate   string
	EndDate     string
}
