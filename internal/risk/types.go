package risk

import "time"

// Category classifies the source of a risk.
type Category string

const (
	CategoryTechnical Category = "technical"
	CategorySchedule  Category = "schedule"
	CategoryCost      Category = "cost"
	CategoryResource  Category = "resource"
	CategoryScope     Category = "scope"
	CategoryExternal  Category = "external"
	CategoryQuality   Category = "quality"
)

// Status tracks how a risk is being handled.
type Status string

const (
	StatusIdentified Status = "identified"
	StatusAnalysing  Status = "analysing"
	StatusMitigating Status = "mitigating"
	StatusMonitoring Status = "monitoring"
	StatusClosed     Status = "closed"
)

// Strategy is the planned response.
type Strategy string

const (
	StrategyAvoid    Strategy = "avoid"
	StrategyMitigate Strategy = "mitigate"
	StrategyTransfer Strategy = "transfer"
	StrategyAccept   Strategy = "accept"
	StrategyEscalate Strategy = "escalate"
)

// Level is the severity band derived from the score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels lists severity bands from lowest to highest.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// Risk is an entry in a project's risk register.
type Risk struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         Category  `json:"category"`
	Probability      int       `json:"probability"`
	Impact           int       `json:"impact"`
	Score            int       `json:"score"`
	Level            Level     `json:"level"`
	Status           Status    `json:"status"`
	ResponseStrategy Strategy  `json:"response_strategy"`
	OwnerID          string    `json:"owner_id,omitempty"`
	MitigationPlan   string    `json:"mitigation_plan"`
	DueDate          string    `json:"due_date,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Filter narrows register listings. ProjectIDs: nil is unrestricted,
// empty matches nothing.
type Filter struct {
	ProjectIDs []string
	ProjectID  string
	Status     Status
	Category   Category
	OpenOnly   bool
	MinScore   int
}

// Matrix counts open risks by probability (rows) and impact (columns).
// Cells[p-1][i-1] holds the count for probability p and impact i.
type Matrix struct {
	ProjectID string    `json:"project_id"`
	Cells     [5][5]int `json:"cells"`
	Total     int       `json:"total"`
}
