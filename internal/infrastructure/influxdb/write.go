package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementRequests    = "http_requests"
	measurementTimeEntries = "time_entries"
	measurementBudget      = "budget"
)

// BudgetSnapshot is the cost position of a project at one moment. Money
// fields are in cents.
type BudgetSnapshot struct {
	ProjectID    string
	PlannedCents int64
	ActualCents  int64
	LabourCents  int64
	BAC          float64
	EV           float64
	PV           float64
	AC           float64
	CPI          float64
	SPI          float64
}

// WriteRequest records one API request. route is the matched route pattern,
// not the raw path, to keep tag cardinality bounded.
func (c *Client) WriteRequest(method, route string, status int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(requestPoint(method, route, status, duration, time.Now()))
}

// WriteTimeEntry records approved hours at the entry's work date.
func (c *Client) WriteTimeEntry(projectID, userID string, workDate time.Time, hours float64, billable bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(timeEntryPoint(projectID, userID, workDate, hours, billable))
}

// WriteBudget records a project's budget snapshot.
func (c *Client) WriteBudget(s BudgetSnapshot) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(budgetPoint(s, time.Now()))
}

// WritePoint writes a custom point with the given tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func requestPoint(method, route string, status int, duration time.Duration, at time.Time) *write.Point {
	if route == "" {
		route = "unmatched"
	}
	return write.NewPoint(measurementRequests,
		map[string]string{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		},
		map[string]any{
			"duration_ms": float64(duration.Microseconds()) / 1000,
			"count":       1,
		},
		at)
}

func timeEntryPoint(projectID, userID string, workDate time.Time, hours float64, billable bool) *write.Point {
	return write.NewPoint(measurementTimeEntries,
		map[string]string{
			"project_id": projectID,
			"user_id":    userID,
		},
		map[string]any{
			"hours":    hours,
			"billable": billable,
		},
		workDate)
}

func budgetPoint(s BudgetSnapshot, at time.Time) *write.Point {
	return write.NewPoint(measurementBudget,
		map[string]string{"project_id": s.ProjectID},
		map[string]any{
			"planned_cents": s.PlannedCents,
			"actual_cents":  s.ActualCents,
			"labour_cents":  s.LabourCents,
			"bac":           s.BAC,
			"ev":            s.EV,
			"pv":            s.PV,
			"ac":            s.AC,
			"cpi":           s.CPI,
			"spi":           s.SPI,
		},
		at)
}
