package influxdb

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/config"
)

func tags(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, t := range p.TagList() {
		m[t.Key] = t.Value
	}
	return m
}

func fields(p *write.Point) map[string]any {
	m := make(map[string]any)
	for _, f := range p.FieldList() {
		m[f.Key] = f.Value
	}
	return m
}

func TestRequestPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := requestPoint("GET", "/api/v1/projects/{id}", 200, 1500*time.Microsecond, at)

	if p.Name() != measurementRequests || !p.Time().Equal(at) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	tg := tags(p)
	if tg["method"] != "GET" || tg["route"] != "/api/v1/projects/{id}" || tg["status"] != "200" {
		t.Errorf("tags = %v", tg)
	}
	if fields(p)["duration_ms"] != 1.5 {
		t.Errorf("duration_ms = %v, want 1.5", fields(p)["duration_ms"])
	}

	if got := tags(requestPoint("GET", "", 404, 0, at))["route"]; got != "unmatched" {
		t.Errorf("empty route tag = %q, want unmatched", got)
	}
}

func TestTimeEntryPoint(t *testing.T) {
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	p := timeEntryPoint("prj-1", "usr-a", day, 7.5, true)

	if p.Name() != measurementTimeEntries || !p.Time().Equal(day) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	if tg := tags(p); tg["project_id"] != "prj-1" || tg["user_id"] != "usr-a" {
		t.Errorf("tags = %v", tg)
	}
	f := fields(p)
	if f["hours"] != 7.5 || f["billable"] != true {
		t.Errorf("fields = %v", f)
	}
}

func TestBudgetPoint(t *testing.T) {
	p := budgetPoint(BudgetSnapshot{ProjectID: "prj-1", PlannedCents: 1000, ActualCents: 400, CPI: 0.9}, time.Now())

	if p.Name() != measurementBudget || tags(p)["project_id"] != "prj-1" {
		t.Errorf("point = %s %v", p.Name(), tags(p))
	}
	f := fields(p)
	if f["planned_cents"] != int64(1000) || f["actual_cents"] != int64(400) || f["cpi"] != 0.9 {
		t.Errorf("fields = %v", f)
	}
}

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name         string
		batch, flush int
		wantB, wantF int
	}{
		{"configured", 500, 2, 500, 2},
		{"zero", 0, 0, 100, 10},
		{"negative", -5, -1, 100, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, f := batchSettings(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
			if b != tt.wantB || f != tt.wantF {
				t.Errorf("batchSettings() = %d, %d; want %d, %d", b, f, tt.wantB, tt.wantF)
			}
		})
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	c.WriteRequest("GET", "/", 200, time.Millisecond)
	c.WriteTimeEntry("p", "u", time.Now(), 1, false)
	c.WriteBudget(BudgetSnapshot{})
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
