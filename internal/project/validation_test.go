package project

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPlanning, StatusActive, true},
		{StatusPlanning, StatusCancelled, true},
		{StatusPlanning, StatusCompleted, false},
		{StatusActive, StatusOnHold, true},
		{StatusActive, StatusCompleted, true},
		{StatusOnHold, StatusActive, true},
		{StatusOnHold, StatusCompleted, false},
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusPlanning, false},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	base := func() Project {
		return Project{Code: "OK-1", Name: "Fine", Status: StatusPlanning, Priority: PriorityLow}
	}
	tests := []struct {
		name   string
		mutate func(*Project)
		ok     bool
	}{
		{"valid", func(*Project) {}, true},
		{"empty name", func(p *Project) { p.Name = "" }, false},
		{"bad code", func(p *Project) { p.Code = "a b" }, false},
		{"bad status", func(p *Project) { p.Status = "archived" }, false},
		{"bad priority", func(p *Project) { p.Priority = "urgent" }, false},
		{"bad date", func(p *Project) { p.StartDate = "2026-13-01" }, false},
		{"end before start", func(p *Project) { p.StartDate, p.EndDate = "2026-02-01", "2026-01-01" }, false},
		{"same day", func(p *Project) { p.StartDate, p.EndDate = "2026-02-01", "2026-02-01" }, true},
		{"negative budget", func(p *Project) { p.BudgetCents = -1 }, false},
		{"progress over 100", func(p *Project) { p.Progress = 101 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			if err := Validate(&p); (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
