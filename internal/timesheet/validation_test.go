package timesheet

import (
	"errors"
	"testing"
	"time"
)

func TestValidHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  bool
	}{
		{0, false},
		{-1, false},
		{0.25, true},
		{0.3, false},
		{1.5, true},
		{7.75, true},
		{24, true},
		{24.25, false},
	}
	for _, tt := range tests {
		if got := ValidHours(tt.hours); got != tt.want {
			t.Errorf("ValidHours(%v) = %v, want %v", tt.hours, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	future := time.Now().UTC().AddDate(0, 0, 5).Format("2006-01-02")
	tests := []struct {
		name  string
		entry Entry
		ok    bool
	}{
		{"valid", Entry{UserID: "u", ProjectID: "p", WorkDate: "2026-02-03", Hours: 2}, true},
		{"missing project", Entry{UserID: "u", WorkDate: "2026-02-03", Hours: 2}, false},
		{"missing date", Entry{UserID: "u", ProjectID: "p", Hours: 2}, false},
		{"bad date", Entry{UserID: "u", ProjectID: "p", WorkDate: "2026-13-01", Hours: 2}, false},
		{"future date", Entry{UserID: "u", ProjectID: "p", WorkDate: future, Hours: 2}, false},
		{"odd hours", Entry{UserID: "u", ProjectID: "p", WorkDate: "2026-02-03", Hours: 1.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entry
			err := Validate(&e)
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Validate() error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}
