package report

import (
	"io"

	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/project"
)

const (
	itemsSheet   = "Items"
	summarySheet = "Summary"
)

// Budget writes a summary sheet with earned-value figures followed by the
// item list.
func Budget(w io.Writer, p *project.Project, items []budget.Item, s *budget.Summary) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}

	if err := wb.sheet(summarySheet, "Measure", "Value"); err != nil {
		wb.close()
		return err
	}
	ev := s.EarnedValue
	rows := []struct {
		label string
		value float64
		money bool
	}{
		{"Planned", currency(s.PlannedCents), true},
		{"Actual", currency(s.ActualCents), true},
		{"Labour hours", s.LabourHours, false},
		{"Labour cost", currency(s.LabourCents), true},
		{"Variance", currency(s.VarianceCents), true},
		{"BAC", ev.BAC / 100, true},
		{"PV", ev.PV / 100, true},
		{"EV", ev.EV / 100, true},
		{"AC", ev.AC / 100, true},
		{"CPI", ev.CPI, false},
		{"SPI", ev.SPI, false},
		{"EAC", ev.EAC / 100, true},
		{"VAC", ev.VAC / 100, true},
	}
	if err := wb.row(summarySheet, 2, "Project", p.Code+" "+p.Name); err != nil {
		wb.close()
		return err
	}
	for i, r := range rows {
		n := i + 3
		if err := wb.row(summarySheet, n, r.label, r.value); err != nil {
			wb.close()
			return err
		}
		style := wb.hours
		if r.money {
			style = wb.money
		}
		if err := wb.style(summarySheet, 2, n, n, style); err != nil {
			wb.close()
			return err
		}
	}

	if err := wb.sheet(itemsSheet, "Category", "Description", "Planned", "Actual", "Incurred on", "Change request"); err != nil {
		wb.close()
		return err
	}
	for i, it := range items {
		if err := wb.row(itemsSheet, i+2, string(it.Category), it.Description,
			currency(it.PlannedCents), currency(it.ActualCents), it.IncurredOn, it.ChangeRequestID); err != nil {
			wb.close()
			return err
		}
	}
	for _, col := range []int{3, 4} {
		if err := wb.style(itemsSheet, col, 2, len(items)+1, wb.money); err != nil {
			wb.close()
			return err
		}
	}
	return wb.writeTo(w)
}
