package report

import (
	"io"
	"sort"

	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

const (
	entriesSheet = "Entries"
	totalsSheet  = "Totals"
)

// Timesheet writes one row per entry and a per-user totals sheet.
func Timesheet(w io.Writer, entries []timesheet.Entry) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}

	if err := wb.sheet(entriesSheet, "Date", "User", "Project", "Task", "Hours", "Billable", "Status", "Description"); err != nil {
		wb.close()
		return err
	}
	type total struct {
		user     string
		hours    float64
		billable float64
		approved float64
	}
	totals := make(map[string]*total)
	for i, e := range entries {
		billable := "no"
		if e.Billable {
			billable = "yes"
		}
		if err := wb.row(entriesSheet, i+2, e.WorkDate, e.Username, e.ProjectCode, e.TaskID,
			e.Hours, billable, string(e.Status), e.Description); err != nil {
			wb.close()
			return err
		}

		t, ok := totals[e.UserID]
		if !ok {
			t = &total{user: e.Username}
			totals[e.UserID] = t
		}
		t.hours += e.Hours
		if e.Billable {
			t.billable += e.Hours
		}
		if e.Status == timesheet.StatusApproved {
			t.approved += e.Hours
		}
	}
	if err := wb.style(entriesSheet, 5, 2, len(entries)+1, wb.hours); err != nil {
		wb.close()
		return err
	}

	if err := wb.sheet(totalsSheet, "User", "Hours", "Billable hours", "Approved hours"); err != nil {
		wb.close()
		return err
	}
	users := make([]*total, 0, len(totals))
	for _, t := range totals {
		users = append(users, t)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].user < users[j].user })
	var grand float64
	for i, t := range users {
		if err := wb.row(totalsSheet, i+2, t.user, t.hours, t.billable, t.approved); err != nil {
			wb.close()
			return err
		}
		grand += t.hours
	}
	last := len(users) + 2
	if err := wb.row(totalsSheet, last, "Total", grand); err != nil {
		wb.close()
		return err
	}
	for col := 2; col <= 4; col++ {
		if err := wb.style(totalsSheet, col, 2, last, wb.hours); err != nil {
			wb.close()
			return err
		}
	}
	return wb.writeTo(w)
}
