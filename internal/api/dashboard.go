package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

// dashboard is the scoped overview shown on the landing page.
type dashboard struct {
	ProjectsByStatus map[project.Status]int `json:"projects_by_status"`
	OverdueTasks     int                    `json:"overdue_tasks"`
	OpenRisksByLevel map[risk.Level]int     `json:"open_risks_by_level"`
	PendingChanges   int                    `json:"pending_changes"`
	HoursThisWeek    float64                `json:"hours_this_week"`
	MyHoursThisWeek  float64                `json:"my_hours_this_week"`
	WeekStart        string                 `json:"week_start"`
	Today            string                 `json:"today"`
}

// handleDashboard aggregates counts over the projects visible to the caller.
// Hours cover the caller's own entries plus entries of projects they manage.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := principalFrom(ctx)
	ids := p.Scope.Restricted()

	now := s.localNow()
	today := now.Format(database.DateLayout)
	d := dashboard{
		WeekStart: s.weekStart(now).Format(database.DateLayout),
		Today:     today,
	}

	var err error
	if d.ProjectsByStatus, err = s.projects.CountByStatus(ctx, ids); err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}
	if d.OverdueTasks, err = s.tasks.CountOverdue(ctx, ids, today); err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}
	if d.OpenRisksByLevel, err = s.risks.CountOpenByLevel(ctx, ids); err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}
	if d.PendingChanges, err = s.changes.CountPending(ctx, ids); err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}

	week := timesheet.Filter{From: d.WeekStart, To: today}
	if p.Scope != nil {
		week.ProjectIDs = p.Scope.ManageProjectIDs
		if week.ProjectIDs == nil {
			week.ProjectIDs = []string{}
		}
		week.VisibleTo = p.UserID
	}
	if d.HoursThisWeek, err = s.timesheets.SumHours(ctx, week); err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}
	if d.MyHoursThisWeek, err = s.timesheets.SumHours(ctx, timesheet.Filter{
		UserID: p.UserID,
		From:   d.WeekStart,
		To:     today,
	}); err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// localNow is the current time in the organisation's timezone, or UTC when
// the zone is unset or unknown.
func (s *Server) localNow() time.Time {
	now := s.now()
	if s.org.Timezone == "" {
		return now.UTC()
	}
	loc, err := time.LoadLocation(s.org.Timezone)
	if err != nil {
		return now.UTC()
	}
	return now.In(loc)
}

// today is the organisation's current calendar date.
func (s *Server) today() string {
	return s.localNow().Format(database.DateLayout)
}

// weekStart returns the first day of the reporting week containing t.
func (s *Server) weekStart(t time.Time) time.Time {
	first := time.Monday
	if strings.EqualFold(s.org.WeekStart, "sunday") {
		first = time.Sunday
	}
	back := (int(t.Weekday()) - int(first) + 7) % 7
	y, m, day := t.AddDate(0, 0, -back).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}
