package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/report"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

// handleTimesheetExport streams time entries matching the list filters as
// an XLSX workbook, capped at exports.max_rows.
func (s *Server) handleTimesheetExport(w http.ResponseWriter, r *http.Request) {
	f, err := timeFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.collectEntries(r, f)
	if err != nil {
		s.writeDomainError(w, r, "export timesheet", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Timesheet(&buf, entries); err != nil {
		s.writeDomainError(w, r, "export timesheet", err)
		return
	}
	name := "timesheet-" + s.now().Format("20060102") + ".xlsx"
	s.writeWorkbook(w, name, &buf, len(entries))
}

// collectEntries pages through the repository up to the export cap.
func (s *Server) collectEntries(r *http.Request, f timesheet.Filter) ([]timesheet.Entry, error) {
	maxRows := s.exports.MaxRows
	if maxRows <= 0 {
		maxRows = database.MaxPageSize
	}
	f.Limit, f.Offset = database.MaxPageSize, 0

	var all []timesheet.Entry
	for len(all) < maxRows {
		page, _, err := s.timesheets.List(r.Context(), f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < f.Limit {
			break
		}
		f.Offset += len(page)
	}
	if len(all) > maxRows {
		all = all[:maxRows]
	}
	return all, nil
}

// handleRiskExport writes a project's risk register sorted by score.
func (s *Server) handleRiskExport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProject(w, r, chi.URLParam(r, "id"), accessRead)
	if !ok {
		return
	}
	risks, err := s.risks.List(r.Context(), risk.Filter{ProjectID: p.ID})
	if err != nil {
		s.writeDomainError(w, r, "export risks", err)
		return
	}
	if limit := s.exports.MaxRows; limit > 0 && len(risks) > limit {
		risks = risks[:limit]
	}

	var buf bytes.Buffer
	if err := report.RiskRegister(&buf, p, risks); err != nil {
		s.writeDomainError(w, r, "export risks", err)
		return
	}
	s.writeWorkbook(w, fmt.Sprintf("risks-%s.xlsx", p.Code), &buf, len(risks))
}

// handleBudgetExport writes budget lines plus a summary sheet.
func (s *Server) handleBudgetExport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProject(w, r, chi.URLParam(r, "id"), accessRead)
	if !ok {
		return
	}
	items, err := s.budget.List(r.Context(), p.ID)
	if err != nil {
		s.writeDomainError(w, r, "export budget", err)
		return
	}
	summary, err := s.budget.Summary(r.Context(), p.ID, s.now())
	if err != nil {
		s.writeDomainError(w, r, "export budget", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Budget(&buf, p, items, summary); err != nil {
		s.writeDomainError(w, r, "export budget", err)
		return
	}
	s.writeWorkbook(w, fmt.Sprintf("budget-%s.xlsx", p.Code), &buf, len(items))
}

func (s *Server) writeWorkbook(w http.ResponseWriter, filename string, buf *bytes.Buffer, rows int) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Rows", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may have gone away
	buf.WriteTo(w)
}
