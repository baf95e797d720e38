package report

import (
	"io"
	"sort"

	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
)

const (
	registerSheet = "Register"
	matrixSheet   = "Matrix"
)

// RiskRegister writes the register sorted by score, highest first, and a
// probability × impact matrix of open risks.
func RiskRegister(w io.Writer, p *project.Project, risks []risk.Risk) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}

	sorted := make([]risk.Risk, len(risks))
	copy(sorted, risks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if err := wb.sheet(registerSheet, "Project", "Title", "Category", "Probability", "Impact",
		"Score", "Level", "Status", "Strategy", "Owner", "Due", "Mitigation"); err != nil {
		wb.close()
		return err
	}
	m := risk.Matrix{ProjectID: p.ID}
	for i, r := range sorted {
		if err := wb.row(registerSheet, i+2, p.Code, r.Title, string(r.Category), r.Probability, r.Impact,
			r.Score, string(r.Level), string(r.Status), string(r.ResponseStrategy), r.OwnerID,
			r.DueDate, r.MitigationPlan); err != nil {
			wb.close()
			return err
		}
		m.Add(r)
	}

	if err := wb.sheet(matrixSheet, "Probability \\ Impact", "1", "2", "3", "4", "5"); err != nil {
		wb.close()
		return err
	}
	// Highest probability on top, as the matrix is usually drawn.
	for prob := 5; prob >= 1; prob-- {
		values := []any{prob}
		for impact := 1; impact <= 5; impact++ {
			values = append(values, m.Cells[prob-1][impact-1])
		}
		if err := wb.row(matrixSheet, 7-prob, values...); err != nil {
			wb.close()
			return err
		}
	}
	if err := wb.row(matrixSheet, 8, "Open risks", m.Total); err != nil {
		wb.close()
		return err
	}
	return wb.writeTo(w)
}
