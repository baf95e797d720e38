package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// workbook wraps an excelize file with the header and number styles shared
// by every report.
type workbook struct {
	f      *excelize.File
	header int
	money  int
	hours  int
	first  bool
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	wb := &workbook{f: f, first: true}

	var err error
	if wb.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
	}); err != nil {
		f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if wb.money, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil { // #,##0.00
		f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("creating money style: %w", err)
	}
	if wb.hours, err = f.NewStyle(&excelize.Style{NumFmt: 2}); err != nil { // 0.00
		f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("creating hours style: %w", err)
	}
	return wb, nil
}

// sheet creates a sheet (renaming the default one for the first call) and
// writes a frozen, styled header row.
func (wb *workbook) sheet(name string, headers ...string) error {
	if wb.first {
		if err := wb.f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("naming sheet %s: %w", name, err)
		}
		wb.first = false
	} else if _, err := wb.f.NewSheet(name); err != nil {
		return fmt.Errorf("adding sheet %s: %w", name, err)
	}
	if len(headers) == 0 {
		return nil
	}

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := wb.f.SetSheetRow(name, "A1", &row); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := wb.f.SetCellStyle(name, "A1", last, wb.header); err != nil {
		return fmt.Errorf("styling %s header: %w", name, err)
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := wb.f.SetColWidth(name, "A", lastCol, 16); err != nil {
		return fmt.Errorf("sizing %s columns: %w", name, err)
	}
	return wb.f.SetPanes(name, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

// row writes values starting at column A of the given 1-based row.
func (wb *workbook) row(sheet string, n int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := wb.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
	return nil
}

// style applies a style to one column over a row range.
func (wb *workbook) style(sheet string, col, fromRow, toRow, style int) error {
	if toRow < fromRow {
		return nil
	}
	from, err := excelize.CoordinatesToCellName(col, fromRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col, toRow)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, from, to, style)
}

func (wb *workbook) writeTo(w io.Writer) error {
	defer wb.f.Close() //nolint:errcheck // in-memory file
	wb.f.SetActiveSheet(0)
	if _, err := wb.f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func (wb *workbook) close() {
	wb.f.Close() //nolint:errcheck // in-memory file
}

// currency converts integer cents to currency units for a spreadsheet cell.
func currency(cents int64) float64 {
	return float64(cents) / 100
}
