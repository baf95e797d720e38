// Package report renders XLSX workbooks for timesheets, risk registers and
// project budgets.
//
// Builders take already-loaded, already-scoped data and write a complete
// workbook to an io.Writer; they never touch the database.
package report

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
