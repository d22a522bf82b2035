package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"numtrack/internal/record"
	"numtrack/internal/view"
)

const sheetName = "Numbers"

var xlsxHeader = []any{"Number", "Status", "Sub-status", "Name", "Date"}

// WriteXLSX writes the same table as WriteCSV plus the sub-status and the
// active date of each record.
func WriteXLSX(w io.Writer, rs view.Records) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	f.SetColWidth(sheetName, "A", "A", 9)
	f.SetColWidth(sheetName, "B", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 32)
	f.SetColWidth(sheetName, "E", "E", 14)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &xlsxHeader); err != nil {
		return err
	}
	f.SetCellStyle(sheetName, "A1", "E1", headerStyle)

	for n := record.MinNumber; n <= record.MaxNumber; n++ {
		r := rs.Get(n)
		sub := ""
		if record.IsCategory(r.Status) {
			sub = string(r.Sub(r.Status).Status)
		}
		date := ""
		if d := r.ActiveDate(); d != nil {
			date = d.Format(record.DateLayout)
		}
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		row := []any{n, string(r.Status), sub, r.Name, date}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", n, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
