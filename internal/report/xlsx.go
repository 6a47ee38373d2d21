package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/repeat311/internal/model"
)

// XLSXSheet is the sheet name used by WriteXLSX.
const XLSXSheet = "Requests"

// WriteXLSX writes the sorted export as a single-sheet workbook with the same
// header and cell text as the CSV export.
func WriteXLSX(path string, records []model.ServiceRequest) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(XLSXSheet)
	if err != nil {
		return eris.Wrap(err, "report: add xlsx sheet")
	}

	addRow(sheet, CSVHeader)
	for _, r := range records {
		row := toRow(r)
		addRow(sheet, []string{row.CaseID, row.Location, row.CaseType, row.OpenedDateTime})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
