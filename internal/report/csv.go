package report

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/repeat311/internal/model"
)

// csvRow is one row of the sorted export.
type csvRow struct {
	CaseID         string `csv:"CaseID"`
	Location       string `csv:"Location"`
	CaseType       string `csv:"CaseType"`
	OpenedDateTime string `csv:"OpenedDateTime"`
}

// CSVHeader is the fixed header of the sorted export.
var CSVHeader = []string{"CaseID", "Location", "CaseType", "OpenedDateTime"}

func toRow(r model.ServiceRequest) csvRow {
	return csvRow{
		CaseID:         r.CaseID,
		Location:       r.Location,
		CaseType:       r.CaseType,
		OpenedDateTime: FormatOpened(r.OpenedAt),
	}
}

// WriteCSV writes records, in the order given, under CSVHeader. Rows end in
// CRLF. The header is written even when records is empty.
func WriteCSV(w io.Writer, records []model.ServiceRequest) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(csvRow{}); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range records {
		if err := enc.Encode(toRow(r)); err != nil {
			return eris.Wrapf(err, "report: write csv row %q", r.CaseID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteCSVFile writes the sorted export to path.
func WriteCSVFile(path string, records []model.ServiceRequest) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create csv file")
	}
	defer f.Close() //nolint:errcheck

	if err := WriteCSV(f, records); err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "report: close csv file")
}
