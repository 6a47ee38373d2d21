package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/repeat311/internal/model"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestFormatOpened(t *testing.T) {
	ny := newYork(t)

	tests := []struct {
		ms   int64
		want string
	}{
		{1705340700000, "January 15, 2024, 12:45PM"},
		{1688475900000, "July 04, 2023, 09:05AM"},
		{1710053940000, "March 10, 2024, 01:59AM"},
		{1710054060000, "March 10, 2024, 03:01AM"},
		{0, "December 31, 1969, 07:00PM"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatOpened(time.UnixMilli(tt.ms).In(ny)))
	}
}

func TestTitleAddress(t *testing.T) {
	assert.Equal(t, "10 Elm St", TitleAddress("10 elm st"))
	assert.Equal(t, "123 Main Street Ne", TitleAddress("123 main street ne"))
	assert.Equal(t, "", TitleAddress(""))
	assert.Equal(t, "1234 E 55Th St", TitleAddress("1234 e 55th st"))
	assert.Equal(t, "10 O'Brien Ave", TitleAddress("10 o'brien ave"))
	assert.Equal(t, "10 O’Brien Ave", TitleAddress("10 o’brien ave"))
	assert.Equal(t, "St. John'S", TitleAddress("st. john's"))
}

func sampleGroups(t *testing.T) []model.AddressGroup {
	ny := newYork(t)
	return []model.AddressGroup{
		{
			Key: "10 elm st",
			Requests: []model.ServiceRequest{
				{CaseID: "2345", Location: "10 Elm St", CaseType: "Pothole", OpenedAt: time.UnixMilli(1705340700000).In(ny)},
				{CaseID: "2346", Location: "10 ELM ST", CaseType: "N/A", OpenedAt: time.UnixMilli(1688475900000).In(ny)},
			},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleGroups(t)))

	want := "Total addresses with multiple features: 1\n" +
		"\n" +
		"10 Elm St (2 requests)\n" +
		"2345, Pothole, January 15, 2024, 12:45PM\n" +
		"2346, N/A, July 04, 2023, 09:05AM\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteText_NoGroups(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, nil))
	assert.Equal(t, "Total addresses with multiple features: 0\n\n", buf.String())
}

func TestWriteTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, WriteTextFile(path, sampleGroups(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Total addresses with multiple features: 1\n\n10 Elm St (2 requests)\n"))
}

func TestWriteTextFile_BadPath(t *testing.T) {
	err := WriteTextFile(filepath.Join(t.TempDir(), "missing", "report.txt"), nil)
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	ny := newYork(t)
	records := []model.ServiceRequest{
		{CaseID: "2346", Location: "10 ELM ST", CaseType: "N/A", OpenedAt: time.UnixMilli(1688475900000).In(ny)},
		{CaseID: "99", Location: "5 Oak St, Apt 2", CaseType: "Graffiti", OpenedAt: time.UnixMilli(1705340700000).In(ny)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	want := "CaseID,Location,CaseType,OpenedDateTime\r\n" +
		"2346,10 ELM ST,N/A,\"July 04, 2023, 09:05AM\"\r\n" +
		"99,\"5 Oak St, Apt 2\",Graffiti,\"January 15, 2024, 12:45PM\"\r\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "CaseID,Location,CaseType,OpenedDateTime\r\n", buf.String())
}

func TestWriteCSVFile_BadPath(t *testing.T) {
	err := WriteCSVFile(filepath.Join(t.TempDir(), "missing", "out.csv"), nil)
	require.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	ny := newYork(t)
	records := []model.ServiceRequest{
		{CaseID: "2345", Location: "10 Elm St", CaseType: "Pothole", OpenedAt: time.UnixMilli(1705340700000).In(ny)},
	}

	path := filepath.Join(t.TempDir(), "sorted.xlsx")
	require.NoError(t, WriteXLSX(path, records))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[XLSXSheet]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)

	var header, row []string
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	for _, c := range sheet.Rows[1].Cells {
		row = append(row, c.String())
	}
	assert.Equal(t, CSVHeader, header)
	assert.Equal(t, []string{"2345", "10 Elm St", "Pothole", "January 15, 2024, 12:45PM"}, row)
}
