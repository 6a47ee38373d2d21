package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/repeat311/internal/model"
)

// WriteText writes the repeat-address report: a total line, then one block
// per group with a title-cased heading and one line per request.
func WriteText(w io.Writer, groups []model.AddressGroup) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "Total addresses with multiple features: %d\n\n", len(groups)); err != nil {
		return eris.Wrap(err, "report: write text header")
	}

	for _, g := range groups {
		if _, err := fmt.Fprintf(bw, "%s (%d requests)\n", TitleAddress(g.Key), g.Count()); err != nil {
			return eris.Wrapf(err, "report: write heading for %q", g.Key)
		}
		for _, r := range g.Requests {
			if _, err := fmt.Fprintf(bw, "%s, %s, %s\n", r.CaseID, r.CaseType, FormatOpened(r.OpenedAt)); err != nil {
				return eris.Wrapf(err, "report: write request %q", r.CaseID)
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return eris.Wrap(err, "report: write separator")
		}
	}

	return eris.Wrap(bw.Flush(), "report: flush text")
}

// WriteTextFile writes the repeat-address report to path, truncating any
// existing file.
func WriteTextFile(path string, groups []model.AddressGroup) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create text file")
	}
	defer f.Close() //nolint:errcheck

	if err := WriteText(f, groups); err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "report: close text file")
}
