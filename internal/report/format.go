// Package report renders the repeat-address text report and the tabular
// exports of normalized service requests.
package report

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OpenedLayout renders open times as "January 02, 2006, 03:04PM".
const OpenedLayout = "January 02, 2006, 03:04PM"

// FormatOpened formats t with OpenedLayout in t's own location.
func FormatOpened(t time.Time) string {
	return t.Format(OpenedLayout)
}

// TitleAddress capitalizes the first letter of each word of a grouping key.
// Apostrophes start a new word, so "o'brien" becomes "O'Brien"; a letter
// after digits is also capitalized ("55th" becomes "55Th").
func TitleAddress(key string) string {
	caser := cases.Title(language.English)
	var b strings.Builder
	for {
		i := strings.IndexAny(key, "'’")
		if i < 0 {
			b.WriteString(caser.String(key))
			return b.String()
		}
		_, size := utf8.DecodeRuneInString(key[i:])
		b.WriteString(caser.String(key[:i]))
		b.WriteString(key[i : i+size])
		key = key[i+size:]
	}
}
