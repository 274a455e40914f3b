// Package export renders the active ledger as a downloadable CSV report.
package export

import (
	"io"
	"strings"

	"pondo/internal/core"
)

// Header is the fixed column order of the report.
const Header = "Date,Type,Category,Description,Amount"

// utf8BOM keeps spreadsheet applications from misreading the encoding.
const utf8BOM = "\xef\xbb\xbf"

// FileName is the download name for a user's report.
func FileName(user string) string {
	return "Finance_Report_" + user + ".csv"
}

// WriteCSV writes the BOM, the header, and one row per transaction in the
// given (newest-first) order. Description is always quoted, with embedded
// quotes doubled; Amount uses the canonical two-decimal form so it parses
// back to the original value.
func WriteCSV(w io.Writer, items []core.Transaction) error {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(Header)
	b.WriteString("\r\n")
	for _, tx := range items {
		b.WriteString(tx.Date.String())
		b.WriteByte(',')
		b.WriteString(string(tx.Type))
		b.WriteByte(',')
		b.WriteString(tx.Category)
		b.WriteByte(',')
		b.WriteString(quote(tx.Description))
		b.WriteByte(',')
		b.WriteString(tx.Amount.Decimal())
		b.WriteString("\r\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
