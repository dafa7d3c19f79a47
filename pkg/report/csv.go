package report

import (
	"bytes"
	"strings"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

// Header is the column row of both export formats.
var Header = []string{"Transaction ID", "Date", "Description", "Amount"}

// EncodeCSV renders records as CSV. Every text field is quoted with embedded
// quotes doubled. Numeric amounts are written bare as received, string
// amounts are quoted, and missing or non-finite amounts become "". Rows are
// separated by "\n" without a trailing newline.
func EncodeCSV(records []models.TransactionRecord) []byte {
	var buf bytes.Buffer
	for i, h := range Header {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeQuoted(&buf, h)
	}
	for _, r := range records {
		buf.WriteByte('\n')
		writeQuoted(&buf, r.TransactionID.String())
		buf.WriteByte(',')
		writeQuoted(&buf, r.Date.String())
		buf.WriteByte(',')
		writeQuoted(&buf, r.Description.String())
		buf.WriteByte(',')
		writeAmount(&buf, r.Amount)
	}
	return buf.Bytes()
}

func writeAmount(buf *bytes.Buffer, a models.Amount) {
	switch {
	case a.Finite():
		buf.WriteString(a.Raw())
	case a.Present() && !a.IsNumber():
		writeQuoted(buf, a.Raw())
	default:
		writeQuoted(buf, "")
	}
}

func writeQuoted(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	buf.WriteString(strings.ReplaceAll(s, `"`, `""`))
	buf.WriteByte('"')
}
