package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/history"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

const placeholder = "-"

// Printer writes the history and detail views to a terminal.
type Printer struct {
	w   io.Writer
	loc *time.Location

	header lipgloss.Style
	muted  lipgloss.Style
	errs   lipgloss.Style
	ok     lipgloss.Style
}

type Option func(*Printer)

// NoColor disables all styling.
func NoColor() Option {
	return func(p *Printer) {
		plain := lipgloss.NewStyle()
		p.header, p.muted, p.errs, p.ok = plain, plain, plain, plain
	}
}

// InLocation renders upload dates in loc instead of the local zone. Dates
// sent without an offset are already in the local zone.
func InLocation(loc *time.Location) Option {
	return func(p *Printer) {
		p.loc = loc
	}
}

func New(w io.Writer, opts ...Option) *Printer {
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:      w,
		loc:    time.Local,
		header: r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("8")),  // gray
		errs:   r.NewStyle().Foreground(lipgloss.Color("9")),  // red
		ok:     r.NewStyle().Foreground(lipgloss.Color("10")), // green
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Total returns the display lines of a batch total, one per currency for
// multi-currency batches.
func Total(t models.TotalAmount) []string {
	switch t.Kind() {
	case models.TotalScalar:
		v, _ := t.Scalar()
		return []string{"$" + v.StringFixed(2)}
	case models.TotalPerCurrency:
		codes := t.Currencies()
		lines := make([]string, 0, len(codes))
		for _, code := range codes {
			v, _ := t.Subtotal(code)
			lines = append(lines, code+" "+v.StringFixed(2))
		}
		return lines
	default:
		return []string{"N/A"}
	}
}

// Amount formats a transaction amount to two decimals, falling back to the
// raw text when it is not a number and to "-" when it is missing.
func Amount(a models.Amount) string {
	if _, ok := a.Float(); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(a.Raw())); err == nil {
			return d.StringFixed(2)
		}
	}
	if a.Present() && !a.IsNumber() && a.Raw() != "" {
		return a.Raw()
	}
	return placeholder
}

// HistoryPage prints the store's current page.
func (p *Printer) HistoryPage(s *history.Store) {
	if err := s.Err(); err != nil {
		fmt.Fprintln(p.w, p.errs.Render("History unavailable: "+err.Error()))
	}
	if s.Len() == 0 {
		fmt.Fprintln(p.w, p.muted.Render("No transaction history available."))
		return
	}
	p.uploads(s.CurrentPage())
	fmt.Fprintln(p.w, p.muted.Render(fmt.Sprintf("Page %d of %d", s.Current()+1, s.PageCount())))
}

// HistoryAll prints every upload in one table.
func (p *Printer) HistoryAll(s *history.Store) {
	if err := s.Err(); err != nil {
		fmt.Fprintln(p.w, p.errs.Render("History unavailable: "+err.Error()))
	}
	if s.Len() == 0 {
		fmt.Fprintln(p.w, p.muted.Render("No transaction history available."))
		return
	}
	p.uploads(s.All())
}

func (p *Printer) uploads(uploads []models.UploadSummary) {
	rows := make([][]string, 0, len(uploads))
	for _, u := range uploads {
		date := placeholder
		if !u.UploadDate.IsZero() {
			date = u.UploadDate.In(p.loc).Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			u.UploadID,
			date,
			strings.Join(Total(u.TotalAmount), "\n"),
			fmt.Sprint(u.TotalFiles),
			fmt.Sprint(u.ValidationErrorsCount),
		})
	}
	p.table([]string{"Upload ID", "Date & Time", "Total Amount", "Total Files", "Missing Info"}, rows)
}

// Details prints the transactions of one upload.
func (p *Printer) Details(d detail.Details) {
	if d.Empty() {
		fmt.Fprintln(p.w, p.muted.Render("No transactions recorded for this upload."))
		return
	}
	fmt.Fprintln(p.w, p.header.Render(fmt.Sprintf("Transactions for %s (%d)", d.UploadID, len(d.Records))))
	rows := make([][]string, 0, len(d.Records))
	for _, r := range d.Records {
		rows = append(rows, []string{
			r.TransactionID.Or(placeholder),
			r.Date.Or(placeholder),
			r.Description.Or(placeholder),
			Amount(r.Amount),
		})
	}
	p.table([]string{"Transaction ID", "Date", "Description", "Amount"}, rows)
}

// Error prints an inline error line.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.errs.Render("Error: "+err.Error()))
}

// Alert prints a blocking user-facing message. It makes a Printer usable as
// the export controller's Alerter.
func (p *Printer) Alert(msg string) {
	fmt.Fprintln(p.w, p.errs.Render("! "+msg))
}

// Exported reports a finished export.
func (p *Printer) Exported(res download.Result) {
	line := fmt.Sprintf("saved %s (%d rows) to %s", res.Filename, res.Rows, res.Location)
	if res.Empty {
		line += " - no transactions recorded, header only"
	}
	fmt.Fprintln(p.w, p.ok.Render(line))
}

// table prints a left-aligned table. Cells may span several lines.
func (p *Printer) table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			for _, line := range strings.Split(cell, "\n") {
				widths[i] = max(widths[i], lipgloss.Width(line))
			}
		}
	}

	fmt.Fprintln(p.w, p.header.Render(joinCells(header, widths)))
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(p.w, p.muted.Render(joinCells(sep, widths)))

	for _, row := range rows {
		cells := make([][]string, len(row))
		height := 1
		for i, cell := range row {
			cells[i] = strings.Split(cell, "\n")
			height = max(height, len(cells[i]))
		}
		for l := 0; l < height; l++ {
			line := make([]string, len(row))
			for i := range row {
				if l < len(cells[i]) {
					line[i] = cells[i][l]
				}
			}
			fmt.Fprintln(p.w, joinCells(line, widths))
		}
	}
}

func joinCells(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = c + strings.Repeat(" ", max(0, widths[i]-lipgloss.Width(c)))
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}
