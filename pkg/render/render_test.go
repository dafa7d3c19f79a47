package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/history"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

func TestTotal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []string
	}{
		{"per currency", `{"USD": 10.5, "KHR": 4000}`, []string{"KHR 4000.00", "USD 10.50"}},
		{"scalar", `12.3`, []string{"$12.30"}},
		{"zero", `0`, []string{"$0.00"}},
		{"null", `null`, []string{"N/A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var total models.TotalAmount
			require.NoError(t, json.Unmarshal([]byte(tt.json), &total))
			assert.Equal(t, tt.want, Total(total))
		})
	}

	assert.Equal(t, []string{"N/A"}, Total(models.TotalAmount{}), "absent")
	assert.Equal(t, []string{"$-2.50"}, Total(models.ScalarTotal(decimal.RequireFromString("-2.5"))))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "3.50", Amount(models.NewAmount(3.5)))
	assert.Equal(t, "12.40", Amount(models.AmountFromString("12.4")))
	assert.Equal(t, "n/a", Amount(models.AmountFromString("n/a")))
	assert.Equal(t, "-", Amount(models.Amount{}))
	assert.Equal(t, "-", Amount(models.NewAmount(math.NaN())))
	assert.Equal(t, "-", Amount(models.NewAmount(math.Inf(1))))
}

type lister struct {
	uploads []models.UploadSummary
	err     error
}

func (l lister) History(context.Context) ([]models.UploadSummary, error) {
	return l.uploads, l.err
}

func TestHistoryPage(t *testing.T) {
	var uploads []models.UploadSummary
	require.NoError(t, json.Unmarshal([]byte(`[
		{"upload_id":"u1","upload_date":"2024-05-01T09:30:00","total_amount":12.3,"total_files":2,"validation_errors_count":1},
		{"upload_id":"u2","upload_date":"2024-05-02T10:00:00","total_amount":{"USD":10.5,"KHR":4000},"total_files":1},
		{"upload_id":"u3","total_amount":null,"total_files":0}
	]`), &uploads))

	s := history.NewStore(lister{uploads: uploads}, nil)
	require.NoError(t, s.Load(context.Background()))

	var buf bytes.Buffer
	New(&buf, NoColor()).HistoryPage(s)
	out := buf.String()

	assert.Contains(t, out, "Upload ID")
	assert.Contains(t, out, "Missing Info")
	assert.Contains(t, out, "2024-05-01 09:30:00")
	assert.Contains(t, out, "$12.30")
	assert.Contains(t, out, "KHR 4000.00")
	assert.Contains(t, out, "USD 10.50")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Page 1 of 1")
	assert.NotContains(t, out, "\x1b[")

	lines := strings.Split(out, "\n")
	var khr, usd int
	for i, l := range lines {
		if strings.Contains(l, "KHR 4000.00") {
			khr = i
		}
		if strings.Contains(l, "USD 10.50") {
			usd = i
		}
	}
	assert.Equal(t, khr+1, usd, "one line per currency")
}

func TestHistoryPage_NaiveDateKeepsWallClock(t *testing.T) {
	local := time.Local
	ict := time.FixedZone("ICT", 7*60*60)
	time.Local = ict
	t.Cleanup(func() { time.Local = local })

	var uploads []models.UploadSummary
	require.NoError(t, json.Unmarshal([]byte(`[{"upload_id":"u1","upload_date":"2024-01-01T10:00:00","total_amount":1,"total_files":1}]`), &uploads))
	s := history.NewStore(lister{uploads: uploads}, nil)
	require.NoError(t, s.Load(context.Background()))

	for _, p := range []*Printer{
		New(&bytes.Buffer{}, NoColor()),
		New(&bytes.Buffer{}, NoColor(), InLocation(ict)),
	} {
		p.HistoryPage(s)
		out := p.w.(*bytes.Buffer).String()
		assert.Contains(t, out, "2024-01-01 10:00:00")
		assert.NotContains(t, out, "17:00:00")
	}
}

func TestHistoryPage_Empty(t *testing.T) {
	s := history.NewStore(lister{}, nil)
	require.NoError(t, s.Load(context.Background()))

	var buf bytes.Buffer
	New(&buf, NoColor()).HistoryPage(s)
	assert.Equal(t, "No transaction history available.\n", buf.String())
}

func TestHistoryPage_Unavailable(t *testing.T) {
	s := history.NewStore(lister{err: errors.New("connection refused")}, nil)
	_ = s.Load(context.Background())

	var buf bytes.Buffer
	New(&buf, NoColor()).HistoryPage(s)
	assert.Contains(t, buf.String(), "History unavailable: connection refused")
	assert.Contains(t, buf.String(), "No transaction history available.")
}

func TestDetails(t *testing.T) {
	var records []models.TransactionRecord
	require.NoError(t, json.Unmarshal([]byte(`[
		{"transaction_id":"T1","date":"2024-01-01","description":"Coffee","amount":3.5},
		{"description":"Mystery"}
	]`), &records))

	var buf bytes.Buffer
	New(&buf, NoColor()).Details(detail.Details{UploadID: "u1", Records: records})
	out := buf.String()

	assert.Contains(t, out, "Transactions for u1 (2)")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "3.50")

	var mystery string
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "Mystery") {
			mystery = l
		}
	}
	assert.True(t, strings.HasPrefix(mystery, "-"), "missing id shows a placeholder: %q", mystery)
	assert.True(t, strings.HasSuffix(mystery, "-"), "missing amount shows a placeholder: %q", mystery)
}

func TestDetails_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, NoColor()).Details(detail.Details{UploadID: "u1", Outcome: detail.OutcomeEmpty})
	assert.Equal(t, "No transactions recorded for this upload.\n", buf.String())
}

func TestAlertAndExported(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, NoColor())

	var alerter download.Alerter = p
	alerter.Alert("Failed to fetch transactions for download.")
	p.Exported(download.Result{Filename: "transaction_u1.csv", Location: "/tmp/transaction_u1.csv", Rows: 0, Empty: true})

	out := buf.String()
	assert.Contains(t, out, "! Failed to fetch transactions for download.")
	assert.Contains(t, out, "saved transaction_u1.csv (0 rows) to /tmp/transaction_u1.csv")
	assert.Contains(t, out, "header only")
}
