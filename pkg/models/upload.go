package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UploadSummary is one completed upload batch as listed by GET /history.
type UploadSummary struct {
	UploadID              string
	UploadDate            time.Time
	TotalAmount           TotalAmount
	TotalFiles            int
	ValidationErrorsCount int
}

type uploadSummaryJSON struct {
	UploadID              string      `json:"upload_id"`
	UploadDate            string      `json:"upload_date,omitempty"`
	TotalAmount           TotalAmount `json:"total_amount"`
	TotalFiles            int         `json:"total_files"`
	ValidationErrorsCount *int        `json:"validation_errors_count"`
}

// naiveLayouts carry no offset. The collaborator stamps uploads with its
// local wall clock, so they are read in the local zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseUploadDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (u *UploadSummary) UnmarshalJSON(data []byte) error {
	var raw uploadSummaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding upload summary: %w", err)
	}
	// An unreadable date leaves the zero time; the row is still listed.
	date, _ := parseUploadDate(raw.UploadDate)
	*u = UploadSummary{
		UploadID:    raw.UploadID,
		UploadDate:  date,
		TotalAmount: raw.TotalAmount,
		TotalFiles:  raw.TotalFiles,
	}
	if raw.ValidationErrorsCount != nil {
		u.ValidationErrorsCount = *raw.ValidationErrorsCount
	}
	return nil
}

func (u UploadSummary) MarshalJSON() ([]byte, error) {
	count := u.ValidationErrorsCount
	raw := uploadSummaryJSON{
		UploadID:              u.UploadID,
		TotalAmount:           u.TotalAmount,
		TotalFiles:            u.TotalFiles,
		ValidationErrorsCount: &count,
	}
	if !u.UploadDate.IsZero() {
		raw.UploadDate = u.UploadDate.Format(time.RFC3339)
	}
	return json.Marshal(raw)
}

// TotalKind tags the variant held by a TotalAmount.
type TotalKind int

const (
	// TotalUnknown means the total was absent, null or unreadable.
	TotalUnknown TotalKind = iota
	// TotalScalar is a single numeric total.
	TotalScalar
	// TotalPerCurrency maps currency codes to subtotals.
	TotalPerCurrency
)

func (k TotalKind) String() string {
	switch k {
	case TotalScalar:
		return "scalar"
	case TotalPerCurrency:
		return "per_currency"
	default:
		return "unknown"
	}
}

// TotalAmount is the batch total: a single number, a per-currency mapping,
// or unknown. The zero value is unknown.
type TotalAmount struct {
	kind        TotalKind
	scalar      decimal.Decimal
	perCurrency map[string]decimal.Decimal
}

// ScalarTotal returns a single-value total.
func ScalarTotal(d decimal.Decimal) TotalAmount {
	return TotalAmount{kind: TotalScalar, scalar: d}
}

// PerCurrencyTotal returns a multi-currency total. An empty map yields an
// unknown total.
func PerCurrencyTotal(m map[string]decimal.Decimal) TotalAmount {
	if len(m) == 0 {
		return TotalAmount{}
	}
	cp := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return TotalAmount{kind: TotalPerCurrency, perCurrency: cp}
}

// Kind returns which variant t holds.
func (t TotalAmount) Kind() TotalKind {
	return t.kind
}

// Scalar returns the single total when Kind is TotalScalar.
func (t TotalAmount) Scalar() (decimal.Decimal, bool) {
	return t.scalar, t.kind == TotalScalar
}

// Currencies returns the currency codes of a per-currency total, sorted.
func (t TotalAmount) Currencies() []string {
	codes := make([]string, 0, len(t.perCurrency))
	for code := range t.perCurrency {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Subtotal returns the subtotal for one currency.
func (t TotalAmount) Subtotal(code string) (decimal.Decimal, bool) {
	d, ok := t.perCurrency[code]
	return d, ok
}

func (t *TotalAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = TotalAmount{}
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decoding total_amount: %w", err)
		}
		m := make(map[string]decimal.Decimal, len(fields))
		for code, raw := range fields {
			d, err := decimal.NewFromString(string(bytes.TrimSpace(raw)))
			if err != nil {
				// null or non-numeric subtotals are dropped
				continue
			}
			m[code] = d
		}
		*t = PerCurrencyTotal(m)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return nil
		}
		*t = ScalarTotal(d)
	}
	return nil
}

func (t TotalAmount) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case TotalScalar:
		return []byte(t.scalar.String()), nil
	case TotalPerCurrency:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, code := range t.Currencies() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(code)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.WriteString(t.perCurrency[code].String())
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}
