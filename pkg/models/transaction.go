package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// TransactionRecord is one extracted line item of an upload batch, as
// returned by GET /transactions/{uploadId}. Every field is optional.
type TransactionRecord struct {
	TransactionID Text   `json:"transaction_id"`
	Date          Text   `json:"date"`
	Description   Text   `json:"description"`
	Amount        Amount `json:"amount"`
}

// Text is an optional string field. The collaborator occasionally sends ids
// as bare numbers, so numbers are accepted and kept as their literal text.
type Text struct {
	value string
	valid bool
}

// TextOf returns a present Text holding s.
func TextOf(s string) Text {
	return Text{value: s, valid: true}
}

// Valid reports whether the field was present and non-null.
func (t Text) Valid() bool {
	return t.valid
}

// String returns the value, or "" when absent.
func (t Text) String() string {
	return t.value
}

// Or returns the value, or fallback when absent.
func (t Text) Or(fallback string) string {
	if !t.valid {
		return fallback
	}
	return t.value
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*t = Text{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TextOf(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*t = TextOf(string(data))
	default:
		// booleans, objects and arrays carry nothing we can show
		*t = Text{}
	}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}

// Amount is the optional amount of a transaction. The raw value is kept so
// that exports pass it through untouched.
type Amount struct {
	raw     string
	numeric bool
	present bool
}

// NewAmount returns a numeric Amount. Non-finite values are allowed and
// report ok=false from Float.
func NewAmount(f float64) Amount {
	return Amount{raw: strconv.FormatFloat(f, 'f', -1, 64), numeric: true, present: true}
}

// AmountFromString returns an Amount that arrived as a JSON string.
func AmountFromString(s string) Amount {
	return Amount{raw: s, present: true}
}

// Present reports whether the field was present and non-null.
func (a Amount) Present() bool {
	return a.present
}

// IsNumber reports whether the amount arrived as a JSON number.
func (a Amount) IsNumber() bool {
	return a.present && a.numeric
}

// Raw returns the amount as received: the number literal or the string
// content. It is "" when absent.
func (a Amount) Raw() string {
	return a.raw
}

// Float parses the amount. ok is false when it is absent, not numeric, or
// not a finite number.
func (a Amount) Float() (float64, bool) {
	if !a.present {
		return 0, false
	}
	s := strings.TrimSpace(a.raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Finite reports whether the amount is a JSON number holding a finite value.
func (a Amount) Finite() bool {
	if !a.numeric {
		return false
	}
	_, ok := a.Float()
	return ok
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*a = Amount{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountFromString(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*a = Amount{raw: string(data), numeric: true, present: true}
	default:
		*a = Amount{}
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	switch {
	case !a.present:
		return []byte("null"), nil
	case a.numeric:
		if !a.Finite() {
			return []byte("null"), nil
		}
		return []byte(a.raw), nil
	default:
		return json.Marshal(a.raw)
	}
}
