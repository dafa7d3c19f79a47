package main

import (
	"strings"
	"time"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

type filters struct {
	startDate string
	endDate   string
	minAmount float64
	maxAmount float64
	search    string
}

func (f *filters) active() bool {
	return f.startDate != "" || f.endDate != "" || f.minAmount != 0 || f.maxAmount != 0 || f.search != ""
}

// match reports whether r passes every set filter. Records whose date or
// amount cannot be read never pass a filter on that field.
func (f *filters) match(r models.TransactionRecord) bool {
	if f.startDate != "" || f.endDate != "" {
		date, err := time.Parse("2006-01-02", r.Date.String())
		if err != nil {
			return false
		}
		if f.startDate != "" {
			start, _ := time.Parse("2006-01-02", f.startDate)
			if date.Before(start) {
				return false
			}
		}
		if f.endDate != "" {
			end, _ := time.Parse("2006-01-02", f.endDate)
			if date.After(end) {
				return false
			}
		}
	}
	if f.minAmount != 0 || f.maxAmount != 0 {
		amount, ok := r.Amount.Float()
		if !ok {
			return false
		}
		if f.minAmount != 0 && amount < f.minAmount {
			return false
		}
		if f.maxAmount != 0 && amount > f.maxAmount {
			return false
		}
	}
	if f.search != "" {
		needle := strings.ToLower(f.search)
		if !strings.Contains(strings.ToLower(r.Description.String()), needle) &&
			!strings.Contains(strings.ToLower(r.TransactionID.String()), needle) {
			return false
		}
	}
	return true
}

func (f *filters) apply(records []models.TransactionRecord) []models.TransactionRecord {
	if !f.active() {
		return records
	}
	out := make([]models.TransactionRecord, 0, len(records))
	for _, r := range records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}
