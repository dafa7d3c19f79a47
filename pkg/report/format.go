package report

import (
	"fmt"
	"strings"
)

// Format is an export target.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat accepts "csv", "excel" and "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or excel)", s)
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatExcel
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return "csv"
}

// ContentType returns the MIME type the artifact is served with.
func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/octet-stream"
	}
	return "text/csv"
}

func (f Format) String() string {
	return string(f)
}

// Filename returns transaction_<uploadID>.<ext>.
func Filename(uploadID string, f Format) string {
	return "transaction_" + uploadID + "." + f.Extension()
}
