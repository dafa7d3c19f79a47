package report

import (
	"fmt"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

// Artifact is an encoded export ready to be saved.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// EncodingError means the workbook or CSV could not be produced. No partial
// artifact accompanies it.
type EncodingError struct {
	Format Format
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encode renders records of uploadID in the given format.
func Encode(f Format, uploadID string, records []models.TransactionRecord) (Artifact, error) {
	var body []byte
	switch f {
	case FormatCSV:
		body = EncodeCSV(records)
	case FormatExcel:
		b, err := EncodeXLSX(records)
		if err != nil {
			return Artifact{}, &EncodingError{Format: f, Err: err}
		}
		body = b
	default:
		return Artifact{}, &EncodingError{Format: f, Err: fmt.Errorf("unsupported format")}
	}
	return Artifact{
		Filename:    Filename(uploadID, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}
