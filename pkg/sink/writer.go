package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
)

// Writer streams artifacts into W. Prepare, when set, runs before the body
// is written; the web front uses it to set response headers.
type Writer struct {
	W       io.Writer
	Prepare func(report.Artifact)
}

func (s *Writer) Save(ctx context.Context, a report.Artifact) (download.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Prepare != nil {
		s.Prepare(a)
	}
	if _, err := s.W.Write(a.Body); err != nil {
		return nil, fmt.Errorf("writing %s: %w", a.Filename, err)
	}
	return streamHandle(a.Filename), nil
}

type streamHandle string

func (h streamHandle) Location() string { return string(h) }
func (h streamHandle) Revoke() error    { return nil }
