package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
)

// Dir saves artifacts into a local download directory.
type Dir struct {
	Path string
}

func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// Save writes the artifact to a hidden staging file first and renames it
// into place, so a reader never sees a half-written export.
func (d *Dir) Save(ctx context.Context, a report.Artifact) (download.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating download dir: %w", err)
	}

	staging := filepath.Join(d.Path, "."+uuid.NewString()+".part")
	final := filepath.Join(d.Path, filepath.Base(a.Filename))
	h := &dirHandle{staging: staging, final: final}

	if err := os.WriteFile(staging, a.Body, 0o644); err != nil {
		_ = h.Revoke()
		return nil, fmt.Errorf("writing %s: %w", a.Filename, err)
	}
	if err := os.Rename(staging, final); err != nil {
		_ = h.Revoke()
		return nil, fmt.Errorf("moving %s into place: %w", a.Filename, err)
	}
	return h, nil
}

type dirHandle struct {
	staging string
	final   string
}

func (h *dirHandle) Location() string {
	return h.final
}

// Revoke removes the staging file if it is still around.
func (h *dirHandle) Revoke() error {
	if err := os.Remove(h.staging); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
