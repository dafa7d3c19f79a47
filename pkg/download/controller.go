package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
)

var (
	// ErrNoSelection is returned by PickFormat when no menu is open.
	ErrNoSelection = errors.New("no upload selected for download")
	// ErrBusy is returned while an export is being fetched.
	ErrBusy = errors.New("an export is already in progress")
	// ErrDismissed is returned by PickFormat when Close was called while
	// the export was in flight. Nothing is saved.
	ErrDismissed = errors.New("export dismissed")
)

// Phase is the controller's state tag.
type Phase int

const (
	Idle Phase = iota
	MenuOpen
	Fetching
)

func (p Phase) String() string {
	switch p {
	case MenuOpen:
		return "menu_open"
	case Fetching:
		return "fetching"
	default:
		return "idle"
	}
}

// State is the whole controller state. UploadID is set in MenuOpen and
// Fetching; Format only in Fetching.
type State struct {
	Phase    Phase
	UploadID string
	Format   report.Format
}

// Fetcher fetches the rows to export.
type Fetcher interface {
	Fetch(ctx context.Context, uploadID string) (detail.Details, error)
}

// Handle is a saved artifact. Revoke releases whatever was staged to save it.
type Handle interface {
	Location() string
	Revoke() error
}

// Saver hands an artifact to its destination.
type Saver interface {
	Save(ctx context.Context, a report.Artifact) (Handle, error)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(msg string)

func (f AlertFunc) Alert(msg string) { f(msg) }

// Result describes a finished export.
type Result struct {
	UploadID string
	Format   report.Format
	Filename string
	Location string
	Rows     int
	Empty    bool
}

// Controller coordinates the format menu and the fetch-encode-save export
// that follows a format pick.
type Controller struct {
	fetcher Fetcher
	saver   Saver
	alerter Alerter
	logger  *log.Logger

	mu    sync.Mutex
	state State
	seq   uint64
}

func NewController(fetcher Fetcher, saver Saver, alerter Alerter, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if alerter == nil {
		alerter = AlertFunc(func(string) {})
	}
	return &Controller{fetcher: fetcher, saver: saver, alerter: alerter, logger: logger}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OpenMenu opens the format menu for uploadID, replacing any open menu.
func (c *Controller) OpenMenu(uploadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == Fetching {
		return ErrBusy
	}
	c.state = State{Phase: MenuOpen, UploadID: uploadID}
	return nil
}

// Close dismisses the menu. An export in flight is abandoned.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == Fetching {
		c.logger.Info("export dismissed", "upload_id", c.state.UploadID, "format", c.state.Format)
	}
	c.seq++
	c.state = State{}
}

// PickFormat commits the open menu to format f: it fetches the rows of the
// selected upload, encodes them and saves the artifact. Any failure alerts
// the user, produces no file and leaves the controller Idle.
func (c *Controller) PickFormat(ctx context.Context, f report.Format) (Result, error) {
	c.mu.Lock()
	if phase := c.state.Phase; phase != MenuOpen {
		c.mu.Unlock()
		if phase == Fetching {
			return Result{}, ErrBusy
		}
		return Result{}, ErrNoSelection
	}
	c.seq++
	token := c.seq
	uploadID := c.state.UploadID
	c.state = State{Phase: Fetching, UploadID: uploadID, Format: f}
	c.mu.Unlock()

	if !f.Valid() {
		err := &report.EncodingError{Format: f, Err: fmt.Errorf("unsupported format")}
		return Result{}, c.fail(token, "Failed to generate the export file.", fmt.Errorf("exporting %s as %s: %w", uploadID, f, err))
	}

	c.logger.Debug("export started", "upload_id", uploadID, "format", f)

	d, err := c.fetcher.Fetch(ctx, uploadID)
	if err != nil {
		return Result{}, c.fail(token, "Failed to fetch transactions for download.", fmt.Errorf("exporting %s as %s: %w", uploadID, f, err))
	}

	artifact, err := report.Encode(f, uploadID, d.Records)
	if err != nil {
		return Result{}, c.fail(token, "Failed to generate the export file.", fmt.Errorf("exporting %s as %s: %w", uploadID, f, err))
	}

	if !c.current(token) {
		return Result{}, ErrDismissed
	}

	handle, err := c.saver.Save(ctx, artifact)
	if err != nil {
		return Result{}, c.fail(token, "Failed to save the export file.", fmt.Errorf("saving %s: %w", artifact.Filename, err))
	}
	if err := handle.Revoke(); err != nil {
		c.logger.Warn("failed to release staged export", "file", artifact.Filename, "err", err)
	}

	c.finish(token)
	c.logger.Info("export saved", "upload_id", uploadID, "format", f, "file", artifact.Filename, "rows", len(d.Records))
	return Result{
		UploadID: uploadID,
		Format:   f,
		Filename: artifact.Filename,
		Location: handle.Location(),
		Rows:     len(d.Records),
		Empty:    d.Empty(),
	}, nil
}

func (c *Controller) current(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq == token
}

// finish returns to Idle unless a Close superseded the export.
func (c *Controller) finish(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != token {
		return false
	}
	c.state = State{}
	return true
}

func (c *Controller) fail(token uint64, msg string, err error) error {
	if !c.finish(token) {
		return ErrDismissed
	}
	c.logger.Error("export failed", "err", err)
	c.alerter.Alert(msg)
	return err
}
