package detail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/client"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

// ErrSuperseded is returned by Viewer.Show when another selection was made
// while the fetch was in flight. The fetched rows are dropped.
var ErrSuperseded = errors.New("detail fetch superseded by a newer selection")

// Getter fetches the transactions of one upload.
type Getter interface {
	Transactions(ctx context.Context, uploadID string) ([]models.TransactionRecord, error)
}

// Outcome tells a populated result apart from "nothing recorded".
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeEmpty
)

func (o Outcome) String() string {
	if o == OutcomeEmpty {
		return "empty"
	}
	return "found"
}

// Details is the result of one fetch, tagged with the upload it belongs to.
type Details struct {
	UploadID string
	Records  []models.TransactionRecord
	Outcome  Outcome
}

// Empty reports whether the service had no transactions for the upload.
func (d Details) Empty() bool {
	return d.Outcome == OutcomeEmpty
}

type Fetcher struct {
	getter Getter
	logger *log.Logger
}

func NewFetcher(getter Getter, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{getter: getter, logger: logger}
}

// Fetch retrieves the records of uploadID. A 404 from the service is a
// normal empty result. Any other failure is returned wrapped; the
// underlying *client.TransportError stays reachable with errors.As.
func (f *Fetcher) Fetch(ctx context.Context, uploadID string) (Details, error) {
	records, err := f.getter.Transactions(ctx, uploadID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			f.logger.Info("no transactions recorded", "upload_id", uploadID)
			return Details{UploadID: uploadID, Records: []models.TransactionRecord{}, Outcome: OutcomeEmpty}, nil
		}
		f.logger.Error("failed to fetch transactions", "upload_id", uploadID, "err", err)
		return Details{UploadID: uploadID}, fmt.Errorf("fetching transactions for %s: %w", uploadID, err)
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	return Details{UploadID: uploadID, Records: records, Outcome: OutcomeFound}, nil
}

// View is a snapshot of what the detail pane shows. After a failed fetch
// Details may still belong to an earlier selection; see Stale.
type View struct {
	Selected string
	Loading  bool
	Details  Details
	Err      error
}

// Stale reports whether Details were fetched for an upload other than the
// selected one. Callers label rows by Details.UploadID in that case.
func (v View) Stale() bool {
	return v.Details.UploadID != "" && v.Details.UploadID != v.Selected
}

// Viewer is the detail pane: one selection at a time, stale fetches dropped.
type Viewer struct {
	fetcher *Fetcher

	mu       sync.Mutex
	seq      uint64
	selected string
	loading  bool
	details  Details
	err      error
}

func NewViewer(fetcher *Fetcher) *Viewer {
	return &Viewer{fetcher: fetcher}
}

// Show selects uploadID and fetches its records. The result is applied only
// if no newer Show or Close happened meanwhile; otherwise ErrSuperseded is
// returned. On a fetch error the previously shown records are kept and the
// error is recorded on the view.
func (v *Viewer) Show(ctx context.Context, uploadID string) (Details, error) {
	v.mu.Lock()
	v.seq++
	token := v.seq
	v.selected = uploadID
	v.loading = true
	v.err = nil
	v.mu.Unlock()

	d, err := v.fetcher.Fetch(ctx, uploadID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.seq || v.selected != uploadID {
		v.fetcher.logger.Debug("dropping stale detail result", "upload_id", uploadID)
		return Details{}, ErrSuperseded
	}
	v.loading = false
	if err != nil {
		v.err = err
		return v.details, err
	}
	v.details = d
	return d, nil
}

// Close clears the selection. Fetches still in flight are discarded when
// they return.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	v.selected = ""
	v.loading = false
	v.details = Details{}
	v.err = nil
}

// State returns the current view.
func (v *Viewer) State() View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return View{
		Selected: v.selected,
		Loading:  v.loading,
		Details:  v.details,
		Err:      v.err,
	}
}
