package history

// Package history keeps the complete list of past uploads in memory and
// exposes fixed-size page windows over it. The list is fetched in one go;
// paging never goes back to the network.

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
)

// PageSize is the number of uploads shown per page.
const PageSize = 10

// Lister fetches the full, ordered upload history.
type Lister interface {
	History(ctx context.Context) ([]models.UploadSummary, error)
}

// Store holds the upload history and a page cursor. Load is the only writer.
type Store struct {
	lister Lister
	logger *log.Logger

	mu      sync.RWMutex
	uploads []models.UploadSummary
	err     error
	loaded  bool
	page    int
}

// NewStore creates an empty store backed by lister.
func NewStore(lister Lister, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{lister: lister, logger: logger}
}

// Load fetches the history. On failure the store is left empty and the error
// is kept for Err. Calling Load again refreshes the list; the page cursor is
// kept but clamped to the new page count.
func (s *Store) Load(ctx context.Context) error {
	uploads, err := s.lister.History(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	if err != nil {
		s.logger.Error("failed to load upload history", "err", err)
		s.uploads = nil
		s.err = err
		s.page = 0
		return err
	}
	s.uploads = uploads
	s.err = nil
	s.page = clamp(s.page, PageCount(len(uploads), PageSize))
	s.logger.Debug("loaded upload history", "uploads", len(uploads), "pages", PageCount(len(uploads), PageSize))
	return nil
}

// Err returns the error of the last Load, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loaded reports whether Load has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len returns the number of uploads held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uploads)
}

// All returns a copy of the full sequence.
func (s *Store) All() []models.UploadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.uploads)
}

// Lookup finds an upload by id.
func (s *Store) Lookup(uploadID string) (models.UploadSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.uploads {
		if u.UploadID == uploadID {
			return u, true
		}
	}
	return models.UploadSummary{}, false
}

// PageCount returns the number of pages, at least 1.
func (s *Store) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PageCount(len(s.uploads), PageSize)
}

// Page returns page k. Out-of-range pages are empty.
func (s *Store) Page(k int) []models.UploadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo, hi := Window(len(s.uploads), PageSize, k)
	return slices.Clone(s.uploads[lo:hi])
}

// Current returns the cursor's page index.
func (s *Store) Current() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// CurrentPage returns the uploads on the cursor's page.
func (s *Store) CurrentPage() []models.UploadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo, hi := Window(len(s.uploads), PageSize, s.page)
	return slices.Clone(s.uploads[lo:hi])
}

// Next advances the cursor. It is a no-op on the last page.
func (s *Store) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = clamp(s.page+1, PageCount(len(s.uploads), PageSize))
	return s.page
}

// Prev moves the cursor back. It is a no-op on the first page.
func (s *Store) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = clamp(s.page-1, PageCount(len(s.uploads), PageSize))
	return s.page
}

// SetPage moves the cursor to k, clamped to the valid range.
func (s *Store) SetPage(k int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = clamp(k, PageCount(len(s.uploads), PageSize))
	return s.page
}

// PageCount returns ceil(n/size), with a minimum of 1.
func PageCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Window returns the half-open bounds [lo, hi) of page k over n items.
// Out-of-range pages yield lo == hi.
func Window(n, size, k int) (lo, hi int) {
	if k < 0 || size <= 0 {
		return 0, 0
	}
	if n <= 0 || k > (n-1)/size {
		return max(n, 0), max(n, 0)
	}
	lo = k * size
	return lo, lo + min(size, n-lo)
}

func clamp(k, pages int) int {
	return max(0, min(k, pages-1))
}
