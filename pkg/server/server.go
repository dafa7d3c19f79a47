package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/client"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/download"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/history"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/render"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/sink"
)

// Service is what the server needs from the extraction service.
type Service interface {
	history.Lister
	detail.Getter
}

// Server exposes upload history, transaction detail and exports over HTTP.
type Server struct {
	logger  *log.Logger
	mux     *http.ServeMux
	store   *history.Store
	fetcher *detail.Fetcher
}

// New creates a new HTTP server
func New(svc Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		logger:  logger,
		mux:     http.NewServeMux(),
		store:   history.NewStore(svc, logger),
		fetcher: detail.NewFetcher(svc, logger),
	}
	s.setupRoutes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start loads the history once and serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	if err := s.store.Load(ctx); err != nil {
		s.logger.Warn("starting with empty history", "err", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.withLogging(s.handleHealth))
	s.mux.HandleFunc("GET /api/history", s.withLogging(s.handleHistory))
	s.mux.HandleFunc("POST /api/history/refresh", s.withLogging(s.handleRefresh))
	s.mux.HandleFunc("GET /api/transactions/{id}", s.withLogging(s.handleTransactions))
	s.mux.HandleFunc("GET /api/export/{id}", s.withLogging(s.handleExport))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// uploadView is an UploadSummary plus its rendered total.
type uploadView struct {
	models.UploadSummary
	TotalDisplay []string `json:"total_display"`
}

func (u uploadView) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(u.UploadSummary)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	display, err := json.Marshal(u.TotalDisplay)
	if err != nil {
		return nil, err
	}
	fields["total_display"] = display
	return json.Marshal(fields)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.store.Loaded() {
		_ = s.store.Load(r.Context())
	}

	page := s.store.Current()
	if raw := r.URL.Query().Get("page"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "page must be an integer", err)
			return
		}
		page = max(0, min(k, s.store.PageCount()-1))
	}
	s.writeHistory(w, page)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Load(r.Context()); err != nil {
		s.logger.Warn("history refresh failed", "err", err)
	}
	s.writeHistory(w, s.store.Current())
}

// writeHistory answers 200 even when the list could not be loaded; the error
// is reported in the body next to an empty page.
func (s *Server) writeHistory(w http.ResponseWriter, page int) {
	uploads := s.store.Page(page)
	items := make([]uploadView, len(uploads))
	for i, u := range uploads {
		items[i] = uploadView{UploadSummary: u, TotalDisplay: render.Total(u.TotalAmount)}
	}
	body := map[string]any{
		"status":     "success",
		"page":       page,
		"page_count": s.store.PageCount(),
		"page_size":  history.PageSize,
		"total":      s.store.Len(),
		"items":      items,
	}
	if err := s.store.Err(); err != nil {
		body["status"] = "degraded"
		body["error"] = "history unavailable: " + err.Error()
	}
	if err := s.writeJSON(w, http.StatusOK, body); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.respondError(w, r, http.StatusBadRequest, "upload id required", nil)
		return
	}

	d, err := s.fetcher.Fetch(r.Context(), id)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to fetch transactions", err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"upload_id":    d.UploadID,
		"outcome":      d.Outcome.String(),
		"transactions": d.Records,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleExport runs one export through a download controller whose saver
// streams the artifact back as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID)

	var alert string
	var committed bool
	saver := &sink.Writer{
		W: w,
		Prepare: func(a report.Artifact) {
			w.Header().Set("Content-Type", a.ContentType)
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", a.Filename))
			w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
			w.WriteHeader(http.StatusOK)
			committed = true
		},
	}
	ctrl := download.NewController(s.fetcher, saver, download.AlertFunc(func(msg string) { alert = msg }), logger)

	if err := ctrl.OpenMenu(id); err != nil {
		s.respondError(w, r, http.StatusConflict, err.Error(), nil)
		return
	}
	res, err := ctrl.PickFormat(r.Context(), f)
	if err != nil && committed {
		// The attachment headers are out; a JSON error would corrupt it.
		logger.Error("export aborted mid-stream", "upload_id", id, "format", f, "err", err)
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		var ee *report.EncodingError
		if errors.As(err, &ee) {
			status = http.StatusInternalServerError
		}
		if alert == "" {
			alert = "export failed"
		}
		s.respondError(w, r, status, alert, err)
		return
	}
	logger.Info("export served", "upload_id", res.UploadID, "format", res.Format, "rows", res.Rows)
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	body := map[string]string{
		"status": "error",
		"error":  message,
	}
	var te *client.TransportError
	if errors.As(err, &te) && te.Message != "" {
		body["detail"] = te.Message
	}
	_ = s.writeJSON(w, status, body)
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
				return
			}
			s.logger.Debug("http response", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
		}()
		next(w, r)
	}
}
