package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
)

// ErrNotFound is wrapped by a TransportError whose status is 404.
var ErrNotFound = errors.New("not found")

// TransportError is a failed request to the extraction service: either a
// network failure (Status 0) or a non-2xx response.
type TransportError struct {
	Method  string
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client reads upload history and transaction detail from the extraction
// service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// History fetches the complete list of upload summaries.
func (c *Client) History(ctx context.Context) ([]models.UploadSummary, error) {
	var uploads []models.UploadSummary
	if err := c.getJSON(ctx, "/history", &uploads); err != nil {
		return nil, err
	}
	if uploads == nil {
		uploads = []models.UploadSummary{}
	}
	c.logger.Debug("fetched history", "count", len(uploads))
	return uploads, nil
}

// Transactions fetches the transaction records of one upload. A 404 is
// returned as a TransportError wrapping ErrNotFound.
func (c *Client) Transactions(ctx context.Context, uploadID string) ([]models.TransactionRecord, error) {
	var records []models.TransactionRecord
	if err := c.getJSON(ctx, "/transactions/"+url.PathEscape(uploadID), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	c.logger.Debug("fetched transactions", "upload_id", uploadID, "count", len(records))
	return records, nil
}

// ServerExport downloads a file generated by the service itself through
// /download/{excel,csv}/{uploadId}. It returns the body and the filename the
// service suggested.
func (c *Client) ServerExport(ctx context.Context, uploadID string, format report.Format) ([]byte, string, error) {
	kind := "csv"
	if format == report.FormatExcel {
		kind = "excel"
	}
	resp, err := c.get(ctx, "/download/"+kind+"/"+url.PathEscape(uploadID))
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", c.transportError(resp.Request, 0, "", fmt.Errorf("reading body: %w", err))
	}

	filename := fmt.Sprintf("extracted_data_%s.%s", uploadID, format.Extension())
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return body, filename, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return c.transportError(resp.Request, 0, "", fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// get issues a GET and converts transport failures and non-2xx statuses into
// a TransportError. On success the caller owns the body.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	// path segments are already escaped by the callers
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", req.Method, "url", req.URL.String(), "err", err)
		return nil, c.transportError(req, 0, "", err)
	}
	c.logger.Debug("http response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg := errorMessage(resp)
		var cause error
		if resp.StatusCode == http.StatusNotFound {
			cause = ErrNotFound
		}
		return nil, c.transportError(req, resp.StatusCode, msg, cause)
	}
	return resp, nil
}

func (c *Client) transportError(req *http.Request, status int, msg string, err error) *TransportError {
	return &TransportError{
		Method:  req.Method,
		URL:     req.URL.String(),
		Status:  status,
		Message: msg,
		Err:     err,
	}
}

// errorMessage extracts a readable message from an error response. The
// service answers with {"detail": "..."}; other shapes fall back to the body
// text or the status text.
func errorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var payload struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch d := payload.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
