package download

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/client"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/detail"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/models"
	"github.com/chantharith-NY/Bank-Transcript-Scanner/pkg/report"
)

type fakeGetter struct {
	rows map[string][]models.TransactionRecord
	errs map[string]error
	hook func(uploadID string)
}

func (g *fakeGetter) Transactions(ctx context.Context, uploadID string) ([]models.TransactionRecord, error) {
	if g.hook != nil {
		g.hook(uploadID)
	}
	if err := g.errs[uploadID]; err != nil {
		return nil, err
	}
	return g.rows[uploadID], nil
}

type memHandle struct {
	name    string
	revoked bool
}

func (h *memHandle) Location() string { return "mem://" + h.name }
func (h *memHandle) Revoke() error    { h.revoked = true; return nil }

type memSaver struct {
	mu      sync.Mutex
	saved   map[string][]byte
	handles []*memHandle
	err     error
}

func (s *memSaver) Save(ctx context.Context, a report.Artifact) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[a.Filename] = a.Body
	h := &memHandle{name: a.Filename}
	s.handles = append(s.handles, h)
	return h, nil
}

type alerts struct{ msgs []string }

func (a *alerts) Alert(msg string) { a.msgs = append(a.msgs, msg) }

func rec(id, desc string, amount float64) models.TransactionRecord {
	return models.TransactionRecord{
		TransactionID: models.TextOf(id),
		Description:   models.TextOf(desc),
		Amount:        models.NewAmount(amount),
	}
}

func newController(g *fakeGetter, s *memSaver, a *alerts) *Controller {
	return NewController(detail.NewFetcher(g, nil), s, a, nil)
}

func TestTransitions(t *testing.T) {
	c := newController(&fakeGetter{}, &memSaver{}, &alerts{})
	assert.Equal(t, State{}, c.State())
	assert.Equal(t, Idle, c.State().Phase)

	require.NoError(t, c.OpenMenu("a"))
	assert.Equal(t, State{Phase: MenuOpen, UploadID: "a"}, c.State())

	require.NoError(t, c.OpenMenu("b"))
	assert.Equal(t, State{Phase: MenuOpen, UploadID: "b"}, c.State(), "opening another menu replaces the first")

	c.Close()
	assert.Equal(t, State{}, c.State())

	_, err := c.PickFormat(context.Background(), report.FormatCSV)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestPickFormat_SavesAndRevokes(t *testing.T) {
	g := &fakeGetter{rows: map[string][]models.TransactionRecord{
		"u1": {rec("T1", "Coffee", 3.5)},
	}}
	s := &memSaver{}
	a := &alerts{}
	c := newController(g, s, a)

	require.NoError(t, c.OpenMenu("u1"))
	res, err := c.PickFormat(context.Background(), report.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "transaction_u1.csv", res.Filename)
	assert.Equal(t, "mem://transaction_u1.csv", res.Location)
	assert.Equal(t, 1, res.Rows)
	assert.False(t, res.Empty)
	assert.Equal(t, State{}, c.State())
	assert.Empty(t, a.msgs)

	require.Len(t, s.handles, 1)
	assert.True(t, s.handles[0].revoked)
	assert.Contains(t, string(s.saved["transaction_u1.csv"]), `"T1","","Coffee",3.5`)
}

func TestPickFormat_StateWhileFetching(t *testing.T) {
	var c *Controller
	var during State
	var openErr, pickErr error
	g := &fakeGetter{hook: func(string) {
		during = c.State()
		openErr = c.OpenMenu("other")
		_, pickErr = c.PickFormat(context.Background(), report.FormatCSV)
	}}
	c = newController(g, &memSaver{}, &alerts{})

	require.NoError(t, c.OpenMenu("u1"))
	_, err := c.PickFormat(context.Background(), report.FormatExcel)
	require.NoError(t, err)

	assert.Equal(t, State{Phase: Fetching, UploadID: "u1", Format: report.FormatExcel}, during)
	assert.ErrorIs(t, openErr, ErrBusy)
	assert.ErrorIs(t, pickErr, ErrBusy)
	assert.Equal(t, Idle, c.State().Phase)
}

func TestPickFormat_NotFoundExportsHeaderOnly(t *testing.T) {
	g := &fakeGetter{errs: map[string]error{
		"gone": &client.TransportError{Status: 404, Err: client.ErrNotFound},
	}}
	s := &memSaver{}
	a := &alerts{}
	c := newController(g, s, a)

	require.NoError(t, c.OpenMenu("gone"))
	res, err := c.PickFormat(context.Background(), report.FormatCSV)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Equal(t, `"Transaction ID","Date","Description","Amount"`, string(s.saved["transaction_gone.csv"]))
	assert.Empty(t, a.msgs)
}

func TestPickFormat_FetchFailure(t *testing.T) {
	g := &fakeGetter{errs: map[string]error{
		"u1": &client.TransportError{Status: 500, Message: "boom"},
	}}
	s := &memSaver{}
	a := &alerts{}
	c := newController(g, s, a)

	require.NoError(t, c.OpenMenu("u1"))
	_, err := c.PickFormat(context.Background(), report.FormatExcel)
	require.Error(t, err)

	var te *client.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, []string{"Failed to fetch transactions for download."}, a.msgs)
	assert.Equal(t, State{}, c.State())
	assert.Empty(t, s.saved, "no partial download")
}

func TestPickFormat_SaveFailure(t *testing.T) {
	g := &fakeGetter{rows: map[string][]models.TransactionRecord{"u1": {rec("T1", "x", 1)}}}
	s := &memSaver{err: errors.New("disk full")}
	a := &alerts{}
	c := newController(g, s, a)

	require.NoError(t, c.OpenMenu("u1"))
	_, err := c.PickFormat(context.Background(), report.FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, a.msgs, 1)
	assert.Equal(t, Idle, c.State().Phase)
}

func TestPickFormat_UnsupportedFormat(t *testing.T) {
	var fetched int
	g := &fakeGetter{
		rows: map[string][]models.TransactionRecord{"u1": {rec("T1", "x", 1)}},
		hook: func(string) { fetched++ },
	}
	s := &memSaver{}
	a := &alerts{}
	c := newController(g, s, a)

	require.NoError(t, c.OpenMenu("u1"))
	_, err := c.PickFormat(context.Background(), report.Format("pdf"))
	require.Error(t, err)

	var ee *report.EncodingError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, report.Format("pdf"), ee.Format)
	assert.Equal(t, []string{"Failed to generate the export file."}, a.msgs)
	assert.Empty(t, s.saved)
	assert.Empty(t, s.handles)
	assert.Zero(t, fetched, "unsupported format is rejected before fetching")
	assert.Equal(t, Idle, c.State().Phase)
}

func TestPickFormat_CloseWhileFetching(t *testing.T) {
	var c *Controller
	g := &fakeGetter{
		rows: map[string][]models.TransactionRecord{"u1": {rec("T1", "x", 1)}},
		hook: func(string) {
			c.Close()
			_ = c.OpenMenu("u2")
		},
	}
	s := &memSaver{}
	a := &alerts{}
	c = newController(g, s, a)

	require.NoError(t, c.OpenMenu("u1"))
	_, err := c.PickFormat(context.Background(), report.FormatCSV)
	assert.ErrorIs(t, err, ErrDismissed)
	assert.Empty(t, s.saved)
	assert.Empty(t, a.msgs)
	assert.Equal(t, State{Phase: MenuOpen, UploadID: "u2"}, c.State(), "newer menu is left alone")
}

func TestExcelThenCSVForDifferentUploads(t *testing.T) {
	g := &fakeGetter{rows: map[string][]models.TransactionRecord{
		"alpha": {rec("A1", "alpha rent", 100), rec("A2", "alpha food", 20)},
		"beta":  {rec("B1", "beta fuel", 40)},
	}}
	s := &memSaver{}
	c := newController(g, s, &alerts{})

	require.NoError(t, c.OpenMenu("alpha"))
	_, err := c.PickFormat(context.Background(), report.FormatExcel)
	require.NoError(t, err)

	require.NoError(t, c.OpenMenu("beta"))
	_, err = c.PickFormat(context.Background(), report.FormatCSV)
	require.NoError(t, err)

	csv := string(s.saved["transaction_beta.csv"])
	assert.Contains(t, csv, "B1")
	assert.NotContains(t, csv, "A1")
	assert.NotContains(t, csv, "alpha")
	assert.Equal(t, 2, strings.Count(csv, "\n")+1)

	f, err := excelize.OpenReader(bytes.NewReader(s.saved["transaction_alpha.xlsx"]))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows[1:] {
		assert.True(t, strings.HasPrefix(r[0], "A"))
		assert.NotContains(t, r[2], "beta")
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "menu_open", MenuOpen.String())
	assert.Equal(t, "fetching", Fetching.String())
}
