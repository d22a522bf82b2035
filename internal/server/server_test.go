package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"numtrack/internal/api"
	"numtrack/internal/record"
	"numtrack/internal/storage"
	"numtrack/internal/tracker"
)

type fixture struct {
	engine http.Handler
	repo   *storage.Store
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "numbers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	reg := prometheus.NewRegistry()
	engine := Setup(repo, zap.NewNop(), Options{AllowOrigins: []string{"http://localhost:5173"}, Registry: reg})
	return fixture{engine: engine, repo: repo, reg: reg}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/numbers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPutThenList(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPut, "/api/numbers/33", `{"status":"resettle","name":"Omar","resettleSubStatus":"done","resettleDoneDate":"2024-03-01T00:00:00.000Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/numbers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []record.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 33, entries[0].Number)
	assert.Equal(t, "Omar", entries[0].Record.Name)
	assert.Equal(t, record.SubDone, entries[0].Record.Resettle.Status)

	w = f.do(t, http.MethodGet, "/api/numbers/33", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":33`)
}

func TestPutValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/numbers/0", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/numbers/abc", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/numbers/5", `{"status":"maybe"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, codeBadStatus, body.Code)

	w = f.do(t, http.MethodPut, "/api/numbers/5", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkUpdateRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPut, "/api/numbers/bulk-update", `{"numbers":[1,2,3],"status":"dead"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	entries, err := f.repo.FetchNumbers(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, record.StatusDead, entries[2].Record.Status)

	w = f.do(t, http.MethodPut, "/api/numbers/bulk-update", `{"numbers":[1,5000],"status":"dead"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/numbers/bulk-update", `{"numbers":[1],"status":"gone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/numbers/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPut, "/api/numbers/bulk-update", `{"numbers":[7,8],"status":"done"}`)
	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `numtrack_writes_total{kind="bulk",result="ok"} 1`)
	assert.Contains(t, w.Body.String(), `numtrack_bulk_numbers_total 2`)
}

// The client store, HTTP client and server wired together.
func TestTrackerAgainstServer(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	client := api.New(srv.URL+"/api", 2*time.Second)
	cache, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	s := tracker.New(client, cache)
	require.Equal(t, tracker.SourceBackend, s.Load(context.Background()))

	require.NoError(t, s.SetStatus(12, record.StatusDuplicates, nil))
	s.Wait()
	require.NoError(t, s.SetSubStatus(12, record.SubDone, record.StatusDuplicates, nil))
	s.Wait()
	require.NoError(t, s.SetName(12, "twelve"))
	s.Wait()
	_, err = s.BulkApply("20-22", record.StatusPending)
	require.NoError(t, err)
	s.Wait()

	reloaded := tracker.New(client, nil)
	require.Equal(t, tracker.SourceBackend, reloaded.Load(context.Background()))
	got := reloaded.Get(12)
	assert.Equal(t, record.StatusDuplicates, got.Status)
	assert.Equal(t, "twelve", got.Name)
	assert.Equal(t, record.SubDone, got.Duplicates.Status)
	assert.NotNil(t, got.Duplicates.DoneDate)
	assert.Equal(t, record.StatusPending, reloaded.Get(21).Status)

	// with the backend gone the snapshot takes over
	srv.Close()
	offline := tracker.New(client, cache)
	require.Equal(t, tracker.SourceCache, offline.Load(context.Background()))
	assert.Equal(t, "twelve", offline.Get(12).Name)
}
