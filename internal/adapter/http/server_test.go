package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/trip-enrichment-etl/internal/adapter/http"
	"github.com/couchcryptid/trip-enrichment-etl/internal/report"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSummaries struct {
	summary report.Summary
	ok      bool
}

func (m *mockSummaries) LastSummary() (report.Summary, bool) { return m.summary, m.ok }

func newTestServer(readyErr error, summaries *mockSummaries) *httpadapter.Server {
	if summaries == nil {
		summaries = &mockSummaries{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, summaries, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(errors.New("store unreachable"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "store unreachable", body["error"])
}

func TestChecksJoinsFailures(t *testing.T) {
	checks := httpadapter.Checks{
		&mockReadiness{},
		&mockReadiness{err: errors.New("store unreachable")},
		&mockReadiness{err: errors.New("no trips read")},
	}

	err := checks.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
	assert.Contains(t, err.Error(), "no trips read")

	assert.NoError(t, httpadapter.Checks{&mockReadiness{}}.CheckReadiness(context.Background()))
}

func TestReportReturns404BeforeFirstRun(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportReturnsLastSummary(t *testing.T) {
	summaries := &mockSummaries{
		ok: true,
		summary: report.Summary{
			Trips:       2,
			RidesByHour: []report.HourCount{{Hour: 8, Count: 2}},
		},
	}
	rec := get(t, newTestServer(nil, summaries), "/report")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body report.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Trips)
	assert.Equal(t, []report.HourCount{{Hour: 8, Count: 2}}, body.RidesByHour)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
