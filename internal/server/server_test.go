package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	rates, err := portfolio.ParseRateTable("USD:1,TWD:0.031")
	require.NoError(t, err)
	cfg := &config.Config{
		DataDir:               t.TempDir(),
		Port:                  8080,
		DevMode:               true,
		PriceCacheTTL:         15 * time.Minute,
		PriceFetchTimeout:     time.Second,
		PriceFetchConcurrency: 2,
		StreamInterval:        30 * time.Second,
		Currency:              config.CurrencyConfig{Rates: rates},
		CacheCleanupSchedule:  "0 30 3 * * *",
		MaintenanceSchedule:   "0 0 2 * * *",
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	sched := scheduler.New(zerolog.Nop())
	require.NoError(t, di.ScheduleJobs(sched, jobs, cfg))

	s := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container, Jobs: jobs, Scheduler: sched})
	s.systemHandlers.stats = func() (float64, float64) { return 12.5, 40 }
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "folio", body["service"])
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 12.5, body.CPUPercent)
	assert.Equal(t, 40.0, body.MemoryPercent)
	assert.Equal(t, 0, body.CachedQuotes)
	assert.False(t, body.BackupEnabled)
	require.Len(t, body.Databases, 2)
	assert.Equal(t, "ledger", body.Databases[0].Name)
	require.Len(t, body.Jobs, 2)
	assert.Equal(t, "client_data_cleanup", body.Jobs[0].Name)
}

func TestBackupDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/system/backup", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}

func TestRunJob(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/system/jobs/client_data_cleanup", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/system/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerToSummary(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/accounts", `{"name":"Savings","currency":"TWD","balance":"31000","owner_id":"owner-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/portfolio/summary?owner=owner-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		TotalValueUSD string `json:"total_value_usd"`
		Rows          []struct {
			Label             string  `json:"label"`
			PercentageOfTotal float64 `json:"percentage_of_total"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "961", summary.TotalValueUSD)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "Savings", summary.Rows[0].Label)
	assert.InDelta(t, 100.0, summary.Rows[0].PercentageOfTotal, 1e-9)

	rec = do(t, s, http.MethodGet, "/api/currency/rates", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type MockBackupRunner struct {
	mock.Mock
}

func (m *MockBackupRunner) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockBackupRunner) CreateAndUpload(ctx context.Context) (*reliability.BackupResult, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*reliability.BackupResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHandleBackup(t *testing.T) {
	testCases := []struct {
		name   string
		result *reliability.BackupResult
		err    error
		status int
	}{
		{"success", &reliability.BackupResult{Key: "folio/x.db.gz", SizeBytes: 10}, nil, http.StatusOK},
		{"upload failure", nil, errors.New("403"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &MockBackupRunner{}
			runner.On("Enabled").Return(true)
			runner.On("CreateAndUpload", mock.Anything).Return(tc.result, tc.err)

			h := NewSystemHandlers(zerolog.Nop(), nil, nil, runner, nil, nil)
			rec := httptest.NewRecorder()
			h.HandleBackup(rec, httptest.NewRequest(http.MethodPost, "/api/system/backup", nil))

			assert.Equal(t, tc.status, rec.Code)
			runner.AssertExpectations(t)
		})
	}
}
