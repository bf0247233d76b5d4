package exchangerate

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/database"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheRepo(t *testing.T, now func() time.Time) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(db, database.NameClientData))
	return clientdata.NewRepository(db).WithClock(now)
}

func TestLatestUSD(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v4/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"USD":1,"TWD":32.5,"EUR":0.92}}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newCacheRepo(t, func() time.Time { return now })
	client := NewClient(repo, zerolog.Nop()).WithBaseURL(srv.URL + "/v4/latest")

	rates, err := client.LatestUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32.5, rates["TWD"])

	_, err = client.LatestUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second call is served from cache")
}

func TestLatestUSD_StaleFallback(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"TWD":32.5}}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newCacheRepo(t, func() time.Time { return now })
	client := NewClient(repo, zerolog.Nop()).WithBaseURL(srv.URL)

	_, err := client.LatestUSD(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	now = now.Add(2 * clientdata.TTLExchangeRate)

	rates, err := client.LatestUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32.5, rates["TWD"])
}

func TestLatestUSD_NoCache(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, ``, "status 500"},
		{"bad json", http.StatusOK, `{`, "failed to parse"},
		{"empty rates", http.StatusOK, `{"base":"USD","rates":{}}`, "no rates"},
		{"wrong base", http.StatusOK, `{"base":"EUR","rates":{"USD":1.08}}`, "unexpected base"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewClient(nil, zerolog.Nop()).WithBaseURL(srv.URL)
			_, err := client.LatestUSD(context.Background())
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
