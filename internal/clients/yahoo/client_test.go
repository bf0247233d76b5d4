package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(zerolog.Nop()).WithBaseURL(srv.URL)
}

func TestGetPrice_RegularMarketPrice(t *testing.T) {
	client := serve(t, http.StatusOK, `{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":189.84}}],"error":null}}`)

	price, err := client.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "189.84", price.String())
}

func TestGetPrice_FallsBackToLastClose(t *testing.T) {
	client := serve(t, http.StatusOK, `{"chart":{"result":[{"meta":{"regularMarketPrice":0},
		"timestamp":[1,2,3],"indicators":{"quote":[{"close":[187.1,188.2,null]}]}}],"error":null}}`)

	price, err := client.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "188.2", price.String())
}

func TestGetPrice_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusNotFound, `{}`, "yahoo http 404"},
		{"chart error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, "No data found"},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, "no result"},
		{"no price", http.StatusOK, `{"chart":{"result":[{"meta":{}}],"error":null}}`, "no result"},
		{"bad json", http.StatusOK, `not json`, "failed to parse"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := serve(t, tc.status, tc.body)
			_, err := client.GetPrice(context.Background(), "AAPL")
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestGetPrice_RejectsNonUSDListing(t *testing.T) {
	client := serve(t, http.StatusOK, `{"chart":{"result":[{"meta":{"currency":"TWD","regularMarketPrice":1000}}],"error":null}}`)

	_, err := client.GetPrice(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotUSD)
	assert.ErrorIs(t, err, ErrNoResult)
	assert.ErrorContains(t, err, "TWD")
}

func TestGetPrice_AcceptsLowercaseUSD(t *testing.T) {
	client := serve(t, http.StatusOK, `{"chart":{"result":[{"meta":{"currency":"usd","regularMarketPrice":12.5}}],"error":null}}`)

	price, err := client.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "12.5", price.String())
}
