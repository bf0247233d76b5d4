// Package exchangerate fetches USD-based currency tables with a persistent cache.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.exchangerate-api.com/v4/latest"
	baseCurrency   = "USD"
)

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchangerate-api.com client.
// cacheRepo is optional; if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
	}
}

// WithBaseURL points the client at another endpoint.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// cachedRates is the structure stored in the cache
type cachedRates struct {
	Rates map[string]float64 `msgpack:"rates"`
}

// LatestUSD returns units of each currency per one USD.
// A fresh cached table is returned without a request. If the API fails, a
// stale cached table is returned when one exists.
func (c *Client) LatestUSD(ctx context.Context) (map[string]float64, error) {
	if c.cacheRepo != nil {
		var cached cachedRates
		ok, err := c.cacheRepo.GetIfFresh(clientdata.TableExchangeRate, baseCurrency, &cached)
		if err == nil && ok && len(cached.Rates) > 0 {
			c.log.Debug().Int("currencies", len(cached.Rates)).Msg("Cache hit")
			return cached.Rates, nil
		}
	}

	rates, err := c.fetch(ctx)
	if err != nil {
		if stale, ok := c.getStaleFromCache(); ok {
			c.log.Warn().Err(err).Msg("API failed, using stale cached rates")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableExchangeRate, baseCurrency, cachedRates{Rates: rates}, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache exchange rates")
		}
	}

	c.log.Info().Int("currencies", len(rates)).Msg("Fetched rates")
	return rates, nil
}

func (c *Client) fetch(ctx context.Context) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, baseCurrency)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("response contains no rates")
	}
	if result.Base != "" && result.Base != baseCurrency {
		return nil, fmt.Errorf("unexpected base currency %q", result.Base)
	}

	return result.Rates, nil
}

// getStaleFromCache returns the cached table even if expired.
func (c *Client) getStaleFromCache() (map[string]float64, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached cachedRates
	ok, err := c.cacheRepo.Get(clientdata.TableExchangeRate, baseCurrency, &cached)
	if err != nil || !ok || len(cached.Rates) == 0 {
		return nil, false
	}
	return cached.Rates, true
}
