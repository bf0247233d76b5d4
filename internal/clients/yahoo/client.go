// Package yahoo provides stock quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://query2.finance.yahoo.com/v8/finance/chart"

// ErrNoResult is returned when the chart response carries no usable price.
var ErrNoResult = errors.New("yahoo: no result")

// ErrNotUSD is returned for listings quoted in another currency. It wraps ErrNoResult.
var ErrNotUSD = fmt.Errorf("%w: quote is not in USD", ErrNoResult)

// Client fetches the latest traded price of a stock ticker.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       zerolog.Logger
}

// NewClient creates a Yahoo chart client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		userAgent: "folio/1.0",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// WithBaseURL points the client at another endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrice returns regularMarketPrice, falling back to the last non-zero close.
// Listings quoted in another currency fail with ErrNotUSD.
func (c *Client) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/%s?interval=1m&range=1d", c.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("yahoo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("yahoo http %d for %s", resp.StatusCode, ticker)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse yahoo response: %w", err)
	}
	if raw.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("yahoo: %s: %s", raw.Chart.Error.Code, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return decimal.Zero, ErrNoResult
	}

	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	if price <= 0 && len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				price = *closes[i]
				break
			}
		}
	}
	if price <= 0 {
		return decimal.Zero, ErrNoResult
	}

	if r.Meta.Currency != "" && !strings.EqualFold(r.Meta.Currency, "USD") {
		c.log.Warn().Str("ticker", ticker).Str("currency", r.Meta.Currency).Msg("Quote is not in USD")
		return decimal.Zero, fmt.Errorf("%w: %s is quoted in %s", ErrNotUSD, ticker, r.Meta.Currency)
	}

	return decimal.NewFromFloat(price), nil
}
