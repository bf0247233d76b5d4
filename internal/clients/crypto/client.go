// Package crypto provides crypto quotes from a configurable JSON ticker endpoint.
package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Defaults target Binance's public ticker endpoint.
const (
	DefaultURLTemplate = "https://api.binance.com/api/v3/ticker/price?symbol=%s"
	DefaultPricePath   = "$.price"
	DefaultQuoteSuffix = "USDT"
)

// Config describes how to reach the ticker endpoint.
type Config struct {
	// URLTemplate contains one %s replaced by the ticker plus QuoteSuffix.
	URLTemplate string
	// PricePath is a JSONPath expression selecting the price in the response.
	PricePath string
	// QuoteSuffix is appended to the ticker to form the market symbol ("BTC" -> "BTCUSDT").
	QuoteSuffix string
}

// Client fetches crypto quotes.
type Client struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a crypto ticker client. Empty config fields take the defaults.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.PricePath == "" {
		cfg.PricePath = DefaultPricePath
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("client", "crypto").Logger(),
	}
}

// Symbol returns the market symbol requested for ticker.
func (c *Client) Symbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if c.cfg.QuoteSuffix == "" || strings.HasSuffix(ticker, c.cfg.QuoteSuffix) {
		return ticker
	}
	return ticker + c.cfg.QuoteSuffix
}

// GetPrice returns the last price of ticker quoted in USD (or the configured stablecoin).
func (c *Client) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	symbol := c.Symbol(ticker)
	addr := fmt.Sprintf(c.cfg.URLTemplate, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("crypto request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("crypto http %d for %s", resp.StatusCode, symbol)
	}

	var jobj any
	if err := json.NewDecoder(resp.Body).Decode(&jobj); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse crypto response: %w", err)
	}

	jval, err := jsonpath.Get(c.cfg.PricePath, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("error reading %q from %s response: %w", c.cfg.PricePath, symbol, err)
	}
	// jsonpath returns a list for wildcard/slice paths; keep the first match
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return decimal.Zero, fmt.Errorf("no value at %q for %s", c.cfg.PricePath, symbol)
		}
		jval = jlist[0]
	}

	price, err := toDecimal(jval)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price of %s: %w", symbol, err)
	}
	c.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Fetched crypto quote")
	return price, nil
}

// toDecimal accepts the number or numeric string exchanges use for prices.
func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", x)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
