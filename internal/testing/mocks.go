package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// MockPriceProvider is a domain.PriceProvider with canned quotes and call counting.
type MockPriceProvider struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	delay  time.Duration
	calls  map[string]int
}

// NewMockPriceProvider creates a provider with no quotes.
func NewMockPriceProvider() *MockPriceProvider {
	return &MockPriceProvider{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetPrice sets the quote returned for ticker.
func (m *MockPriceProvider) SetPrice(ticker string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[ticker] = decimal.NewFromFloat(price)
	delete(m.errs, ticker)
}

// SetError makes every call for ticker fail with err.
func (m *MockPriceProvider) SetError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[ticker] = err
}

// SetDelay makes every call block for d or until the context is done.
func (m *MockPriceProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times ticker was requested.
func (m *MockPriceProvider) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

// TotalCalls returns the number of requests across all tickers.
func (m *MockPriceProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// GetPrice implements domain.PriceProvider.
func (m *MockPriceProvider) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	m.mu.Lock()
	m.calls[ticker]++
	delay := m.delay
	price, hasPrice := m.prices[ticker]
	err := m.errs[ticker]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !hasPrice {
		return decimal.Zero, fmt.Errorf("no quote for %s", ticker)
	}
	return price, nil
}

var _ domain.PriceProvider = (*MockPriceProvider)(nil)

// FakeClock is a settable time source for TTL tests.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFakeClock creates a clock frozen at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
