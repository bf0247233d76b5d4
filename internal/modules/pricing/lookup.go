// Package pricing resolves live quotes through a short-lived cache in front of
// the external quote providers.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTTL is how long a fetched quote is reused.
	DefaultTTL = 15 * time.Minute
	// DefaultFetchTimeout bounds a single provider call.
	DefaultFetchTimeout = 8 * time.Second
)

var (
	// ErrPriceUnavailable is wrapped by every failed lookup. Callers treat it as
	// "valuation incomplete" for the affected holding.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrUnsupportedAssetType is returned when no provider is registered for the asset type.
	ErrUnsupportedAssetType = errors.New("unsupported asset type")
)

// Store is an optional persistent second tier behind the in-memory cache.
type Store interface {
	GetFresh(key string) (price decimal.Decimal, fetchedAt time.Time, ok bool, err error)
	Put(key string, price decimal.Decimal, fetchedAt time.Time, ttl time.Duration) error
}

type cacheKey struct {
	assetType domain.AssetType
	ticker    string
}

func (k cacheKey) String() string {
	return string(k.assetType) + ":" + k.ticker
}

type cachedQuote struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Lookup caches quotes per (asset type, ticker). It is safe for concurrent use.
// Concurrent misses for the same key are not deduplicated; each may call the provider.
type Lookup struct {
	providers    map[domain.AssetType]domain.PriceProvider
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	store        Store
	log          zerolog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]cachedQuote
}

// Option configures a Lookup.
type Option func(*Lookup)

// WithTTL sets the cache window.
func WithTTL(ttl time.Duration) Option {
	return func(l *Lookup) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds each provider call. A timeout counts as unavailable.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(l *Lookup) {
		if timeout > 0 {
			l.fetchTimeout = timeout
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Lookup) {
		if now != nil {
			l.now = now
		}
	}
}

// WithStore adds a persistent cache tier.
func WithStore(store Store) Option {
	return func(l *Lookup) { l.store = store }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Lookup) { l.log = log.With().Str("service", "price_lookup").Logger() }
}

// NewLookup creates a lookup over the given providers, keyed by asset type.
func NewLookup(providers map[domain.AssetType]domain.PriceProvider, opts ...Option) *Lookup {
	l := &Lookup{
		providers:    make(map[domain.AssetType]domain.PriceProvider, len(providers)),
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          zerolog.Nop(),
		cache:        make(map[cacheKey]cachedQuote),
	}
	for assetType, p := range providers {
		if p != nil {
			l.providers[assetType] = p
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TTL returns the cache window.
func (l *Lookup) TTL() time.Duration { return l.ttl }

// GetPrice returns the quote for ticker, reusing a cached value younger than the TTL.
// On a miss it calls the provider once; failures return an error wrapping ErrPriceUnavailable
// and leave the cache untouched.
func (l *Lookup) GetPrice(ctx context.Context, ticker string, assetType domain.AssetType) (decimal.Decimal, error) {
	key := cacheKey{assetType: assetType, ticker: domain.NormalizeTicker(ticker)}
	if key.ticker == "" {
		return decimal.Zero, fmt.Errorf("%w: empty ticker", ErrPriceUnavailable)
	}

	provider, ok := l.providers[assetType]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %w %q", ErrPriceUnavailable, ErrUnsupportedAssetType, assetType)
	}

	now := l.now()
	if price, ok := l.fromMemory(key, now); ok {
		l.log.Debug().Str("key", key.String()).Msg("Price cache hit")
		return price, nil
	}
	if price, ok := l.fromStore(key, now); ok {
		return price, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	price, err := provider.GetPrice(fetchCtx, key.ticker)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key.String()).Msg("Price fetch failed")
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, key, err)
	}
	if !price.IsPositive() {
		l.log.Warn().Str("key", key.String()).Str("price", price.String()).Msg("Provider returned non-positive price")
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", ErrPriceUnavailable, key, price)
	}

	fetchedAt := l.now()
	l.mu.Lock()
	l.cache[key] = cachedQuote{price: price, fetchedAt: fetchedAt}
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Put(key.String(), price, fetchedAt, l.ttl); err != nil {
			l.log.Warn().Err(err).Str("key", key.String()).Msg("Failed to persist price")
		}
	}

	l.log.Info().Str("key", key.String()).Str("price", price.String()).Msg("Fetched price")
	return price, nil
}

func (l *Lookup) fromMemory(key cacheKey, now time.Time) (decimal.Decimal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.cache[key]
	if !ok || now.Sub(c.fetchedAt) >= l.ttl {
		return decimal.Zero, false
	}
	return c.price, true
}

func (l *Lookup) fromStore(key cacheKey, now time.Time) (decimal.Decimal, bool) {
	if l.store == nil {
		return decimal.Zero, false
	}
	price, fetchedAt, ok, err := l.store.GetFresh(key.String())
	if err != nil {
		l.log.Warn().Err(err).Str("key", key.String()).Msg("Price store read failed")
		return decimal.Zero, false
	}
	if !ok || now.Sub(fetchedAt) >= l.ttl || !price.IsPositive() {
		return decimal.Zero, false
	}

	l.mu.Lock()
	l.cache[key] = cachedQuote{price: price, fetchedAt: fetchedAt}
	l.mu.Unlock()

	l.log.Debug().Str("key", key.String()).Msg("Price store hit")
	return price, true
}

// Invalidate drops the cached quote for ticker.
func (l *Lookup) Invalidate(ticker string, assetType domain.AssetType) {
	l.mu.Lock()
	delete(l.cache, cacheKey{assetType: assetType, ticker: domain.NormalizeTicker(ticker)})
	l.mu.Unlock()
}

// Len returns the number of quotes held in memory, fresh or not.
func (l *Lookup) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}
