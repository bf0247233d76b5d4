package clientdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceEntry is the cached form of a quote. Price is kept as a decimal string.
type PriceEntry struct {
	Price     string `msgpack:"price"`
	FetchedAt int64  `msgpack:"fetched_at"`
}

// PriceStore persists quotes in current_prices so they survive a restart.
type PriceStore struct {
	repo *Repository
}

// NewPriceStore creates a price store backed by repo.
func NewPriceStore(repo *Repository) *PriceStore {
	return &PriceStore{repo: repo}
}

// GetFresh returns the stored quote for key if its row has not expired.
func (s *PriceStore) GetFresh(key string) (decimal.Decimal, time.Time, bool, error) {
	var entry PriceEntry
	ok, err := s.repo.GetIfFresh(TableCurrentPrices, key, &entry)
	if err != nil || !ok {
		return decimal.Zero, time.Time{}, false, err
	}

	price, err := decimal.NewFromString(entry.Price)
	if err != nil {
		return decimal.Zero, time.Time{}, false, fmt.Errorf("corrupt cached price for %s: %w", key, err)
	}
	return price, time.Unix(entry.FetchedAt, 0), true, nil
}

// Put stores a quote fetched at fetchedAt that stays fresh for ttl.
func (s *PriceStore) Put(key string, price decimal.Decimal, fetchedAt time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLCurrentPrice
	}
	entry := PriceEntry{Price: price.String(), FetchedAt: fetchedAt.Unix()}
	remaining := fetchedAt.Add(ttl).Sub(s.repo.now())
	if remaining <= 0 {
		return nil
	}
	return s.repo.Store(TableCurrentPrices, key, entry, remaining)
}
