package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceProvider fetches a single live quote, denominated in USD, from an external source.
// Implementations make exactly one attempt per call.
type PriceProvider interface {
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// PriceProviderFunc adapts a function to PriceProvider.
type PriceProviderFunc func(ctx context.Context, ticker string) (decimal.Decimal, error)

// GetPrice calls f.
func (f PriceProviderFunc) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return f(ctx, ticker)
}

// PriceLookup resolves the current price of a ticker, typically through a cache.
type PriceLookup interface {
	GetPrice(ctx context.Context, ticker string, assetType AssetType) (decimal.Decimal, error)
}

// LedgerReader is the read side of trade/account persistence needed for valuation.
type LedgerReader interface {
	ListTradesByOwner(ctx context.Context, ownerID string) ([]Trade, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]Account, error)
}
