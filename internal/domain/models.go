// Package domain contains the core ledger and valuation types shared across folio modules.
// The package has no infrastructure dependencies.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportingCurrency is the currency every summary row is normalized to.
const ReportingCurrency = "USD"

// AssetType distinguishes quote sources for a ticker.
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeCrypto AssetType = "crypto"
)

// Valid reports whether the asset type is one of the supported values.
func (a AssetType) Valid() bool {
	return a == AssetTypeStock || a == AssetTypeCrypto
}

// TradeType is the side of a trade.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// Valid reports whether the trade type is buy or sell.
func (t TradeType) Valid() bool {
	return t == TradeTypeBuy || t == TradeTypeSell
}

// Trade is an immutable buy/sell event. Edits and deletes replace the trade list;
// nothing mutates a trade in place.
type Trade struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	AssetType AssetType       `json:"asset_type"`
	Type      TradeType       `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	TradeDate time.Time       `json:"trade_date"`
	AccountID string          `json:"account_id"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Account is a cash holding. Its balance is a point-in-time fact, never derived from trades.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	OwnerID   string          `json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Holding is the derived position for one ticker. It is recomputed on every
// aggregation run and never persisted.
type Holding struct {
	Ticker    string          `json:"ticker"`
	AssetType AssetType       `json:"asset_type"`
	Quantity  decimal.Decimal `json:"quantity"` // signed: buys minus sells
	// AverageCost is the weighted average cost of the units still in the lot pool,
	// denominated in CostCurrency.
	AverageCost  decimal.Decimal `json:"average_cost"`
	CostCurrency string          `json:"cost_currency"`
	// CurrentPrice is the latest quote in QuoteCurrency, nil when the lookup failed.
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	QuoteCurrency string           `json:"quote_currency"`
}

// PriceAvailable reports whether a quote was resolved for the holding.
func (h Holding) PriceAvailable() bool {
	return h.CurrentPrice != nil
}

// Value returns CurrentPrice * Quantity in QuoteCurrency. ok is false when no price is known.
func (h Holding) Value() (value decimal.Decimal, ok bool) {
	if h.CurrentPrice == nil {
		return decimal.Zero, false
	}
	return h.CurrentPrice.Mul(h.Quantity), true
}

// WithPrice returns a copy of the holding carrying the given quote.
func (h Holding) WithPrice(price decimal.Decimal, currency string) Holding {
	p := price
	h.CurrentPrice = &p
	h.QuoteCurrency = currency
	return h
}

// RowKind tells asset rows from cash rows in a summary.
type RowKind string

const (
	RowKindAsset RowKind = "asset"
	RowKindCash  RowKind = "cash"
)

// SummaryRow is one line of the valuation report.
type SummaryRow struct {
	Label             string          `json:"label"`
	Kind              RowKind         `json:"kind"`
	ValueUSD          decimal.Decimal `json:"value_usd"`
	PercentageOfTotal float64         `json:"percentage_of_total"`
	OriginalValue     decimal.Decimal `json:"original_value"`
	OriginalCurrency  string          `json:"original_currency"`
	// Incomplete marks an asset row whose price could not be resolved.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Concentration describes how the portfolio value is spread across rows.
type Concentration struct {
	// HHI is the Herfindahl-Hirschman index of row weights (0..1 for long-only portfolios).
	HHI           float64 `json:"hhi"`
	LargestWeight float64 `json:"largest_weight"`
}

// Summary is the full valuation report of one owner.
type Summary struct {
	Rows          []SummaryRow    `json:"rows"`
	TotalValueUSD decimal.Decimal `json:"total_value_usd"`
	Incomplete    bool            `json:"incomplete"`
	Warnings      []string        `json:"warnings,omitempty"`
	Concentration Concentration   `json:"concentration"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// PercentageSum adds up the row percentages.
func (s Summary) PercentageSum() float64 {
	var sum float64
	for _, r := range s.Rows {
		sum += r.PercentageOfTotal
	}
	return sum
}
