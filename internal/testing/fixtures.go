package testing

import (
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// FixtureOwner owns every fixture account.
const FixtureOwner = "owner-1"

// NewAccountFixtures returns a USD brokerage account and a TWD savings account.
func NewAccountFixtures() []domain.Account {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Account{
		{
			ID:        "acc-usd",
			Name:      "Brokerage",
			Currency:  "USD",
			Balance:   decimal.NewFromInt(1000),
			OwnerID:   FixtureOwner,
			CreatedAt: created,
			UpdatedAt: created,
		},
		{
			ID:        "acc-twd",
			Name:      "Savings",
			Currency:  "TWD",
			Balance:   decimal.NewFromInt(31000),
			OwnerID:   FixtureOwner,
			CreatedAt: created,
			UpdatedAt: created,
		},
	}
}

// NewTradeFixtures returns trades against the fixture brokerage account:
// AAPL ends at 15 shares with an average cost of 150, BTC at 0.5 with 40000.
func NewTradeFixtures() []domain.Trade {
	day := func(d int) time.Time { return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC) }
	return []domain.Trade{
		NewTrade("AAPL", domain.AssetTypeStock, domain.TradeTypeBuy, 10, 100, day(1)),
		NewTrade("AAPL", domain.AssetTypeStock, domain.TradeTypeBuy, 10, 200, day(2)),
		NewTrade("AAPL", domain.AssetTypeStock, domain.TradeTypeSell, 5, 250, day(3)),
		NewTrade("BTC", domain.AssetTypeCrypto, domain.TradeTypeBuy, 0.5, 40000, day(4)),
	}
}

// NewTrade builds a USD trade against the fixture brokerage account.
func NewTrade(ticker string, assetType domain.AssetType, side domain.TradeType, qty, price float64, date time.Time) domain.Trade {
	return domain.Trade{
		Ticker:    ticker,
		AssetType: assetType,
		Type:      side,
		Quantity:  decimal.NewFromFloat(qty),
		Price:     decimal.NewFromFloat(price),
		Currency:  "USD",
		TradeDate: date,
		AccountID: "acc-usd",
	}
}
