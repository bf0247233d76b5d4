package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrade() Trade {
	return Trade{
		ID:        "t1",
		Ticker:    "AAPL",
		AssetType: AssetTypeStock,
		Type:      TradeTypeBuy,
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
		Currency:  "USD",
		TradeDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AccountID: "acc-1",
	}
}

func TestHoldingValue(t *testing.T) {
	h := Holding{Ticker: "AAPL", Quantity: decimal.NewFromInt(10)}

	_, ok := h.Value()
	assert.False(t, ok)
	assert.False(t, h.PriceAvailable())

	priced := h.WithPrice(decimal.NewFromInt(100), "USD")
	v, ok := priced.Value()
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "USD", priced.QuoteCurrency)

	// WithPrice copies; the original stays unpriced.
	assert.Nil(t, h.CurrentPrice)
}

func TestSummaryPercentageSum(t *testing.T) {
	s := Summary{Rows: []SummaryRow{{PercentageOfTotal: 25}, {PercentageOfTotal: 75}}}
	assert.InDelta(t, 100.0, s.PercentageSum(), 1e-9)
}

func TestTradeValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Trade)
		errMsg string
	}{
		{"valid", func(*Trade) {}, ""},
		{"missing ticker", func(tr *Trade) { tr.Ticker = "" }, "ticker is required"},
		{"bad asset type", func(tr *Trade) { tr.AssetType = "bond" }, "unsupported asset_type"},
		{"bad side", func(tr *Trade) { tr.Type = "short" }, "unsupported type"},
		{"zero quantity", func(tr *Trade) { tr.Quantity = decimal.Zero }, "quantity must be > 0"},
		{"negative price", func(tr *Trade) { tr.Price = decimal.NewFromInt(-1) }, "price must be > 0"},
		{"unknown currency", func(tr *Trade) { tr.Currency = "XYZ" }, "unknown currency"},
		{"missing date", func(tr *Trade) { tr.TradeDate = time.Time{} }, "trade_date is required"},
		{"missing account", func(tr *Trade) { tr.AccountID = " " }, "account_id is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := validTrade()
			tc.mutate(&tr)
			err := tr.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTrade)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestTradeNormalize(t *testing.T) {
	tr := Trade{Ticker: " btc ", AssetType: "Crypto", Type: "BUY", Currency: "twd", Reason: "  dca "}.Normalize()

	assert.Equal(t, "BTC", tr.Ticker)
	assert.Equal(t, AssetTypeCrypto, tr.AssetType)
	assert.Equal(t, TradeTypeBuy, tr.Type)
	assert.Equal(t, "TWD", tr.Currency)
	assert.Equal(t, "dca", tr.Reason)
}

func TestAccountValidate(t *testing.T) {
	a := Account{Name: "Brokerage cash", Currency: "twd", OwnerID: "u1", Balance: decimal.NewFromInt(5000)}.Normalize()
	require.NoError(t, a.Validate())

	a.OwnerID = ""
	err := a.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAccount)

	a.OwnerID = "u1"
	a.Currency = "ZZZ"
	assert.ErrorContains(t, a.Validate(), "unknown currency")
}

func TestKnownCurrency(t *testing.T) {
	assert.True(t, KnownCurrency("USD"))
	assert.True(t, KnownCurrency("twd"))
	assert.False(t, KnownCurrency(""))
	assert.False(t, KnownCurrency("NOPE"))
}
