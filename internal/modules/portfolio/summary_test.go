package portfolio

import (
	"math/rand"
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricedHolding(ticker string, qty, price float64) domain.Holding {
	return domain.Holding{
		Ticker:    ticker,
		AssetType: domain.AssetTypeStock,
		Quantity:  d(qty),
	}.WithPrice(d(price), "USD")
}

func account(name, ccy string, balance float64) domain.Account {
	return domain.Account{ID: name, Name: name, Currency: ccy, Balance: d(balance), OwnerID: "u1"}
}

func TestComputeSummary_EndToEnd(t *testing.T) {
	holdings := []domain.Holding{pricedHolding("AAPL", 10, 100)}
	accounts := []domain.Account{account("Cash", "USD", 1000)}
	rates := RateTable{"USD": d(1)}

	s := ComputeSummary(holdings, accounts, rates)

	require.Len(t, s.Rows, 2)
	assert.True(t, s.TotalValueUSD.Equal(d(2000)), "total = %s", s.TotalValueUSD)

	assert.Equal(t, "AAPL", s.Rows[0].Label)
	assert.Equal(t, domain.RowKindAsset, s.Rows[0].Kind)
	assert.InDelta(t, 50.0, s.Rows[0].PercentageOfTotal, 1e-9)
	assert.True(t, s.Rows[0].OriginalValue.Equal(d(1000)))

	assert.Equal(t, "Cash", s.Rows[1].Label)
	assert.Equal(t, domain.RowKindCash, s.Rows[1].Kind)
	assert.InDelta(t, 50.0, s.Rows[1].PercentageOfTotal, 1e-9)

	assert.False(t, s.Incomplete)
	assert.Empty(t, s.Warnings)
	assert.InDelta(t, 0.5, s.Concentration.HHI, 1e-9)
	assert.InDelta(t, 0.5, s.Concentration.LargestWeight, 1e-9)
}

func TestComputeSummary_ConvertsCurrencies(t *testing.T) {
	accounts := []domain.Account{
		account("TWD savings", "TWD", 31000),
		account("USD checking", "USD", 1000),
	}
	rates := RateTable{"USD": d(1), "TWD": decimal.RequireFromString("0.03225806451612903")}

	s := ComputeSummary(nil, accounts, rates)

	require.Len(t, s.Rows, 2)
	assert.InDelta(t, 1000.0, s.Rows[0].ValueUSD.InexactFloat64(), 1e-6)
	assert.True(t, s.Rows[0].OriginalValue.Equal(d(31000)))
	assert.Equal(t, "TWD", s.Rows[0].OriginalCurrency)
	assert.InDelta(t, 50.0, s.Rows[0].PercentageOfTotal, 1e-6)
	assert.InDelta(t, 100.0, s.PercentageSum(), 1e-9)
}

func TestComputeSummary_ZeroTotal(t *testing.T) {
	holdings := []domain.Holding{
		pricedHolding("AAPL", 0, 180),
		{Ticker: "NOQUOTE", Quantity: d(3)},
	}
	accounts := []domain.Account{account("Empty", "USD", 0)}

	s := ComputeSummary(holdings, accounts, RateTable{"USD": d(1)})

	require.Len(t, s.Rows, 3, "zero-valued rows are not filtered")
	assert.True(t, s.TotalValueUSD.IsZero())
	for _, r := range s.Rows {
		assert.Equal(t, 0.0, r.PercentageOfTotal, r.Label)
	}
	assert.Equal(t, domain.Concentration{}, s.Concentration)
}

func TestComputeSummary_UnavailablePriceIsIncomplete(t *testing.T) {
	holdings := []domain.Holding{
		{Ticker: "BTC", AssetType: domain.AssetTypeCrypto, Quantity: d(1)},
		pricedHolding("AAPL", 10, 100),
	}

	s := ComputeSummary(holdings, nil, RateTable{})

	require.Len(t, s.Rows, 2)
	assert.True(t, s.Incomplete)
	assert.True(t, s.Rows[0].Incomplete)
	assert.True(t, s.Rows[0].ValueUSD.IsZero())
	assert.InDelta(t, 0.0, s.Rows[0].PercentageOfTotal, 1e-12)
	assert.InDelta(t, 100.0, s.Rows[1].PercentageOfTotal, 1e-9)
}

func TestComputeSummary_MissingRateWarnsOnce(t *testing.T) {
	accounts := []domain.Account{
		account("JPY wallet", "JPY", 100),
		account("JPY savings", "JPY", 300),
	}

	s := ComputeSummary(nil, accounts, RateTable{"USD": d(1)})

	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "JPY")
	assert.True(t, s.TotalValueUSD.Equal(d(400)), "unknown currency is valued 1:1")
}

func TestComputeSummary_DoesNotMutateInputs(t *testing.T) {
	holdings := []domain.Holding{pricedHolding("AAPL", 10, 100)}
	accounts := []domain.Account{account("Cash", "usd", 1000)}
	hCopy := append([]domain.Holding(nil), holdings...)
	aCopy := append([]domain.Account(nil), accounts...)

	ComputeSummary(holdings, accounts, RateTable{"USD": d(1)})

	assert.Equal(t, hCopy, holdings)
	assert.Equal(t, aCopy, accounts)
}

func TestComputeSummary_PercentagesSumToHundred(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rates := RateTable{"USD": d(1), "TWD": d(0.031), "EUR": d(1.08)}
	currencies := []string{"USD", "TWD", "EUR"}

	for run := 0; run < 50; run++ {
		var holdings []domain.Holding
		for i := 0; i < 1+rng.Intn(8); i++ {
			holdings = append(holdings, pricedHolding("T", float64(rng.Intn(1000)), rng.Float64()*1000))
		}
		var accounts []domain.Account
		for i := 0; i < rng.Intn(4); i++ {
			accounts = append(accounts, account("A", currencies[rng.Intn(3)], rng.Float64()*100000))
		}

		s := ComputeSummary(holdings, accounts, rates)
		if s.TotalValueUSD.IsPositive() {
			assert.InDelta(t, 100.0, s.PercentageSum(), 1e-6, "run %d", run)
		} else {
			assert.Equal(t, 0.0, s.PercentageSum(), "run %d", run)
		}
	}
}

func TestRateTable(t *testing.T) {
	table := RateTable{"TWD": d(0.031)}

	r, ok := table.Rate("usd")
	assert.True(t, ok, "USD is implicit")
	assert.True(t, r.Equal(d(1)))

	r, ok = table.Rate("twd")
	assert.True(t, ok)
	assert.True(t, r.Equal(d(0.031)))

	r, ok = table.Rate("GBP")
	assert.False(t, ok)
	assert.True(t, r.Equal(d(1)))

	clone := table.Clone()
	clone["TWD"] = d(1)
	assert.True(t, table["TWD"].Equal(d(0.031)))
}

func TestParseRateTable(t *testing.T) {
	table, err := ParseRateTable("TWD:0.031, eur:1.08,")
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR", "TWD", "USD"}, table.Currencies())
	assert.True(t, table["EUR"].Equal(d(1.08)))
	assert.Equal(t, "EUR:1.08,TWD:0.031,USD:1", table.String())

	_, err = ParseRateTable("TWD=0.031")
	assert.ErrorContains(t, err, "CODE:RATE")
	_, err = ParseRateTable("TWD:-1")
	assert.ErrorContains(t, err, "must be > 0")
	_, err = ParseRateTable("ABCD:1")
	assert.ErrorContains(t, err, "unknown currency")
	_, err = ParseRateTable("TWD:abc")
	assert.Error(t, err)
}
