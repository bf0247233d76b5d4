package portfolio

import (
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// costPool tracks the lot pool of one ticker while trades are replayed.
type costPool struct {
	ticker       string
	assetType    domain.AssetType
	costCurrency string
	quantity     decimal.Decimal // signed running sum
	totalCost    decimal.Decimal // cost of the units still held, never negative
	totalQty     decimal.Decimal // units still held, never negative
}

func (p *costPool) buy(qty, price decimal.Decimal) {
	p.quantity = p.quantity.Add(qty)
	p.totalCost = p.totalCost.Add(price.Mul(qty))
	p.totalQty = p.totalQty.Add(qty)
}

// sell removes qty at the current weighted average. The sell price never
// touches the cost basis.
func (p *costPool) sell(qty decimal.Decimal) {
	p.quantity = p.quantity.Sub(qty)

	avg := p.averageCost()
	p.totalCost = clampZero(p.totalCost.Sub(avg.Mul(qty)))
	p.totalQty = clampZero(p.totalQty.Sub(qty))
	if p.totalQty.IsZero() {
		p.totalCost = decimal.Zero
	}
}

func (p *costPool) averageCost() decimal.Decimal {
	if !p.totalQty.IsPositive() {
		return decimal.Zero
	}
	return p.totalCost.Div(p.totalQty)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ComputeHoldings replays trades into one Holding per ticker.
//
// Trades are applied in slice order; chronological order is the natural input.
// Fully closed positions are kept with zero quantity. Over-selling drives the
// quantity negative while the cost pool is clamped at zero, so a ticker with
// only sells reports an average cost of 0. CurrentPrice is left nil: quotes
// are resolved separately and never derived from trade history.
//
// The function is pure and returns holdings sorted by ticker.
func ComputeHoldings(trades []domain.Trade) []domain.Holding {
	pools := make(map[string]*costPool)

	for _, t := range trades {
		ticker := domain.NormalizeTicker(t.Ticker)
		if ticker == "" {
			continue
		}
		p, ok := pools[ticker]
		if !ok {
			p = &costPool{
				ticker:       ticker,
				assetType:    t.AssetType,
				costCurrency: domain.NormalizeCurrency(t.Currency),
			}
			pools[ticker] = p
		}

		qty := t.Quantity.Abs()
		switch t.Type {
		case domain.TradeTypeBuy:
			p.buy(qty, t.Price)
		case domain.TradeTypeSell:
			p.sell(qty)
		}
	}

	holdings := make([]domain.Holding, 0, len(pools))
	for _, p := range pools {
		holdings = append(holdings, domain.Holding{
			Ticker:       p.ticker,
			AssetType:    p.assetType,
			Quantity:     p.quantity,
			AverageCost:  p.averageCost(),
			CostCurrency: p.costCurrency,
		})
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Ticker < holdings[j].Ticker
	})
	return holdings
}

// MixedCurrencyTickers returns the tickers whose trades are recorded in more
// than one currency. Their cost basis adds prices of different currencies.
func MixedCurrencyTickers(trades []domain.Trade) []string {
	seen := make(map[string]string)
	mixed := make(map[string]bool)
	for _, t := range trades {
		ticker := domain.NormalizeTicker(t.Ticker)
		ccy := domain.NormalizeCurrency(t.Currency)
		if first, ok := seen[ticker]; !ok {
			seen[ticker] = ccy
		} else if first != ccy {
			mixed[ticker] = true
		}
	}

	out := make([]string, 0, len(mixed))
	for ticker := range mixed {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}
