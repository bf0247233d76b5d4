package portfolio

import (
	"fmt"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

var hundred = decimal.NewFromInt(100)

// ComputeSummary values every holding and cash account in USD and assigns each
// row its share of the total.
//
// Rows keep input order: holdings first, then accounts. A holding without a
// price contributes a zero-valued, Incomplete row. Percentages sum to 100 when
// the total is positive and are all 0 otherwise. Currencies missing from rates
// are valued 1:1 and reported once each in Warnings.
//
// The function performs no I/O and does not modify its inputs.
func ComputeSummary(holdings []domain.Holding, accounts []domain.Account, rates RateTable) domain.Summary {
	rows := make([]domain.SummaryRow, 0, len(holdings)+len(accounts))
	var warnings []string
	warned := make(map[string]bool)
	incomplete := false

	convert := func(amount decimal.Decimal, code string) decimal.Decimal {
		usd, ok := rates.Convert(amount, code)
		if !ok && !warned[code] {
			warned[code] = true
			warnings = append(warnings, missingRateWarning(code))
		}
		return usd
	}

	for _, h := range holdings {
		row := domain.SummaryRow{
			Label:            h.Ticker,
			Kind:             domain.RowKindAsset,
			OriginalCurrency: quoteCurrency(h),
		}
		if value, ok := h.Value(); ok {
			row.OriginalValue = value
			row.ValueUSD = convert(value, row.OriginalCurrency)
		} else {
			row.Incomplete = true
			incomplete = true
		}
		rows = append(rows, row)
	}

	for _, a := range accounts {
		code := domain.NormalizeCurrency(a.Currency)
		rows = append(rows, domain.SummaryRow{
			Label:            a.Name,
			Kind:             domain.RowKindCash,
			OriginalValue:    a.Balance,
			OriginalCurrency: code,
			ValueUSD:         convert(a.Balance, code),
		})
	}

	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.ValueUSD)
	}

	if total.IsPositive() {
		for i := range rows {
			rows[i].PercentageOfTotal = rows[i].ValueUSD.Div(total).Mul(hundred).InexactFloat64()
		}
	}

	return domain.Summary{
		Rows:          rows,
		TotalValueUSD: total,
		Incomplete:    incomplete,
		Warnings:      warnings,
		Concentration: concentration(rows, total),
	}
}

// concentration computes the HHI and largest weight of the row values.
func concentration(rows []domain.SummaryRow, total decimal.Decimal) domain.Concentration {
	if !total.IsPositive() || len(rows) == 0 {
		return domain.Concentration{}
	}
	weights := make([]float64, len(rows))
	for i, r := range rows {
		weights[i] = r.PercentageOfTotal / 100
	}
	return domain.Concentration{
		HHI:           floats.Dot(weights, weights),
		LargestWeight: floats.Max(weights),
	}
}

func quoteCurrency(h domain.Holding) string {
	if h.QuoteCurrency == "" {
		return domain.ReportingCurrency
	}
	return domain.NormalizeCurrency(h.QuoteCurrency)
}

func missingRateWarning(code string) string {
	if code == "" {
		code = "(empty)"
	}
	return fmt.Sprintf("no exchange rate configured for %s; valued 1:1 with %s", code, domain.ReportingCurrency)
}
