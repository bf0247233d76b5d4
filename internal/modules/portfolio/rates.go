package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// RateTable maps a currency code to its USD multiplier: usd = amount * rate.
// It is a flat, injectable table; no live FX feed is consulted during aggregation.
type RateTable map[string]decimal.Decimal

// Rate returns the multiplier for code. A currency without a configured rate
// is valued 1:1 with USD and ok is false so callers can surface the gap.
func (t RateTable) Rate(code string) (rate decimal.Decimal, ok bool) {
	code = domain.NormalizeCurrency(code)
	if code == domain.ReportingCurrency {
		if r, found := t[code]; found && r.IsPositive() {
			return r, true
		}
		return decimal.NewFromInt(1), true
	}
	r, found := t[code]
	if !found || !r.IsPositive() {
		return decimal.NewFromInt(1), false
	}
	return r, true
}

// Convert returns amount expressed in USD.
func (t RateTable) Convert(amount decimal.Decimal, code string) (usd decimal.Decimal, ok bool) {
	rate, ok := t.Rate(code)
	return amount.Mul(rate), ok
}

// Clone returns an independent copy of the table.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Currencies returns the configured codes in sorted order.
func (t RateTable) Currencies() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseRateTable parses "USD:1,TWD:0.031" into a table. USD is always present.
func ParseRateTable(s string) (RateTable, error) {
	table := RateTable{domain.ReportingCurrency: decimal.NewFromInt(1)}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, raw, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("invalid rate entry %q (use CODE:RATE)", part)
		}
		code = domain.NormalizeCurrency(code)
		if !domain.KnownCurrency(code) {
			return nil, fmt.Errorf("invalid rate entry %q: unknown currency %q", part, code)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate entry %q: %w", part, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate entry %q: rate must be > 0", part)
		}
		table[code] = rate
	}
	return table, nil
}

// String formats the table the way ParseRateTable reads it.
func (t RateTable) String() string {
	parts := make([]string, 0, len(t))
	for _, code := range t.Currencies() {
		parts = append(parts, code+":"+t[code].String())
	}
	return strings.Join(parts, ",")
}
