package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

var (
	// ErrInvalidTrade is wrapped by every trade validation failure.
	ErrInvalidTrade = errors.New("invalid trade")
	// ErrInvalidAccount is wrapped by every account validation failure.
	ErrInvalidAccount = errors.New("invalid account")
)

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// KnownCurrency reports whether code is an ISO 4217 currency known to go-money.
func KnownCurrency(code string) bool {
	code = NormalizeCurrency(code)
	return code != "" && money.GetCurrency(code) != nil
}

// Normalize returns the trade with ticker and currency normalized.
func (t Trade) Normalize() Trade {
	t.Ticker = NormalizeTicker(t.Ticker)
	t.Currency = NormalizeCurrency(t.Currency)
	t.AssetType = AssetType(strings.ToLower(strings.TrimSpace(string(t.AssetType))))
	t.Type = TradeType(strings.ToLower(strings.TrimSpace(string(t.Type))))
	t.Reason = strings.TrimSpace(t.Reason)
	return t
}

// Validate checks the boundary invariants a trade must satisfy before it reaches the aggregator.
func (t Trade) Validate() error {
	switch {
	case t.Ticker == "":
		return fmt.Errorf("%w: ticker is required", ErrInvalidTrade)
	case !t.AssetType.Valid():
		return fmt.Errorf("%w: unsupported asset_type %q (use stock|crypto)", ErrInvalidTrade, t.AssetType)
	case !t.Type.Valid():
		return fmt.Errorf("%w: unsupported type %q (use buy|sell)", ErrInvalidTrade, t.Type)
	case !t.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be > 0", ErrInvalidTrade)
	case !t.Price.IsPositive():
		return fmt.Errorf("%w: price must be > 0", ErrInvalidTrade)
	case !KnownCurrency(t.Currency):
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidTrade, t.Currency)
	case t.TradeDate.IsZero():
		return fmt.Errorf("%w: trade_date is required", ErrInvalidTrade)
	case strings.TrimSpace(t.AccountID) == "":
		return fmt.Errorf("%w: account_id is required", ErrInvalidTrade)
	}
	return nil
}

// Normalize returns the account with name and currency normalized.
func (a Account) Normalize() Account {
	a.Name = strings.TrimSpace(a.Name)
	a.Currency = NormalizeCurrency(a.Currency)
	a.OwnerID = strings.TrimSpace(a.OwnerID)
	return a
}

// Validate checks the account fields required for valuation.
func (a Account) Validate() error {
	switch {
	case a.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	case !KnownCurrency(a.Currency):
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidAccount, a.Currency)
	case a.OwnerID == "":
		return fmt.Errorf("%w: owner_id is required", ErrInvalidAccount)
	}
	return nil
}
