// Package portfoliofile reads a portfolio (trades, cash accounts, rates and
// optional offline quotes) from a YAML file.
package portfoliofile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultOwner is used when the file does not name an owner.
const DefaultOwner = "me"

// ErrNoOfflineQuote is returned by the offline provider for tickers without a quote.
var ErrNoOfflineQuote = errors.New("no offline quote")

// Amount is a decimal read from a YAML scalar without going through float64.
type Amount struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", value.Line, value.Value)
	}
	a.Decimal = d
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a Amount) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: a.String()}, nil
}

// File is the on-disk portfolio layout.
type File struct {
	Owner    string            `yaml:"owner,omitempty"`
	Rates    map[string]Amount `yaml:"rates,omitempty"`
	Accounts []AccountEntry    `yaml:"accounts,omitempty"`
	Trades   []TradeEntry      `yaml:"trades,omitempty"`
	// Prices are offline USD quotes keyed by ticker.
	Prices map[string]Amount `yaml:"prices,omitempty"`
}

// AccountEntry is a cash account line.
type AccountEntry struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
	Balance  Amount `yaml:"balance"`
}

// TradeEntry is a trade line.
type TradeEntry struct {
	Ticker    string `yaml:"ticker"`
	AssetType string `yaml:"asset_type"`
	Type      string `yaml:"type"`
	Quantity  Amount `yaml:"quantity"`
	Price     Amount `yaml:"price"`
	Currency  string `yaml:"currency"`
	Date      string `yaml:"date"`
	Account   string `yaml:"account,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a portfolio document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio file: %w", err)
	}
	if strings.TrimSpace(f.Owner) == "" {
		f.Owner = DefaultOwner
	}

	if _, err := f.RateTable(); err != nil {
		return nil, err
	}
	if _, err := f.DomainAccounts(); err != nil {
		return nil, err
	}
	if _, err := f.DomainTrades(); err != nil {
		return nil, err
	}
	return &f, nil
}

// RateTable builds the conversion table. USD is always 1.
func (f *File) RateTable() (portfolio.RateTable, error) {
	table := portfolio.RateTable{domain.ReportingCurrency: decimal.NewFromInt(1)}
	for code, rate := range f.Rates {
		code = domain.NormalizeCurrency(code)
		if !domain.KnownCurrency(code) {
			return nil, fmt.Errorf("rates: unknown currency %q", code)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rates: %s must be > 0", code)
		}
		table[code] = rate.Decimal
	}
	return table, nil
}

// DomainAccounts converts the account lines. Account ids are their names.
func (f *File) DomainAccounts() ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(f.Accounts))
	for i, e := range f.Accounts {
		a := domain.Account{
			ID:       e.Name,
			Name:     e.Name,
			Currency: e.Currency,
			Balance:  e.Balance.Decimal,
			OwnerID:  f.Owner,
		}.Normalize()
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// DomainTrades converts the trade lines in file order.
func (f *File) DomainTrades() ([]domain.Trade, error) {
	trades := make([]domain.Trade, 0, len(f.Trades))
	for i, e := range f.Trades {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(e.Date))
		if err != nil {
			return nil, fmt.Errorf("trades[%d]: %w: date must be YYYY-MM-DD", i, domain.ErrInvalidTrade)
		}
		account := e.Account
		if account == "" {
			account = f.Owner
		}
		assetType := e.AssetType
		if assetType == "" {
			assetType = string(domain.AssetTypeStock)
		}

		t := domain.Trade{
			ID:        fmt.Sprintf("trade-%d", i+1),
			Ticker:    e.Ticker,
			AssetType: domain.AssetType(assetType),
			Type:      domain.TradeType(e.Type),
			Quantity:  e.Quantity.Decimal,
			Price:     e.Price.Decimal,
			Currency:  e.Currency,
			TradeDate: date,
			AccountID: account,
			Reason:    e.Reason,
		}.Normalize()
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("trades[%d]: %w", i, err)
		}
		trades = append(trades, t)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TradeDate.Before(trades[j].TradeDate)
	})
	return trades, nil
}

// OfflinePrices returns a provider serving the file's quotes.
func (f *File) OfflinePrices() domain.PriceProvider {
	quotes := make(map[string]decimal.Decimal, len(f.Prices))
	for ticker, p := range f.Prices {
		quotes[domain.NormalizeTicker(ticker)] = p.Decimal
	}
	return domain.PriceProviderFunc(func(_ context.Context, ticker string) (decimal.Decimal, error) {
		p, ok := quotes[domain.NormalizeTicker(ticker)]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w for %s", ErrNoOfflineQuote, ticker)
		}
		return p, nil
	})
}

// LedgerReader exposes the file as a domain.LedgerReader for the portfolio service.
func (f *File) LedgerReader() (domain.LedgerReader, error) {
	trades, err := f.DomainTrades()
	if err != nil {
		return nil, err
	}
	accounts, err := f.DomainAccounts()
	if err != nil {
		return nil, err
	}
	return &staticLedger{owner: f.Owner, trades: trades, accounts: accounts}, nil
}

type staticLedger struct {
	owner    string
	trades   []domain.Trade
	accounts []domain.Account
}

func (l *staticLedger) ListTradesByOwner(_ context.Context, ownerID string) ([]domain.Trade, error) {
	if ownerID != l.owner {
		return nil, nil
	}
	return append([]domain.Trade(nil), l.trades...), nil
}

func (l *staticLedger) ListAccountsByOwner(_ context.Context, ownerID string) ([]domain.Account, error) {
	if ownerID != l.owner {
		return nil, nil
	}
	return append([]domain.Account(nil), l.accounts...), nil
}
