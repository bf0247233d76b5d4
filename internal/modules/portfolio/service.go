package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds parallel quote lookups per aggregation run.
const DefaultFetchConcurrency = 8

// RateSource supplies the current currency table.
type RateSource interface {
	Table() RateTable
}

// Table lets a fixed RateTable act as a RateSource.
func (t RateTable) Table() RateTable { return t.Clone() }

// PortfolioService loads an owner's ledger, prices the derived holdings and
// builds the valuation summary.
//
// Dependencies:
//   - domain.LedgerReader: trades and cash accounts
//   - domain.PriceLookup: cached live quotes
//   - RateSource: currency multipliers to USD
type PortfolioService struct {
	ledger      domain.LedgerReader
	lookup      domain.PriceLookup
	rates       RateSource
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// ServiceOption configures a PortfolioService.
type ServiceOption func(*PortfolioService)

// WithFetchConcurrency sets how many quotes are requested in parallel.
func WithFetchConcurrency(n int) ServiceOption {
	return func(s *PortfolioService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithServiceClock injects the time source used for Summary.GeneratedAt.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *PortfolioService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(ledger domain.LedgerReader, lookup domain.PriceLookup, rates RateSource, log zerolog.Logger, opts ...ServiceOption) *PortfolioService {
	s := &PortfolioService{
		ledger:      ledger,
		lookup:      lookup,
		rates:       rates,
		concurrency: DefaultFetchConcurrency,
		now:         time.Now,
		log:         log.With().Str("service", "portfolio").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Holdings returns the owner's priced holdings.
func (s *PortfolioService) Holdings(ctx context.Context, ownerID string) ([]domain.Holding, error) {
	holdings, _, err := s.holdings(ctx, ownerID)
	return holdings, err
}

func (s *PortfolioService) holdings(ctx context.Context, ownerID string) ([]domain.Holding, []string, error) {
	trades, err := s.ledger.ListTradesByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trades: %w", err)
	}

	holdings := ResolvePrices(ctx, s.lookup, ComputeHoldings(trades), s.concurrency, s.log)

	var warnings []string
	costCurrency := make(map[string]string, len(holdings))
	for _, h := range holdings {
		costCurrency[h.Ticker] = h.CostCurrency
	}
	for _, ticker := range MixedCurrencyTickers(trades) {
		msg := fmt.Sprintf("trades for %s use more than one currency; cost basis is reported in %s", ticker, costCurrency[ticker])
		s.log.Warn().Str("ticker", ticker).Msg("Mixed trade currencies")
		warnings = append(warnings, msg)
	}

	return holdings, warnings, nil
}

// Summary values the owner's holdings and cash accounts in USD.
func (s *PortfolioService) Summary(ctx context.Context, ownerID string) (domain.Summary, error) {
	holdings, warnings, err := s.holdings(ctx, ownerID)
	if err != nil {
		return domain.Summary{}, err
	}

	accounts, err := s.ledger.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("failed to load accounts: %w", err)
	}

	summary := ComputeSummary(holdings, accounts, s.rates.Table())
	summary.Warnings = append(warnings, summary.Warnings...)
	summary.GeneratedAt = s.now().UTC()

	s.log.Debug().
		Str("owner", ownerID).
		Int("rows", len(summary.Rows)).
		Str("total_usd", summary.TotalValueUSD.StringFixed(2)).
		Bool("incomplete", summary.Incomplete).
		Msg("Summary computed")

	return summary, nil
}

type quoteKey struct {
	assetType domain.AssetType
	ticker    string
}

// ResolvePrices looks up one quote per distinct (asset type, ticker) with at most
// limit requests in flight, and returns copies of holdings with prices attached.
// A failed lookup leaves that holding without a price.
func ResolvePrices(ctx context.Context, lookup domain.PriceLookup, holdings []domain.Holding, limit int, log zerolog.Logger) []domain.Holding {
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}

	keys := make([]quoteKey, 0, len(holdings))
	seen := make(map[quoteKey]bool, len(holdings))
	for _, h := range holdings {
		k := quoteKey{assetType: h.AssetType, ticker: h.Ticker}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	var mu sync.Mutex
	prices := make(map[quoteKey]decimal.Decimal, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			price, err := lookup.GetPrice(gctx, k.ticker, k.assetType)
			if err != nil {
				log.Warn().Err(err).Str("ticker", k.ticker).Str("asset_type", string(k.assetType)).Msg("Price unavailable")
				return nil
			}
			mu.Lock()
			prices[k] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Holding, len(holdings))
	for i, h := range holdings {
		if price, ok := prices[quoteKey{assetType: h.AssetType, ticker: h.Ticker}]; ok {
			out[i] = h.WithPrice(price, domain.ReportingCurrency)
		} else {
			out[i] = h
		}
	}
	return out
}
