// Package currency maintains the USD conversion table used for valuation.
package currency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrRefreshDisabled is returned by Refresh when no live source is configured.
var ErrRefreshDisabled = errors.New("exchange rate refresh is disabled")

// RatesFetcher returns units of each currency per one USD.
type RatesFetcher interface {
	LatestUSD(ctx context.Context) (map[string]float64, error)
}

// Service holds the current rate table. The configured table is authoritative
// for which currencies exist; Refresh only updates their values.
type Service struct {
	fetcher RatesFetcher
	now     func() time.Time
	log     zerolog.Logger

	mu          sync.RWMutex
	table       portfolio.RateTable
	refreshedAt time.Time
}

// NewService creates a rate service seeded with static. fetcher may be nil.
func NewService(static portfolio.RateTable, fetcher RatesFetcher, log zerolog.Logger) *Service {
	table := static.Clone()
	if _, ok := table[domain.ReportingCurrency]; !ok {
		table[domain.ReportingCurrency] = decimal.NewFromInt(1)
	}
	return &Service{
		fetcher: fetcher,
		now:     time.Now,
		log:     log.With().Str("service", "currency").Logger(),
		table:   table,
	}
}

// Table returns a copy of the current table. It implements portfolio.RateSource.
func (s *Service) Table() portfolio.RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Clone()
}

// RefreshedAt returns when the table was last refreshed, zero if never.
func (s *Service) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// RefreshEnabled reports whether a live source is configured.
func (s *Service) RefreshEnabled() bool {
	return s.fetcher != nil
}

// Refresh pulls live rates and updates the configured currencies.
// On failure the previous table stays in effect.
func (s *Service) Refresh(ctx context.Context) (portfolio.RateTable, error) {
	if s.fetcher == nil {
		return nil, ErrRefreshDisabled
	}

	perUSD, err := s.fetcher.LatestUSD(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Rate refresh failed, keeping previous table")
		return nil, fmt.Errorf("failed to refresh rates: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.table.Clone()
	updated := 0
	for code := range next {
		if code == domain.ReportingCurrency {
			continue
		}
		units, ok := perUSD[code]
		if !ok || units <= 0 {
			s.log.Warn().Str("currency", code).Msg("No live rate, keeping configured value")
			continue
		}
		next[code] = decimal.NewFromInt(1).Div(decimal.NewFromFloat(units))
		updated++
	}

	s.table = next
	s.refreshedAt = s.now()
	s.log.Info().Int("updated", updated).Int("currencies", len(next)).Msg("Exchange rates refreshed")
	return next.Clone(), nil
}

// RefreshJob refreshes the table on a schedule.
type RefreshJob struct {
	service *Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshJob creates the scheduled refresh job.
func NewRefreshJob(service *Service, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		service: service,
		timeout: 30 * time.Second,
		log:     log.With().Str("job", "exchange_rate_refresh").Logger(),
	}
}

// Run refreshes the rate table.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.Refresh(ctx); err != nil {
		j.log.Error().Err(err).Msg("Exchange rate refresh failed")
		return err
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "exchange_rate_refresh"
}
