package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service validates and stores accounts and trades. It implements domain.LedgerReader.
type Service struct {
	accounts *AccountRepository
	trades   *TradeRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new ledger service
func NewService(accounts *AccountRepository, trades *TradeRepository, log zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		trades:   trades,
		now:      time.Now,
		log:      log.With().Str("service", "ledger").Logger(),
	}
}

var _ domain.LedgerReader = (*Service)(nil)

// CreateAccount validates a and stores it under a new id.
func (s *Service) CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return domain.Account{}, err
	}

	now := s.now().UTC().Truncate(time.Second)
	a.ID = uuid.New().String()
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.accounts.Create(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// GetAccount returns an account by id.
func (s *Service) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// UpdateAccount replaces the editable fields of an existing account.
func (s *Service) UpdateAccount(ctx context.Context, id string, a domain.Account) (domain.Account, error) {
	existing, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	a = a.Normalize()
	if a.OwnerID == "" {
		a.OwnerID = existing.OwnerID
	}
	if err := a.Validate(); err != nil {
		return domain.Account{}, err
	}

	a.ID = id
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = s.now().UTC().Truncate(time.Second)

	if err := s.accounts.Update(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// DeleteAccount removes an account together with its trades.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("account_id", id).Msg("Account deleted with its trades")
	return nil
}

// ListAccountsByOwner implements domain.LedgerReader.
func (s *Service) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	return s.accounts.ListByOwner(ctx, strings.TrimSpace(ownerID))
}

// prepareTrade normalizes and validates t and checks that its account exists.
func (s *Service) prepareTrade(ctx context.Context, t domain.Trade, known map[string]bool) (domain.Trade, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return domain.Trade{}, err
	}
	if !known[t.AccountID] {
		if _, err := s.accounts.GetByID(ctx, t.AccountID); err != nil {
			return domain.Trade{}, err
		}
		known[t.AccountID] = true
	}
	return t, nil
}

// CreateTrades validates every trade and stores them atomically.
// Nothing is stored if any trade is invalid or references a missing account.
func (s *Service) CreateTrades(ctx context.Context, trades []domain.Trade) ([]domain.Trade, error) {
	if len(trades) == 0 {
		return nil, fmt.Errorf("%w: no trades given", domain.ErrInvalidTrade)
	}

	now := s.now().UTC().Truncate(time.Second)
	known := make(map[string]bool)
	out := make([]domain.Trade, 0, len(trades))

	for i, t := range trades {
		prepared, err := s.prepareTrade(ctx, t, known)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
		prepared.ID = uuid.New().String()
		prepared.CreatedAt = now
		prepared.UpdatedAt = now
		out = append(out, prepared)
	}

	if len(out) == 1 {
		if err := s.trades.Create(ctx, out[0]); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := s.trades.CreateBatch(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a trade by id.
func (s *Service) GetTrade(ctx context.Context, id string) (domain.Trade, error) {
	return s.trades.GetByID(ctx, id)
}

// ListTrades returns trades matching the filter.
func (s *Service) ListTrades(ctx context.Context, f TradeFilter) ([]domain.Trade, error) {
	return s.trades.List(ctx, f)
}

// ListTradesByOwner implements domain.LedgerReader.
func (s *Service) ListTradesByOwner(ctx context.Context, ownerID string) ([]domain.Trade, error) {
	return s.trades.ListByOwner(ctx, strings.TrimSpace(ownerID))
}

// UpdateTrade replaces an existing trade.
func (s *Service) UpdateTrade(ctx context.Context, id string, t domain.Trade) (domain.Trade, error) {
	existing, err := s.trades.GetByID(ctx, id)
	if err != nil {
		return domain.Trade{}, err
	}

	prepared, err := s.prepareTrade(ctx, t, map[string]bool{})
	if err != nil {
		return domain.Trade{}, err
	}
	prepared.ID = id
	prepared.CreatedAt = existing.CreatedAt
	prepared.UpdatedAt = s.now().UTC().Truncate(time.Second)

	if err := s.trades.Update(ctx, prepared); err != nil {
		return domain.Trade{}, err
	}
	return prepared, nil
}

// DeleteTrade removes a trade.
func (s *Service) DeleteTrade(ctx context.Context, id string) error {
	return s.trades.Delete(ctx, id)
}
