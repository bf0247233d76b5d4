package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
	testingpkg "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testingpkg.NewTestDB(t, "ledger")
	log := zerolog.Nop()
	return NewService(NewAccountRepository(db.Conn(), log), NewTradeRepository(db.Conn(), log), log)
}

func createAccount(t *testing.T, s *Service, name, ccy, owner string) domain.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), domain.Account{
		Name: name, Currency: ccy, Balance: decimal.NewFromInt(100), OwnerID: owner,
	})
	require.NoError(t, err)
	return a
}

func tradeOn(accountID, ticker string, side domain.TradeType, qty, price float64, day int) domain.Trade {
	return domain.Trade{
		Ticker:    ticker,
		AssetType: domain.AssetTypeStock,
		Type:      side,
		Quantity:  decimal.NewFromFloat(qty),
		Price:     decimal.NewFromFloat(price),
		Currency:  "usd",
		TradeDate: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		AccountID: accountID,
	}
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	a := createAccount(t, s, " Brokerage ", "usd", "u1")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Brokerage", a.Name)
	assert.Equal(t, "USD", a.Currency)

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	updated, err := s.UpdateAccount(ctx, a.ID, domain.Account{Name: "Main", Currency: "TWD", Balance: decimal.RequireFromString("31000.50")})
	require.NoError(t, err)
	assert.Equal(t, "u1", updated.OwnerID, "owner is kept when omitted")

	got, err = s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "TWD", got.Currency)
	assert.Equal(t, "31000.5", got.Balance.String())

	require.NoError(t, s.DeleteAccount(ctx, a.ID))
	_, err = s.GetAccount(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, a.ID), ErrNotFound)
}

func TestCreateAccount_Invalid(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateAccount(context.Background(), domain.Account{Name: "X", Currency: "XYZ", OwnerID: "u1"})
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)

	_, err = s.UpdateAccount(context.Background(), "missing", domain.Account{Name: "X", Currency: "USD"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAccountsByOwner(t *testing.T) {
	s := newTestService(t)
	createAccount(t, s, "A", "USD", "u1")
	createAccount(t, s, "B", "EUR", "u1")
	createAccount(t, s, "C", "USD", "u2")

	accounts, err := s.ListAccountsByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	none, err := s.ListAccountsByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreateTrades(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, s, "Brokerage", "USD", "u1")

	created, err := s.CreateTrades(ctx, []domain.Trade{
		tradeOn(a.ID, "aapl", domain.TradeTypeBuy, 10, 100, 2),
		tradeOn(a.ID, "AAPL", domain.TradeTypeSell, 4, 120, 5),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.Equal(t, "AAPL", created[0].Ticker)
	assert.Equal(t, "USD", created[0].Currency)

	got, err := s.GetTrade(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0].TradeDate, got.TradeDate)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.AssetTypeStock, got.AssetType)
	assert.Equal(t, domain.TradeTypeBuy, got.Type)
}

func TestCreateTrades_AllOrNothing(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, s, "Brokerage", "USD", "u1")

	_, err := s.CreateTrades(ctx, []domain.Trade{
		tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 10, 100, 2),
		tradeOn(a.ID, "MSFT", domain.TradeTypeBuy, 0, 100, 3),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTrade)

	_, err = s.CreateTrades(ctx, []domain.Trade{
		tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 10, 100, 2),
		tradeOn("missing", "MSFT", domain.TradeTypeBuy, 1, 100, 3),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateTrades(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTrade)

	trades, err := s.ListTradesByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestListTrades_Filters(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, s, "A", "USD", "u1")
	b := createAccount(t, s, "B", "USD", "u1")
	other := createAccount(t, s, "C", "USD", "u2")

	_, err := s.CreateTrades(ctx, []domain.Trade{
		tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 1, 100, 3),
		tradeOn(b.ID, "MSFT", domain.TradeTypeBuy, 1, 100, 1),
		tradeOn(a.ID, "MSFT", domain.TradeTypeBuy, 1, 100, 2),
		tradeOn(other.ID, "AAPL", domain.TradeTypeBuy, 1, 100, 4),
	})
	require.NoError(t, err)

	byOwner, err := s.ListTradesByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, byOwner, 3)
	assert.Equal(t, 1, byOwner[0].TradeDate.Day(), "chronological order")
	assert.Equal(t, 3, byOwner[2].TradeDate.Day())

	testCases := []struct {
		name   string
		filter TradeFilter
		want   int
	}{
		{"all", TradeFilter{}, 4},
		{"account", TradeFilter{AccountID: a.ID}, 2},
		{"ticker", TradeFilter{Ticker: "aapl"}, 2},
		{"owner and ticker", TradeFilter{OwnerID: "u1", Ticker: "MSFT"}, 2},
		{"limit", TradeFilter{Limit: 3}, 3},
		{"offset", TradeFilter{Offset: 3}, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trades, err := s.ListTrades(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, trades, tc.want)
		})
	}

	desc, err := s.ListTrades(ctx, TradeFilter{Sort: SortDateDesc, Limit: 1})
	require.NoError(t, err)
	require.Len(t, desc, 1)
	assert.Equal(t, 4, desc[0].TradeDate.Day())
}

func TestUpdateAndDeleteTrade(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, s, "A", "USD", "u1")

	created, err := s.CreateTrades(ctx, []domain.Trade{tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 1, 100, 3)})
	require.NoError(t, err)
	id := created[0].ID

	updated, err := s.UpdateTrade(ctx, id, tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 2, 150, 4))
	require.NoError(t, err)
	assert.Equal(t, id, updated.ID)

	got, err := s.GetTrade(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, got.Price.Equal(decimal.NewFromInt(150)))

	_, err = s.UpdateTrade(ctx, id, tradeOn("missing", "AAPL", domain.TradeTypeBuy, 2, 150, 4))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateTrade(ctx, "missing", tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 2, 150, 4))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteTrade(ctx, id))
	_, err = s.GetTrade(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccountCascadesTrades(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, s, "A", "USD", "u1")

	_, err := s.CreateTrades(ctx, []domain.Trade{tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 1, 100, 3)})
	require.NoError(t, err)
	require.NoError(t, s.DeleteAccount(ctx, a.ID))

	trades, err := s.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestListTradesByOwner_SameDayKeepsEntryOrder(t *testing.T) {
	for run := 0; run < 20; run++ {
		s := newTestService(t)
		ctx := context.Background()
		a := createAccount(t, s, "Brokerage", "USD", "u1")

		_, err := s.CreateTrades(ctx, []domain.Trade{
			tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 10, 100, 4),
			tradeOn(a.ID, "AAPL", domain.TradeTypeSell, 10, 150, 4),
			tradeOn(a.ID, "AAPL", domain.TradeTypeBuy, 10, 200, 4),
		})
		require.NoError(t, err)

		trades, err := s.ListTradesByOwner(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, trades, 3)
		assert.Equal(t, []domain.TradeType{domain.TradeTypeBuy, domain.TradeTypeSell, domain.TradeTypeBuy},
			[]domain.TradeType{trades[0].Type, trades[1].Type, trades[2].Type}, "run %d", run)

		holdings := portfolio.ComputeHoldings(trades)
		require.Len(t, holdings, 1)
		assert.True(t, holdings[0].AverageCost.Equal(decimal.NewFromInt(200)), "run %d: avg = %s", run, holdings[0].AverageCost)
		assert.True(t, holdings[0].Quantity.Equal(decimal.NewFromInt(10)))

		desc, err := s.ListTrades(ctx, TradeFilter{OwnerID: "u1", Sort: SortDateDesc})
		require.NoError(t, err)
		require.Len(t, desc, 3)
		assert.True(t, desc[0].Price.Equal(decimal.NewFromInt(200)), "run %d", run)
		assert.True(t, desc[2].Price.Equal(decimal.NewFromInt(100)), "run %d", run)
	}
}
