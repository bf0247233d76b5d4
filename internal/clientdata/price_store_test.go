package clientdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceStore_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewPriceStore(NewRepository(db).WithClock(clock.Now))

	price := decimal.RequireFromString("189.8450")
	require.NoError(t, store.Put("stock:AAPL", price, clock.t, 15*time.Minute))

	got, fetchedAt, ok, err := store.GetFresh("stock:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(price))
	assert.Equal(t, clock.t.Unix(), fetchedAt.Unix())

	clock.Advance(15 * time.Minute)
	_, _, ok, err = store.GetFresh("stock:AAPL")
	require.NoError(t, err)
	assert.False(t, ok, "row expires with the quote")
}

func TestPriceStore_SkipsAlreadyExpiredQuote(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewPriceStore(NewRepository(db).WithClock(clock.Now))

	require.NoError(t, store.Put("stock:AAPL", decimal.NewFromInt(1), clock.t.Add(-time.Hour), 15*time.Minute))

	_, _, ok, err := store.GetFresh("stock:AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}
