package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// tradeDateLayout is the storage format of trades.trade_date.
const tradeDateLayout = "2006-01-02"

// tradesColumns must match scanTrade.
const tradesColumns = `t.id, t.ticker, t.asset_type, t.type, t.quantity, t.price, t.currency, t.trade_date, t.account_id, t.reason, t.created_at, t.updated_at`

// TradeSort orders trade listings.
type TradeSort string

const (
	SortDateAsc  TradeSort = "date_asc"
	SortDateDesc TradeSort = "date_desc"
)

// TradeFilter narrows List. Zero values mean "no filter".
type TradeFilter struct {
	OwnerID   string
	AccountID string
	Ticker    string
	Sort      TradeSort
	Limit     int
	Offset    int
}

// TradeRepository handles trade database operations
type TradeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

const insertTrade = `
	INSERT INTO trades
	(id, ticker, asset_type, type, quantity, price, currency, trade_date, account_id, reason, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTradeRow(ctx context.Context, db execer, t domain.Trade) error {
	_, err := db.ExecContext(ctx, insertTrade,
		t.ID,
		t.Ticker,
		string(t.AssetType),
		string(t.Type),
		t.Quantity.String(),
		t.Price.String(),
		t.Currency,
		t.TradeDate.Format(tradeDateLayout),
		t.AccountID,
		t.Reason,
		t.CreatedAt.Unix(),
		t.UpdatedAt.Unix(),
	)
	return err
}

// Create inserts a new trade record
func (r *TradeRepository) Create(ctx context.Context, t domain.Trade) error {
	if err := insertTradeRow(ctx, r.ledgerDB, t); err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	r.log.Info().
		Str("ticker", t.Ticker).
		Str("type", string(t.Type)).
		Str("quantity", t.Quantity.String()).
		Msg("Trade created")
	return nil
}

// CreateBatch inserts all trades in one transaction; either all are stored or none.
func (r *TradeRepository) CreateBatch(ctx context.Context, trades []domain.Trade) error {
	err := database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		for i, t := range trades {
			if err := insertTradeRow(ctx, tx, t); err != nil {
				return fmt.Errorf("trade %d (%s): %w", i, t.Ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create trades: %w", err)
	}

	r.log.Info().Int("count", len(trades)).Msg("Trades created")
	return nil
}

// GetByID returns the trade or ErrNotFound.
func (r *TradeRepository) GetByID(ctx context.Context, id string) (domain.Trade, error) {
	query := "SELECT " + tradesColumns + " FROM trades t WHERE t.id = ?"

	t, err := scanTrade(r.ledgerDB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trade{}, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("failed to get trade %s: %w", id, err)
	}
	return t, nil
}

// List returns trades matching the filter.
func (r *TradeRepository) List(ctx context.Context, f TradeFilter) ([]domain.Trade, error) {
	var where []string
	var args []interface{}

	query := "SELECT " + tradesColumns + " FROM trades t"
	if f.OwnerID != "" {
		query += " JOIN accounts a ON a.id = t.account_id"
		where = append(where, "a.owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Ticker != "" {
		where = append(where, "t.ticker = ?")
		args = append(args, domain.NormalizeTicker(f.Ticker))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	// rowid keeps same-day trades in insertion order; a batch shares created_at.
	if f.Sort == SortDateDesc {
		query += " ORDER BY t.trade_date DESC, t.created_at DESC, t.rowid DESC"
	} else {
		query += " ORDER BY t.trade_date ASC, t.created_at ASC, t.rowid ASC"
	}

	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// ListByOwner returns every trade in the owner's accounts in chronological order.
func (r *TradeRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Trade, error) {
	return r.List(ctx, TradeFilter{OwnerID: ownerID, Sort: SortDateAsc})
}

// Update replaces a stored trade.
func (r *TradeRepository) Update(ctx context.Context, t domain.Trade) error {
	query := `
		UPDATE trades SET ticker = ?, asset_type = ?, type = ?, quantity = ?, price = ?,
		currency = ?, trade_date = ?, account_id = ?, reason = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.ledgerDB.ExecContext(ctx, query,
		t.Ticker,
		string(t.AssetType),
		string(t.Type),
		t.Quantity.String(),
		t.Price.String(),
		t.Currency,
		t.TradeDate.Format(tradeDateLayout),
		t.AccountID,
		t.Reason,
		t.UpdatedAt.Unix(),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w", t.ID, err)
	}
	return requireAffected(res, "trade", t.ID)
}

// Delete removes a trade.
func (r *TradeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.ledgerDB.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}
	return requireAffected(res, "trade", id)
}

func scanTrade(row rowScanner) (domain.Trade, error) {
	var t domain.Trade
	var assetType, side, tradeDate string
	var createdAt, updatedAt int64

	err := row.Scan(
		&t.ID,
		&t.Ticker,
		&assetType,
		&side,
		&t.Quantity,
		&t.Price,
		&t.Currency,
		&tradeDate,
		&t.AccountID,
		&t.Reason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return t, err
	}

	t.AssetType = domain.AssetType(assetType)
	t.Type = domain.TradeType(side)
	t.TradeDate, err = time.Parse(tradeDateLayout, tradeDate)
	if err != nil {
		return t, fmt.Errorf("invalid trade_date %q: %w", tradeDate, err)
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return t, nil
}
