// Package ledger persists cash accounts and trades and serves them to valuation.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when an account or trade id does not exist.
var ErrNotFound = errors.New("not found")

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// accountsColumns must match scanAccount.
const accountsColumns = `id, name, currency, balance, owner_id, created_at, updated_at`

// AccountRepository handles account database operations
type AccountRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(ledgerDB *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, a domain.Account) error {
	query := `INSERT INTO accounts (` + accountsColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.ledgerDB.ExecContext(ctx, query,
		a.ID,
		a.Name,
		a.Currency,
		a.Balance.String(),
		a.OwnerID,
		a.CreatedAt.Unix(),
		a.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Debug().Str("id", a.ID).Str("owner", a.OwnerID).Msg("Account created")
	return nil
}

// GetByID returns the account or ErrNotFound.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	query := "SELECT " + accountsColumns + " FROM accounts WHERE id = ?"

	a, err := scanAccount(r.ledgerDB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return a, nil
}

// ListByOwner returns the owner's accounts ordered by creation.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := "SELECT " + accountsColumns + " FROM accounts WHERE owner_id = ? ORDER BY created_at, id"

	rows, err := r.ledgerDB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// Update replaces the mutable fields of an account.
func (r *AccountRepository) Update(ctx context.Context, a domain.Account) error {
	query := `UPDATE accounts SET name = ?, currency = ?, balance = ?, owner_id = ?, updated_at = ? WHERE id = ?`

	res, err := r.ledgerDB.ExecContext(ctx, query,
		a.Name, a.Currency, a.Balance.String(), a.OwnerID, a.UpdatedAt.Unix(), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", a.ID, err)
	}
	return requireAffected(res, "account", a.ID)
}

// Delete removes an account and, by cascade, its trades.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.ledgerDB.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return requireAffected(res, "account", id)
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var createdAt, updatedAt int64

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Currency,
		&a.Balance,
		&a.OwnerID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return a, err
	}

	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return a, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
