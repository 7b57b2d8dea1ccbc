package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	accountStore "github.com/tmiguel/saldo/internal/account/store"
	"github.com/tmiguel/saldo/internal/reconcile"
	"github.com/tmiguel/saldo/internal/transaction"
	txStore "github.com/tmiguel/saldo/internal/transaction/store"
)

type Store struct {
	db       *sql.DB
	accounts *accountStore.Store
}

func New(db *sql.DB, accounts *accountStore.Store) *Store {
	return &Store{db: db, accounts: accounts}
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	return s.accounts.GetOwnedAccount(ctx, userID, accountID)
}

// accountLockKey derives the advisory lock key that serializes import units
// touching one account.
func accountLockKey(accountID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(accountID[:])

	return int64(h.Sum64())
}

type unitTx struct {
	tx       *sql.Tx
	accounts *accountStore.Store
}

// Begin opens a database transaction holding the account's advisory lock, so
// concurrent imports into the same account run one candidate at a time.
func (s *Store) Begin(ctx context.Context, accountID uuid.UUID) (reconcile.UnitTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import unit: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", accountLockKey(accountID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &unitTx{tx: dbTx, accounts: s.accounts}, nil
}

func (u *unitTx) Commit() error   { return u.tx.Commit() }
func (u *unitTx) Rollback() error { return u.tx.Rollback() }

func (u *unitTx) FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*transaction.Transaction, error) {
	query := `SELECT ` + txStore.SelectTransactionColumns + `
		FROM transactions t
		WHERE t.account_id = $1 AND t.external_id = $2
		ORDER BY t.created_at ASC
		LIMIT 1`

	tx, err := txStore.ScanTransaction(u.tx.QueryRowContext(ctx, query, accountID, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("finding by external id: %w", err)
	}

	return tx, nil
}

// FindByNaturalKey matches on (calendar day, magnitude, description), the
// fallback identity for statement rows without an external id.
func (u *unitTx) FindByNaturalKey(ctx context.Context, accountID uuid.UUID, date time.Time, amount int64, description string) (*transaction.Transaction, error) {
	query := `SELECT ` + txStore.SelectTransactionColumns + `
		FROM transactions t
		WHERE t.account_id = $1 AND t.date::date = $2::date AND t.amount = $3 AND t.description = $4
		ORDER BY t.created_at ASC
		LIMIT 1`

	tx, err := txStore.ScanTransaction(u.tx.QueryRowContext(ctx, query, accountID, date, amount, description))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("finding by natural key: %w", err)
	}

	return tx, nil
}

func (u *unitTx) CreateImported(ctx context.Context, tx *transaction.Transaction, delta int64) error {
	query := `
		INSERT INTO transactions (user_id, account_id, amount, type, date, description, notes, tags,
			external_id, import_source, imported_at, is_transfer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', '[]', $7, $8, $9, FALSE, NOW())
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		tx.UserID, tx.AccountID, tx.Amount, tx.Type, tx.Date, tx.Description,
		tx.ExternalID, tx.ImportSource, tx.ImportedAt,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating imported transaction: %w", err)
	}

	if delta != 0 {
		return u.accounts.AdjustBalance(ctx, u.tx, tx.AccountID, delta)
	}

	return nil
}

func (u *unitTx) UpdateImported(ctx context.Context, tx *transaction.Transaction, delta int64) error {
	query := `
		UPDATE transactions
		SET amount = $1, type = $2, date = $3, description = $4,
			external_id = $5, import_source = $6, imported_at = $7, updated_at = NOW()
		WHERE id = $8
	`

	res, err := u.tx.ExecContext(ctx, query,
		tx.Amount, tx.Type, tx.Date, tx.Description,
		tx.ExternalID, tx.ImportSource, tx.ImportedAt, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("updating imported transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reconcile rows affected: %w", err)
	}

	if n != 1 {
		return fmt.Errorf("%w: reconcile update touched %d rows", transaction.ErrConsistency, n)
	}

	if delta != 0 {
		return u.accounts.AdjustBalance(ctx, u.tx, tx.AccountID, delta)
	}

	return nil
}
