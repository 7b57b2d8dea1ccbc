package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	accountStore "github.com/tmiguel/saldo/internal/account/store"
	"github.com/tmiguel/saldo/internal/transaction"
)

type Store struct {
	db       *sql.DB
	accounts *accountStore.Store
}

func New(db *sql.DB, accounts *accountStore.Store) *Store {
	return &Store{db: db, accounts: accounts}
}

const SelectTransactionColumns = `
	t.id, t.user_id, t.account_id, t.amount, t.type, t.date,
	t.description, t.notes, t.tags, t.category_id,
	t.external_id, t.import_source, t.imported_at,
	t.is_transfer, t.transfer_pair_id, t.created_at, t.updated_at
`

// Scanner is satisfied by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

func ScanTransaction(s Scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var tags []byte

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.AccountID, &tx.Amount, &typeStr, &tx.Date,
		&tx.Description, &tx.Notes, &tags, &tx.CategoryID,
		&tx.ExternalID, &tx.ImportSource, &tx.ImportedAt,
		&tx.IsTransfer, &tx.TransferPairID, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &tx.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}

	return &tx, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}

	return json.Marshal(tags)
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	return s.accounts.GetOwnedAccount(ctx, userID, accountID)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + SelectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.user_id = $2`

	tx, err := ScanTransaction(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

// CreateTransaction inserts the row and adjusts the account balance in one
// database transaction.
func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction, delta int64) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	tags, err := encodeTags(tx.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	query := `
		INSERT INTO transactions (user_id, account_id, amount, type, date, description, notes, tags,
			category_id, external_id, import_source, imported_at, is_transfer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, NOW())
		RETURNING id, created_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		tx.UserID, tx.AccountID, tx.Amount, tx.Type, tx.Date,
		tx.Description, tx.Notes, tags, tx.CategoryID,
		tx.ExternalID, tx.ImportSource, tx.ImportedAt,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	if delta != 0 {
		if err := s.accounts.AdjustBalance(ctx, dbTx, tx.AccountID, delta); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction, adjustments []transaction.BalanceAdjustment) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	tags, err := encodeTags(tx.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	query := `
		UPDATE transactions
		SET account_id = $1, amount = $2, type = $3, date = $4, description = $5,
			notes = $6, tags = $7, category_id = $8, updated_at = NOW()
		WHERE id = $9 AND user_id = $10
	`

	res, err := dbTx.ExecContext(ctx, query,
		tx.AccountID, tx.Amount, tx.Type, tx.Date, tx.Description,
		tx.Notes, tags, tx.CategoryID, tx.ID, tx.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if err := requireOneRow(res, "update"); err != nil {
		return err
	}

	if err := s.applyAdjustments(ctx, dbTx, adjustments); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// DeleteTransaction removes the row, restores a transfer partner to an
// unpaired state, and applies the balance reversals, all in one database
// transaction.
func (s *Store) DeleteTransaction(ctx context.Context, tx, partner *transaction.Transaction, adjustments []transaction.BalanceAdjustment) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if partner != nil {
		res, err := dbTx.ExecContext(ctx, `
			UPDATE transactions
			SET is_transfer = FALSE, transfer_pair_id = NULL, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, partner.ID, partner.UserID)
		if err != nil {
			return fmt.Errorf("unlinking transfer partner: %w", err)
		}

		if err := requireOneRow(res, "unlink partner"); err != nil {
			return err
		}
	}

	res, err := dbTx.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE id = $1 AND user_id = $2
	`, tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if err := requireOneRow(res, "delete"); err != nil {
		return err
	}

	if err := s.applyAdjustments(ctx, dbTx, adjustments); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
	where := " WHERE t.user_id = $1"
	args := []any{userID}
	argIdx := 2

	if filter.AccountID != nil {
		where += fmt.Sprintf(" AND t.account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.CategoryID != nil {
		where += fmt.Sprintf(" AND t.category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
		argIdx++
	}

	if filter.Type != nil {
		where += fmt.Sprintf(" AND t.type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.IsTransfer != nil {
		where += fmt.Sprintf(" AND t.is_transfer = $%d", argIdx)

		args = append(args, *filter.IsTransfer)
		argIdx++
	}

	if filter.StartDate != nil {
		where += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		where += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions t"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting transactions: %w", err)
	}

	query := `SELECT ` + SelectTransactionColumns + ` FROM transactions t` + where +
		fmt.Sprintf(" ORDER BY t.date DESC, t.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := ScanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, total, nil
}

func (s *Store) applyAdjustments(ctx context.Context, dbTx *sql.Tx, adjustments []transaction.BalanceAdjustment) error {
	for _, adj := range adjustments {
		if err := s.accounts.AdjustBalance(ctx, dbTx, adj.AccountID, adj.Delta); err != nil {
			return err
		}
	}

	return nil
}

// requireOneRow guards against a row disappearing between the service's read
// and the store's write; the surrounding database transaction rolls back.
func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}

	if n != 1 {
		return fmt.Errorf("%w: %s touched %d rows", transaction.ErrConsistency, op, n)
	}

	return nil
}
