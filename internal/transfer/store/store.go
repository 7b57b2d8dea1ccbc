package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/transaction"
	txStore "github.com/tmiguel/saldo/internal/transaction/store"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListUnpaired(ctx context.Context, userID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `SELECT ` + txStore.SelectTransactionColumns + `
		FROM transactions t
		WHERE t.user_id = $1 AND t.is_transfer = FALSE
		ORDER BY t.date ASC, t.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unpaired transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := txStore.ScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unpaired transactions: %w", err)
	}

	return txs, nil
}

// PairTransactions links the two rows inside one database transaction. The
// scan that proposed the pair ran on a snapshot, so both rows are re-locked
// and re-checked here; a row already paired in the meantime aborts the
// commit and the pair is skipped.
func (s *Store) PairTransactions(ctx context.Context, userID, aID, bID uuid.UUID) (bool, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning pair transaction: %w", err)
	}
	defer dbTx.Rollback()

	rows, err := dbTx.QueryContext(ctx, `
		SELECT id FROM transactions
		WHERE id IN ($1, $2) AND user_id = $3
			AND is_transfer = FALSE AND transfer_pair_id IS NULL
		FOR UPDATE
	`, aID, bID, userID)
	if err != nil {
		return false, fmt.Errorf("locking pair rows: %w", err)
	}

	free := 0

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return false, fmt.Errorf("scanning pair row: %w", err)
		}

		free++
	}

	if err := rows.Err(); err != nil {
		rows.Close()
		return false, fmt.Errorf("iterating pair rows: %w", err)
	}

	rows.Close()

	if free != 2 {
		return false, nil
	}

	if err := s.link(ctx, dbTx, aID, bID); err != nil {
		return false, err
	}

	if err := s.link(ctx, dbTx, bID, aID); err != nil {
		return false, err
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("committing pair: %w", err)
	}

	return true, nil
}

func (s *Store) link(ctx context.Context, dbTx *sql.Tx, id, pairID uuid.UUID) error {
	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET is_transfer = TRUE, transfer_pair_id = $1, updated_at = NOW()
		WHERE id = $2
	`, pairID, id)
	if err != nil {
		return fmt.Errorf("linking transfer pair: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pair rows affected: %w", err)
	}

	if n != 1 {
		return fmt.Errorf("%w: pair link touched %d rows", transaction.ErrConsistency, n)
	}

	return nil
}
