package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	"github.com/tmiguel/saldo/internal/summary"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// AccountSummary aggregates in one round trip. The ownership predicate sits
// in the WHERE clause, so a foreign account is indistinguishable from an
// absent one.
func (s *Store) AccountSummary(ctx context.Context, userID, accountID uuid.UUID) (*summary.AccountSummary, error) {
	query := `
		SELECT a.id, a.name, a.balance,
			COUNT(t.id),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'debit'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'credit'), 0),
			COUNT(t.id) FILTER (WHERE t.is_transfer)
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		WHERE a.id = $1 AND a.user_id = $2
		GROUP BY a.id, a.name, a.balance
	`

	var out summary.AccountSummary

	err := s.db.QueryRowContext(ctx, query, accountID, userID).Scan(
		&out.AccountID, &out.Name, &out.Balance,
		&out.TransactionCount, &out.TotalDebits, &out.TotalCredits,
		&out.TransferCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("summarizing account: %w", err)
	}

	return &out, nil
}
