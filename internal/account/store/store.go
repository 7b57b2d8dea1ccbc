package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
)

// Queryer is satisfied by *sql.DB and *sql.Tx. Stores that write transaction
// rows pass their open database transaction here so the balance moves in the
// same atomic unit as the row.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// AdjustBalance is the single entry point for balance mutation. The delta is
// applied as an atomic increment so concurrent units never read-modify-write
// over each other.
func (s *Store) AdjustBalance(ctx context.Context, q Queryer, accountID uuid.UUID, delta int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
	`, delta, accountID)
	if err != nil {
		return fmt.Errorf("adjusting balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("balance rows affected: %w", err)
	}

	if n == 0 {
		return account.ErrNotFound
	}

	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (user_id, name, balance, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, a.UserID, a.Name, a.Balance).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, q Queryer, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, user_id, name, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	a, err := scanAccount(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return a, nil
}

// GetOwnedAccount resolves the account and checks ownership. A foreign
// account returns ErrPermissionDenied; callers decide whether to surface or
// conflate it.
func (s *Store) GetOwnedAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	a, err := s.GetAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}

	if a.UserID != userID {
		return nil, account.ErrPermissionDenied
	}

	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, name, balance, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY name ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*account.Account, error) {
	var a account.Account

	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	return &a, nil
}
