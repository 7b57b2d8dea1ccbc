package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type carries the sign of a transaction for balance arithmetic.
type Type string

const (
	TypeDebit  Type = "debit"
	TypeCredit Type = "credit"

	// TypeTransfer is accepted as a list filter alias for paired rows.
	// It is never stored: a paired transaction keeps its debit/credit type
	// so its signed amount stays well-defined.
	TypeTransfer Type = "transfer"
)

var (
	// ErrNotFound covers both a row that does not exist and a row owned by
	// another user, so callers cannot distinguish the two.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidInput is returned for malformed create params or patches.
	ErrInvalidInput = errors.New("invalid transaction input")

	// ErrConsistency means an atomic unit could not be committed. It is
	// fatal to the single operation; nothing is partially applied.
	ErrConsistency = errors.New("transaction consistency violation")
)

// Transaction is a signed ledger entry. Amount is the magnitude in cents;
// the direction comes from Type.
type Transaction struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	AccountID      uuid.UUID
	Amount         int64 // Magnitude in cents, never negative
	Type           Type
	Date           time.Time
	Description    string
	Notes          string
	Tags           []string
	CategoryID     *uuid.UUID
	ExternalID     *string
	ImportSource   *string
	ImportedAt     *time.Time
	IsTransfer     bool
	TransferPairID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// SignedAmount is the transaction's contribution to its account balance:
// negative for debits, positive for credits.
func (t *Transaction) SignedAmount() int64 {
	if t.Type == TypeDebit {
		return -t.Amount
	}

	return t.Amount
}
