package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	"github.com/tmiguel/saldo/internal/transaction"
)

// Candidate is one externally sourced statement record. Amount is signed:
// negative spends, non-negative receives.
type Candidate struct {
	Date        time.Time
	Amount      int64 // Signed cents
	Description string
	ExternalID  string
}

type Repository interface {
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error)

	// Begin opens one atomic unit serialized per account; matching and the
	// resulting write happen inside it so a concurrent import of the same
	// statement cannot double-count.
	Begin(ctx context.Context, accountID uuid.UUID) (UnitTx, error)
}

type UnitTx interface {
	FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*transaction.Transaction, error)
	FindByNaturalKey(ctx context.Context, accountID uuid.UUID, date time.Time, amount int64, description string) (*transaction.Transaction, error)
	CreateImported(ctx context.Context, tx *transaction.Transaction, delta int64) error
	UpdateImported(ctx context.Context, tx *transaction.Transaction, delta int64) error
	Commit() error
	Rollback() error
}

// Service upserts statement candidates without double-counting. Re-importing
// the same statement matches every row and applies zero deltas.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type Result struct {
	Created int
	Updated int
}

// Import processes candidates as a strict sequence: later duplicates inside
// one batch match the earlier candidate's already-committed row. Each
// candidate commits on its own, so an abort between candidates leaves the
// account consistent with the rows that made it in.
func (s *Service) Import(ctx context.Context, userID, accountID uuid.UUID, source string, candidates []Candidate) (*Result, error) {
	result := &Result{}

	if len(candidates) == 0 {
		return result, nil
	}

	a, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, account.ErrPermissionDenied) {
			return result, account.ErrNotFound
		}

		return result, err
	}

	for i, c := range candidates {
		created, err := s.reconcile(ctx, a, source, c)
		if err != nil {
			return result, fmt.Errorf("candidate %d: %w", i, err)
		}

		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

func (s *Service) reconcile(ctx context.Context, a *account.Account, source string, c Candidate) (created bool, err error) {
	unit, err := s.repo.Begin(ctx, a.ID)
	if err != nil {
		return false, fmt.Errorf("begin unit: %w", err)
	}
	defer unit.Rollback()

	amount, txType := splitSigned(c.Amount)

	existing, err := s.match(ctx, unit, a.ID, c, amount)
	if err != nil {
		return false, err
	}

	importedAt := s.now().UTC()

	if existing != nil {
		// A paired row's direction is frozen: overwriting its type from an
		// amended statement line would leave both sides of the pair with the
		// same sign. The row has to be deleted (unlinking the partner) and
		// re-imported instead.
		if existing.IsTransfer && txType != existing.Type {
			return false, fmt.Errorf("%w: statement correction flips the sign of a transfer-paired transaction", transaction.ErrInvalidInput)
		}

		// Idempotency lives here: a re-imported row matches and its delta
		// is newSigned - oldSigned, zero for an identical statement line.
		delta := c.Amount - existing.SignedAmount()

		existing.Date = c.Date
		existing.Amount = amount
		existing.Type = txType
		existing.Description = c.Description
		existing.ImportSource = &source
		existing.ImportedAt = &importedAt

		if c.ExternalID != "" {
			existing.ExternalID = &c.ExternalID
		}

		if err := unit.UpdateImported(ctx, existing, delta); err != nil {
			return false, err
		}

		return false, unit.Commit()
	}

	tx := &transaction.Transaction{
		UserID:       a.UserID,
		AccountID:    a.ID,
		Amount:       amount,
		Type:         txType,
		Date:         c.Date,
		Description:  c.Description,
		ImportSource: &source,
		ImportedAt:   &importedAt,
	}

	if c.ExternalID != "" {
		tx.ExternalID = &c.ExternalID
	}

	if err := unit.CreateImported(ctx, tx, c.Amount); err != nil {
		return false, err
	}

	return true, unit.Commit()
}

// match tries the external id first, then the natural key
// (date, magnitude, description).
func (s *Service) match(ctx context.Context, unit UnitTx, accountID uuid.UUID, c Candidate, amount int64) (*transaction.Transaction, error) {
	if c.ExternalID != "" {
		existing, err := unit.FindByExternalID(ctx, accountID, c.ExternalID)
		if err != nil && !errors.Is(err, transaction.ErrNotFound) {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	existing, err := unit.FindByNaturalKey(ctx, accountID, c.Date, amount, c.Description)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return existing, nil
}

// splitSigned derives magnitude and type from a signed candidate amount.
// Zero is a credit by convention.
func splitSigned(signed int64) (int64, transaction.Type) {
	if signed < 0 {
		return -signed, transaction.TypeDebit
	}

	return signed, transaction.TypeCredit
}
