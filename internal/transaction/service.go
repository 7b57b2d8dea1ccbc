package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error)
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, int, error)

	// CreateTransaction inserts the row and applies delta to its account
	// in one atomic unit.
	CreateTransaction(ctx context.Context, tx *Transaction, delta int64) error

	// UpdateTransaction persists the row and applies every adjustment in
	// one atomic unit. A failure partway rolls back the whole unit.
	UpdateTransaction(ctx context.Context, tx *Transaction, adjustments []BalanceAdjustment) error

	// DeleteTransaction removes the row, unlinks partner (when non-nil)
	// back to an unpaired state, and applies the adjustments, atomically.
	DeleteTransaction(ctx context.Context, tx, partner *Transaction, adjustments []BalanceAdjustment) error
}

// BalanceAdjustment is one balance delta to apply inside the same atomic
// unit as the row write that implies it.
type BalanceAdjustment struct {
	AccountID uuid.UUID
	Delta     int64
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	AccountID   uuid.UUID
	Amount      int64
	Type        Type
	Date        time.Time
	Description string
	Notes       string
	Tags        []string
	CategoryID  *uuid.UUID
}

// UpdatePatch carries the fields to change; nil means leave untouched.
// A non-nil CategoryID of uuid.Nil clears the category.
type UpdatePatch struct {
	AccountID   *uuid.UUID
	Amount      *int64
	Type        *Type
	Date        *time.Time
	Description *string
	Notes       *string
	Tags        *[]string
	CategoryID  *uuid.UUID
}

type ListFilter struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Type       *Type
	IsTransfer *bool
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Transaction, error) {
	if err := validateAmountType(params.Amount, params.Type); err != nil {
		return nil, err
	}

	if params.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if _, err := s.ownedAccount(ctx, userID, params.AccountID); err != nil {
		return nil, err
	}

	tx := &Transaction{
		UserID:      userID,
		AccountID:   params.AccountID,
		Amount:      params.Amount,
		Type:        params.Type,
		Date:        params.Date,
		Description: params.Description,
		Notes:       params.Notes,
		Tags:        params.Tags,
		CategoryID:  params.CategoryID,
	}

	if err := s.repo.CreateTransaction(ctx, tx, tx.SignedAmount()); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, patch UpdatePatch) (*Transaction, error) {
	existing, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	applyPatch(&updated, patch)

	if err := validateAmountType(updated.Amount, updated.Type); err != nil {
		return nil, err
	}

	if updated.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	// A linked pair always has one debit and one credit side. Flipping the
	// type of one side would leave both rows with the same sign, so a paired
	// row's direction is frozen until the pair is unlinked.
	if existing.IsTransfer && updated.Type != existing.Type {
		return nil, fmt.Errorf("%w: cannot change the type of a transfer-paired transaction", ErrInvalidInput)
	}

	adjustments, err := s.balanceAdjustments(ctx, userID, existing, &updated)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, &updated, adjustments); err != nil {
		return nil, err
	}

	return &updated, nil
}

// balanceAdjustments computes the deltas an update implies. An unchanged
// signed amount on an unchanged account yields none, so a no-op patch never
// touches the balance.
func (s *Service) balanceAdjustments(ctx context.Context, userID uuid.UUID, existing, updated *Transaction) ([]BalanceAdjustment, error) {
	oldSigned := existing.SignedAmount()
	newSigned := updated.SignedAmount()

	if updated.AccountID == existing.AccountID {
		if newSigned == oldSigned {
			return nil, nil
		}

		return []BalanceAdjustment{
			{AccountID: existing.AccountID, Delta: newSigned - oldSigned},
		}, nil
	}

	if _, err := s.ownedAccount(ctx, userID, updated.AccountID); err != nil {
		return nil, err
	}

	// A transfer pair must stay on two different accounts.
	if existing.IsTransfer && existing.TransferPairID != nil {
		partner, err := s.repo.GetTransaction(ctx, userID, *existing.TransferPairID)
		if err != nil {
			return nil, err
		}

		if partner.AccountID == updated.AccountID {
			return nil, fmt.Errorf("%w: cannot move onto the transfer partner's account", ErrInvalidInput)
		}
	}

	return []BalanceAdjustment{
		{AccountID: existing.AccountID, Delta: -oldSigned},
		{AccountID: updated.AccountID, Delta: newSigned},
	}, nil
}

// Delete removes the row and reverses its own balance impact. A transfer
// partner is unlinked back to a plain unpaired transaction; the partner's
// balance impact is untouched since its row survives.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	var partner *Transaction

	if existing.IsTransfer && existing.TransferPairID != nil {
		partner, err = s.repo.GetTransaction(ctx, userID, *existing.TransferPairID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: transfer pair %s is dangling", ErrConsistency, *existing.TransferPairID)
			}

			return err
		}
	}

	adjustments := []BalanceAdjustment{
		{AccountID: existing.AccountID, Delta: -existing.SignedAmount()},
	}

	return s.repo.DeleteTransaction(ctx, existing, partner, adjustments)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// "transfer" is a filter alias: it selects paired rows of either type.
	if filter.Type != nil && *filter.Type == TypeTransfer {
		filter.Type = nil
		filter.IsTransfer = new(true)
	}

	return s.repo.ListTransactions(ctx, userID, filter)
}

// ownedAccount resolves an account for the user, conflating "absent" and
// "owned by someone else" so account existence never leaks across users.
func (s *Service) ownedAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	a, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, account.ErrPermissionDenied) {
			return nil, account.ErrNotFound
		}

		return nil, err
	}

	return a, nil
}

func validateAmountType(amount int64, t Type) error {
	if amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	if t != TypeDebit && t != TypeCredit {
		return fmt.Errorf("%w: type must be debit or credit", ErrInvalidInput)
	}

	return nil
}

func applyPatch(tx *Transaction, patch UpdatePatch) {
	if patch.AccountID != nil {
		tx.AccountID = *patch.AccountID
	}

	if patch.Amount != nil {
		tx.Amount = *patch.Amount
	}

	if patch.Type != nil {
		tx.Type = *patch.Type
	}

	if patch.Date != nil {
		tx.Date = *patch.Date
	}

	if patch.Description != nil {
		tx.Description = *patch.Description
	}

	if patch.Notes != nil {
		tx.Notes = *patch.Notes
	}

	if patch.Tags != nil {
		tx.Tags = *patch.Tags
	}

	if patch.CategoryID != nil {
		if *patch.CategoryID == uuid.Nil {
			tx.CategoryID = nil
		} else {
			tx.CategoryID = patch.CategoryID
		}
	}
}
