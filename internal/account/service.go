package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Repository interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetOwnedAccount(ctx context.Context, userID, accountID uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]*Account, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create opens an account with a zero balance; balances only ever move
// through transaction writes.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, name string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("account name is required")
	}

	a := &Account{UserID: userID, Name: name}

	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) Get(ctx context.Context, userID, accountID uuid.UUID) (*Account, error) {
	a, err := s.repo.GetOwnedAccount(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return a, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, userID)
}
