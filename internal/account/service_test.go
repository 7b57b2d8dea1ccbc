package account_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmiguel/saldo/internal/account"
)

type fakeRepo struct {
	accounts map[uuid.UUID]*account.Account
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[uuid.UUID]*account.Account)}
}

func (f *fakeRepo) CreateAccount(_ context.Context, a *account.Account) error {
	a.ID = uuid.New()
	f.accounts[a.ID] = a

	return nil
}

func (f *fakeRepo) GetOwnedAccount(_ context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, account.ErrNotFound
	}

	if a.UserID != userID {
		return nil, account.ErrPermissionDenied
	}

	return a, nil
}

func (f *fakeRepo) ListAccounts(_ context.Context, userID uuid.UUID) ([]*account.Account, error) {
	var out []*account.Account

	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}

	return out, nil
}

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	svc := account.NewService(repo)
	userID := uuid.New()

	a, err := svc.Create(context.Background(), userID, "  Checking  ")
	require.NoError(t, err)
	assert.Equal(t, "Checking", a.Name)
	assert.Equal(t, int64(0), a.Balance, "new accounts always open at zero")
	assert.NotEqual(t, uuid.Nil, a.ID)
}

func TestService_Create_EmptyName(t *testing.T) {
	svc := account.NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), uuid.New(), "   ")
	assert.Error(t, err)
}

func TestService_Get_ForeignAccountLooksAbsent(t *testing.T) {
	repo := newFakeRepo()
	svc := account.NewService(repo)

	owner := uuid.New()
	a, err := svc.Create(context.Background(), owner, "Savings")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), a.ID)
	assert.ErrorIs(t, err, account.ErrNotFound)

	got, err := svc.Get(context.Background(), owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}
