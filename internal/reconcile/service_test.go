package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmiguel/saldo/internal/account"
	"github.com/tmiguel/saldo/internal/reconcile"
	"github.com/tmiguel/saldo/internal/transaction"
)

// fakeRepo is an in-memory Repository/UnitTx. Writes apply immediately;
// Commit and Rollback are no-ops, which is fine for single-threaded tests.
type fakeRepo struct {
	accounts map[uuid.UUID]*account.Account
	txs      []*transaction.Transaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[uuid.UUID]*account.Account)}
}

func (f *fakeRepo) addAccount(userID uuid.UUID) *account.Account {
	a := &account.Account{ID: uuid.New(), UserID: userID, Name: "Checking"}
	f.accounts[a.ID] = a

	return a
}

func (f *fakeRepo) GetAccount(_ context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, account.ErrNotFound
	}

	if a.UserID != userID {
		return nil, account.ErrPermissionDenied
	}

	return a, nil
}

func (f *fakeRepo) Begin(context.Context, uuid.UUID) (reconcile.UnitTx, error) {
	return f, nil
}

func (f *fakeRepo) Commit() error   { return nil }
func (f *fakeRepo) Rollback() error { return nil }

func (f *fakeRepo) FindByExternalID(_ context.Context, accountID uuid.UUID, externalID string) (*transaction.Transaction, error) {
	for _, tx := range f.txs {
		if tx.AccountID == accountID && tx.ExternalID != nil && *tx.ExternalID == externalID {
			return tx, nil
		}
	}

	return nil, transaction.ErrNotFound
}

func (f *fakeRepo) FindByNaturalKey(_ context.Context, accountID uuid.UUID, date time.Time, amount int64, description string) (*transaction.Transaction, error) {
	for _, tx := range f.txs {
		sameDay := tx.Date.Format(time.DateOnly) == date.Format(time.DateOnly)
		if tx.AccountID == accountID && sameDay && tx.Amount == amount && tx.Description == description {
			return tx, nil
		}
	}

	return nil, transaction.ErrNotFound
}

func (f *fakeRepo) CreateImported(_ context.Context, tx *transaction.Transaction, delta int64) error {
	tx.ID = uuid.New()
	tx.CreatedAt = time.Now()
	f.txs = append(f.txs, tx)
	f.accounts[tx.AccountID].Balance += delta

	return nil
}

func (f *fakeRepo) UpdateImported(_ context.Context, tx *transaction.Transaction, delta int64) error {
	f.accounts[tx.AccountID].Balance += delta

	return nil
}

func (f *fakeRepo) rowsFor(accountID uuid.UUID) int {
	n := 0

	for _, tx := range f.txs {
		if tx.AccountID == accountID {
			n++
		}
	}

	return n
}

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestImport_CreatesRowsAndBalance(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	a := repo.addAccount(userID)
	svc := reconcile.NewService(repo)

	result, err := svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -2000, Description: "Coffee", ExternalID: "ext-1"},
		{Date: day, Amount: 150000, Description: "Salary"},
		{Date: day, Amount: 0, Description: "Fee waiver"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, int64(148000), a.Balance)

	// Derived types follow the candidate's sign; zero is a credit.
	assert.Equal(t, transaction.TypeDebit, repo.txs[0].Type)
	assert.Equal(t, int64(2000), repo.txs[0].Amount)
	assert.Equal(t, transaction.TypeCredit, repo.txs[1].Type)
	assert.Equal(t, transaction.TypeCredit, repo.txs[2].Type)
	assert.Equal(t, int64(0), repo.txs[2].Amount)
}

func TestImport_ReimportIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	a := repo.addAccount(userID)
	svc := reconcile.NewService(repo)

	batch := []reconcile.Candidate{
		{Date: day, Amount: -2000, Description: "Coffee", ExternalID: "ext-1"},
		{Date: day, Amount: -4500, Description: "Groceries"},
	}

	first, err := svc.Import(context.Background(), userID, a.ID, "csv", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, int64(-6500), a.Balance)

	second, err := svc.Import(context.Background(), userID, a.ID, "csv", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, int64(-6500), a.Balance, "re-import must apply zero net delta")
	assert.Equal(t, 2, repo.rowsFor(a.ID), "re-import must not add rows")
}

func TestImport_ExternalIDMatchAppliesCorrection(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	a := repo.addAccount(userID)
	svc := reconcile.NewService(repo)

	_, err := svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -2000, Description: "Coffee", ExternalID: "ext-1"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(-2000), a.Balance)

	// Same external id, amended amount and description: the row is
	// reconciled in place and the balance moves by the difference.
	result, err := svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -2500, Description: "Coffee (amended)", ExternalID: "ext-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, int64(-2500), a.Balance)
	assert.Equal(t, 1, repo.rowsFor(a.ID))
	assert.Equal(t, "Coffee (amended)", repo.txs[0].Description)
	assert.Equal(t, int64(2500), repo.txs[0].Amount)
}

func TestImport_SignFlipOnPairedRowRejected(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	a := repo.addAccount(userID)
	svc := reconcile.NewService(repo)

	_, err := svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -2000, Description: "Coffee", ExternalID: "ext-1"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(-2000), a.Balance)

	// The row has since been linked into a transfer pair. An amended
	// statement line flipping its sign would leave both sides of the
	// pair with the same sign, so the correction must be refused.
	pairID := uuid.New()
	repo.txs[0].IsTransfer = true
	repo.txs[0].TransferPairID = &pairID

	_, err = svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: 2000, Description: "Coffee", ExternalID: "ext-1"},
	})
	assert.ErrorIs(t, err, transaction.ErrInvalidInput)

	// The refused correction must leave the row and balance untouched.
	assert.Equal(t, transaction.TypeDebit, repo.txs[0].Type)
	assert.Equal(t, int64(2000), repo.txs[0].Amount)
	assert.Equal(t, int64(-2000), a.Balance)

	// A same-sign amendment on the paired row is still fine.
	result, err := svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -2500, Description: "Coffee", ExternalID: "ext-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, int64(-2500), a.Balance)
}

func TestImport_InBatchDuplicatesCountOnce(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	a := repo.addAccount(userID)
	svc := reconcile.NewService(repo)

	// Two identical natural keys in one batch: the first creates, the
	// second matches the first's already-committed row.
	result, err := svc.Import(context.Background(), userID, a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -2000, Description: "Coffee"},
		{Date: day, Amount: -2000, Description: "Coffee"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, int64(-2000), a.Balance)
	assert.Equal(t, 1, repo.rowsFor(a.ID))
}

func TestImport_RecordsProvenance(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	a := repo.addAccount(userID)
	svc := reconcile.NewService(repo)

	_, err := svc.Import(context.Background(), userID, a.ID, "bank-csv", []reconcile.Candidate{
		{Date: day, Amount: -2000, Description: "Coffee", ExternalID: "ext-9"},
	})
	require.NoError(t, err)

	tx := repo.txs[0]
	require.NotNil(t, tx.ImportSource)
	assert.Equal(t, "bank-csv", *tx.ImportSource)
	assert.NotNil(t, tx.ImportedAt)
	require.NotNil(t, tx.ExternalID)
	assert.Equal(t, "ext-9", *tx.ExternalID)
}

func TestImport_UnknownAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := reconcile.NewService(repo)

	_, err := svc.Import(context.Background(), uuid.New(), uuid.New(), "csv", []reconcile.Candidate{
		{Date: day, Amount: -100, Description: "x"},
	})
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestImport_ForeignAccountLooksAbsent(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	a := repo.addAccount(owner)
	svc := reconcile.NewService(repo)

	_, err := svc.Import(context.Background(), uuid.New(), a.ID, "csv", []reconcile.Candidate{
		{Date: day, Amount: -100, Description: "x"},
	})
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestImport_EmptyBatch(t *testing.T) {
	repo := newFakeRepo()
	svc := reconcile.NewService(repo)

	result, err := svc.Import(context.Background(), uuid.New(), uuid.New(), "csv", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
}
