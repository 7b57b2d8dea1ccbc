package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmiguel/saldo/internal/transaction"
	"github.com/tmiguel/saldo/internal/transfer"
)

var day = time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

// fakeRepo keeps transactions in memory and applies pairing the way the SQL
// store does: both sides re-checked, then linked symmetrically.
type fakeRepo struct {
	txs map[uuid.UUID]*transaction.Transaction

	// pairRefusals forces PairTransactions to report a lost race for the
	// given ids, simulating a concurrent run claiming a row.
	pairRefusals map[uuid.UUID]bool

	pairCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		txs:          make(map[uuid.UUID]*transaction.Transaction),
		pairRefusals: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) add(userID, accountID uuid.UUID, amount int64, txType transaction.Type, date time.Time) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		AccountID: accountID,
		Amount:    amount,
		Type:      txType,
		Date:      date,
	}
	f.txs[tx.ID] = tx

	return tx
}

func (f *fakeRepo) ListUnpaired(_ context.Context, userID uuid.UUID) ([]*transaction.Transaction, error) {
	var out []*transaction.Transaction

	for _, tx := range f.txs {
		if tx.UserID == userID && !tx.IsTransfer {
			out = append(out, tx)
		}
	}

	return out, nil
}

func (f *fakeRepo) PairTransactions(_ context.Context, userID, aID, bID uuid.UUID) (bool, error) {
	f.pairCalls++

	if f.pairRefusals[aID] || f.pairRefusals[bID] {
		return false, nil
	}

	a, b := f.txs[aID], f.txs[bID]
	if a == nil || b == nil || a.UserID != userID || b.UserID != userID {
		return false, nil
	}

	if a.IsTransfer || b.IsTransfer {
		return false, nil
	}

	a.IsTransfer, b.IsTransfer = true, true
	a.TransferPairID, b.TransferPairID = &b.ID, &a.ID

	return true, nil
}

func TestDetect_PairsDebitWithCredit(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	accountA, accountB := uuid.New(), uuid.New()

	debit := repo.add(userID, accountA, 5000, transaction.TypeDebit, day)
	credit := repo.add(userID, accountB, 5000, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pairs)

	// Symmetric links, both flagged, sign-bearing types untouched.
	require.NotNil(t, debit.TransferPairID)
	require.NotNil(t, credit.TransferPairID)
	assert.Equal(t, credit.ID, *debit.TransferPairID)
	assert.Equal(t, debit.ID, *credit.TransferPairID)
	assert.True(t, debit.IsTransfer)
	assert.True(t, credit.IsTransfer)
	assert.Equal(t, transaction.TypeDebit, debit.Type)
	assert.Equal(t, transaction.TypeCredit, credit.Type)
	assert.Equal(t, int64(-5000), debit.SignedAmount())
	assert.Equal(t, int64(5000), credit.SignedAmount())
}

func TestDetect_SecondRunFindsNothing(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)
	repo.add(userID, uuid.New(), 5000, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, pairs)

	pairs, err = svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs, "already-paired rows must never be re-paired")
}

func TestDetect_RejectsSameAccount(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	accountA := uuid.New()

	repo.add(userID, accountA, 5000, transaction.TypeDebit, day)
	repo.add(userID, accountA, 5000, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs)
}

func TestDetect_RejectsSameSign(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)
	repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs)
}

func TestDetect_DifferentMagnitudesNeverMeet(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)
	repo.add(userID, uuid.New(), 5001, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs)
}

func TestDetect_ZeroAmountsAreNotTransfers(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	repo.add(userID, uuid.New(), 0, transaction.TypeDebit, day)
	repo.add(userID, uuid.New(), 0, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs)
}

func TestDetect_ThreeCandidatesYieldOnePair(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)
	repo.add(userID, uuid.New(), 5000, transaction.TypeCredit, day)
	repo.add(userID, uuid.New(), 5000, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pairs, "greedy first match: one debit can claim only one credit")

	paired := 0

	for _, tx := range repo.txs {
		if tx.IsTransfer {
			paired++
		}
	}

	assert.Equal(t, 2, paired)
}

func TestDetect_AccountScopeLimitsPairs(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	accountA, accountB := uuid.New(), uuid.New()
	accountC, accountD := uuid.New(), uuid.New()

	repo.add(userID, accountA, 5000, transaction.TypeDebit, day)
	repo.add(userID, accountB, 5000, transaction.TypeCredit, day)
	// Unrelated pair on a different day so it cannot join A/B's bucket.
	otherDay := day.AddDate(0, 0, 7)
	repo.add(userID, accountC, 7000, transaction.TypeDebit, otherDay)
	repo.add(userID, accountD, 7000, transaction.TypeCredit, otherDay)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, &accountA)
	require.NoError(t, err)
	assert.Equal(t, 1, pairs, "only the pair touching the scoped account commits")
}

func TestDetect_LostRaceIsAbandonedNotRetried(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	debit := repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)
	repo.add(userID, uuid.New(), 5000, transaction.TypeCredit, day)
	repo.pairRefusals[debit.ID] = true

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs)
	assert.Equal(t, 1, repo.pairCalls, "a refused pair must not be retried within the run")
}

func TestDetect_IgnoresOtherUsers(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()

	repo.add(userID, uuid.New(), 5000, transaction.TypeDebit, day)
	repo.add(uuid.New(), uuid.New(), 5000, transaction.TypeCredit, day)

	svc := transfer.NewService(repo)

	pairs, err := svc.Detect(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pairs)
}
