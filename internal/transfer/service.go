package transfer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/transaction"
)

type Repository interface {
	// ListUnpaired returns the user's transactions with is_transfer false.
	ListUnpaired(ctx context.Context, userID uuid.UUID) ([]*transaction.Transaction, error)

	// PairTransactions links both rows as a transfer pair in one atomic
	// unit, re-checking under lock that both are still unpaired. It
	// returns false, without error, when the precondition no longer holds.
	PairTransactions(ctx context.Context, userID, aID, bID uuid.UUID) (bool, error)
}

// Service pairs a user's opposite-signed transactions across accounts into
// transfers. Pairing is metadata only: balances and the sign-bearing type
// are never touched.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// pairWindow is the maximum spread between the two sides of a transfer.
const pairWindow = 24 * time.Hour

type bucketKey struct {
	Day       string
	Magnitude int64
}

// Detect scans the user's unpaired transactions and greedily links matching
// pairs, first match wins. Buckets and candidates are sorted so repeated
// runs over the same data make the same choices. When accountID is set,
// only pairs with at least one side in that account are committed.
func (s *Service) Detect(ctx context.Context, userID uuid.UUID, accountID *uuid.UUID) (int, error) {
	txs, err := s.repo.ListUnpaired(ctx, userID)
	if err != nil {
		return 0, err
	}

	buckets := make(map[bucketKey][]*transaction.Transaction)

	for _, tx := range txs {
		k := bucketKey{Day: tx.Date.Format(time.DateOnly), Magnitude: tx.Amount}
		buckets[k] = append(buckets[k], tx)
	}

	keys := make([]bucketKey, 0, len(buckets))

	for k := range buckets {
		if len(buckets[k]) < 2 || k.Magnitude == 0 {
			continue
		}

		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}

		return keys[i].Magnitude < keys[j].Magnitude
	})

	// claimed tracks rows paired earlier in this run; the store re-checks
	// the same condition under lock right before committing.
	claimed := make(map[uuid.UUID]bool)
	pairs := 0

	for _, k := range keys {
		bucket := buckets[k]
		sort.Slice(bucket, func(i, j int) bool {
			if !bucket[i].Date.Equal(bucket[j].Date) {
				return bucket[i].Date.Before(bucket[j].Date)
			}

			return bucket[i].ID.String() < bucket[j].ID.String()
		})

		for i := 0; i < len(bucket); i++ {
			a := bucket[i]
			if claimed[a.ID] {
				continue
			}

			for j := i + 1; j < len(bucket); j++ {
				b := bucket[j]

				if !s.pairable(a, b, accountID, claimed) {
					continue
				}

				committed, err := s.repo.PairTransactions(ctx, userID, a.ID, b.ID)
				if err != nil {
					return pairs, err
				}

				if !committed {
					// Claimed by a concurrent run; abandoned, not retried.
					continue
				}

				claimed[a.ID] = true
				claimed[b.ID] = true
				pairs++

				break
			}
		}
	}

	return pairs, nil
}

func (s *Service) pairable(a, b *transaction.Transaction, accountID *uuid.UUID, claimed map[uuid.UUID]bool) bool {
	if claimed[b.ID] {
		return false
	}

	// A transfer crosses accounts, one side debit and one side credit.
	if a.AccountID == b.AccountID {
		return false
	}

	if (a.Type == transaction.TypeDebit) == (b.Type == transaction.TypeDebit) {
		return false
	}

	diff := a.Date.Sub(b.Date)
	if diff < 0 {
		diff = -diff
	}

	if diff > pairWindow {
		return false
	}

	if accountID != nil && a.AccountID != *accountID && b.AccountID != *accountID {
		return false
	}

	return true
}
