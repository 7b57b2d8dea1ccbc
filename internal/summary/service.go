package summary

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountSummary aggregates one account's ledger. Balance comes from the
// account row; the other figures are computed from its transactions, so a
// reader can cross-check the balance against TotalCredits - TotalDebits.
type AccountSummary struct {
	AccountID        uuid.UUID `json:"account_id"`
	Name             string    `json:"name"`
	Balance          int64     `json:"balance"`
	TransactionCount int       `json:"transaction_count"`
	TotalDebits      int64     `json:"total_debits"`
	TotalCredits     int64     `json:"total_credits"`
	TransferCount    int       `json:"transfer_count"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type Repository interface {
	AccountSummary(ctx context.Context, userID, accountID uuid.UUID) (*AccountSummary, error)
}

// Cache holds recently computed summaries. A nil Cache disables caching; the
// service treats cache failures as misses.
type Cache interface {
	Get(ctx context.Context, accountID uuid.UUID) (*AccountSummary, bool)
	Set(ctx context.Context, s *AccountSummary)
	Invalidate(ctx context.Context, accountID uuid.UUID) error
}

type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

func (s *Service) Summarize(ctx context.Context, userID, accountID uuid.UUID) (*AccountSummary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, accountID); ok {
			return cached, nil
		}
	}

	summary, err := s.repo.AccountSummary(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	summary.GeneratedAt = s.now()

	if s.cache != nil {
		s.cache.Set(ctx, summary)
	}

	return summary, nil
}

// Invalidate drops the cached summary after a write touched the account. A
// stale read after a failed invalidation only lasts until the TTL expires.
func (s *Service) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}

	return s.cache.Invalidate(ctx, accountID)
}
