package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("account not found")

	// ErrPermissionDenied means the account exists but belongs to another
	// user. Services normalize it to ErrNotFound before it leaves the API
	// boundary so account existence never leaks.
	ErrPermissionDenied = errors.New("account permission denied")
)

// Account holds a cached balance in cents. The balance is derived state: it
// always equals the sum of the account's signed transaction amounts, and
// every mutation happens inside the same atomic unit as the row write that
// implies it.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt *time.Time
}
