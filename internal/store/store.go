package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

// ErrConflict is returned when the backend aborts a unit of work because of a
// concurrent one. The unit had no effect and may be resubmitted by the caller.
var ErrConflict = errors.New("concurrent update conflict")

// Accounts holds account balances keyed by account id.
type Accounts interface {
	Create(ctx context.Context, userID int64, opening decimal.Decimal) (domain.Account, error)
	GetByID(ctx context.Context, id int64) (domain.Account, error)
	GetByOwner(ctx context.Context, userID int64) (domain.Account, error)
	// ApplyDelta is the only way a balance changes. A negative delta that would
	// take the balance below zero fails with domain.ErrInsufficientFunds and
	// leaves the account untouched.
	ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (domain.Account, error)
}

// Transfers holds transfer records keyed by transfer id.
type Transfers interface {
	Create(ctx context.Context, t domain.Transfer) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Transfer, error)
	// ListByAccount returns transfers where the account is either party,
	// oldest first.
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Transfer, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TransferStatus) error
}

// Store is the unit-of-work boundary shared by the ledger and its readers.
type Store interface {
	Accounts() Accounts
	Transfers() Transfers
	// Atomic runs fn as one serializable unit with respect to every other
	// operation on the listed accounts. When fn returns an error none of its
	// writes become visible.
	Atomic(ctx context.Context, accountIDs []int64, fn func(Accounts, Transfers) error) error
}

// checkTransition enforces the Pending -> {Approved, Rejected} state machine.
func checkTransition(from, to domain.TransferStatus) error {
	if from != domain.TransferStatusPending {
		return domain.ErrInvalidTransition
	}
	if to != domain.TransferStatusApproved && to != domain.TransferStatusRejected {
		return domain.ErrInvalidTransition
	}
	return nil
}
