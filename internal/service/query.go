package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/tenmo/internal/domain"
	"github.com/punchamoorthee/tenmo/internal/store"
)

// Directory resolves the display name behind an account.
type Directory interface {
	UsernameForAccount(ctx context.Context, accountID int64) (string, error)
}

// QueryService serves read-only projections of committed ledger state.
type QueryService struct {
	accounts  store.Accounts
	transfers store.Transfers
	directory Directory
}

func NewQueryService(s store.Store, directory Directory) *QueryService {
	return &QueryService{
		accounts:  s.Accounts(),
		transfers: s.Transfers(),
		directory: directory,
	}
}

func (q *QueryService) AccountOf(ctx context.Context, userID int64) (domain.Account, error) {
	return q.accounts.GetByOwner(ctx, userID)
}

func (q *QueryService) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	acc, err := q.accounts.GetByOwner(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return acc.Balance, nil
}

// HistoryFor lists every transfer touching the account in creation order,
// each tagged with its direction and the other party's username.
func (q *QueryService) HistoryFor(ctx context.Context, accountID int64) ([]domain.HistoryEntry, error) {
	if _, err := q.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	transfers, err := q.transfers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string)
	out := make([]domain.HistoryEntry, 0, len(transfers))
	for _, t := range transfers {
		entry := domain.HistoryEntry{Transfer: t, Direction: domain.DirectionIncoming}
		other := t.FromAccountID
		if t.FromAccountID == accountID {
			entry.Direction = domain.DirectionOutgoing
			other = t.ToAccountID
		}

		name, ok := names[other]
		if !ok {
			name, err = q.directory.UsernameForAccount(ctx, other)
			if err != nil {
				return nil, fmt.Errorf("counterparty of transfer %d: %w", t.ID, err)
			}
			names[other] = name
		}
		entry.Counterparty = name
		out = append(out, entry)
	}
	return out, nil
}

func (q *QueryService) Detail(ctx context.Context, transferID int64) (domain.Transfer, error) {
	return q.transfers.GetByID(ctx, transferID)
}

// PendingFor lists requests still awaiting a decision from the account's owner.
func (q *QueryService) PendingFor(ctx context.Context, accountID int64) ([]domain.Transfer, error) {
	transfers, err := q.transfers.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := []domain.Transfer{}
	for _, t := range transfers {
		if t.Type == domain.TransferTypeRequest && t.Status == domain.TransferStatusPending && t.FromAccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}
