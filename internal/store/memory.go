package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

const (
	firstAccountID  = 2001
	firstTransferID = 3001
)

// ErrDuplicateAccount is returned when a user already owns an account.
var ErrDuplicateAccount = errors.New("user already has an account")

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps accounts and transfers in key-indexed maps guarded by a
// single RWMutex. Units of work hold the write lock, readers the read lock, so a
// reader only ever sees fully applied units.
type MemoryStore struct {
	mu sync.RWMutex

	accounts  map[int64]domain.Account
	byOwner   map[int64]int64
	transfers map[int64]domain.Transfer
	// transfer ids per account in creation order
	byAccount map[int64][]int64

	nextAccountID  int64
	nextTransferID int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:       make(map[int64]domain.Account),
		byOwner:        make(map[int64]int64),
		transfers:      make(map[int64]domain.Transfer),
		byAccount:      make(map[int64][]int64),
		nextAccountID:  firstAccountID,
		nextTransferID: firstTransferID,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Accounts() Accounts   { return &memAccounts{s: s} }
func (s *MemoryStore) Transfers() Transfers { return &memTransfers{s: s} }

func (s *MemoryStore) Atomic(ctx context.Context, _ []int64, fn func(Accounts, Transfers) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	err := fn(&memAccounts{s: s, j: j}, &memTransfers{s: s, j: j})
	if err != nil {
		j.rollback()
		return err
	}
	return nil
}

// journal collects undo steps for the unit in progress.
type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	if j != nil {
		j.undo = append(j.undo, fn)
	}
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// memAccounts takes the store lock per call when j is nil; inside a unit of
// work the lock is already held and writes are journaled instead.
type memAccounts struct {
	s *MemoryStore
	j *journal
}

func (a *memAccounts) lock() func() {
	if a.j != nil {
		return func() {}
	}
	a.s.mu.Lock()
	return a.s.mu.Unlock
}

func (a *memAccounts) rlock() func() {
	if a.j != nil {
		return func() {}
	}
	a.s.mu.RLock()
	return a.s.mu.RUnlock
}

func (a *memAccounts) Create(_ context.Context, userID int64, opening decimal.Decimal) (domain.Account, error) {
	if !domain.ValidBalance(opening) {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	defer a.lock()()
	s := a.s
	if _, ok := s.byOwner[userID]; ok {
		return domain.Account{}, fmt.Errorf("user %d: %w", userID, ErrDuplicateAccount)
	}

	acc := domain.Account{ID: s.nextAccountID, UserID: userID, Balance: opening}
	s.nextAccountID++
	s.accounts[acc.ID] = acc
	s.byOwner[userID] = acc.ID
	a.j.record(func() {
		delete(s.accounts, acc.ID)
		delete(s.byOwner, userID)
	})
	return acc, nil
}

func (a *memAccounts) GetByID(_ context.Context, id int64) (domain.Account, error) {
	defer a.rlock()()
	acc, ok := a.s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acc, nil
}

func (a *memAccounts) GetByOwner(_ context.Context, userID int64) (domain.Account, error) {
	defer a.rlock()()
	id, ok := a.s.byOwner[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return a.s.accounts[id], nil
}

func (a *memAccounts) ApplyDelta(_ context.Context, id int64, delta decimal.Decimal) (domain.Account, error) {
	defer a.lock()()
	s := a.s
	acc, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return acc, domain.ErrInsufficientFunds
	}

	prev := acc.Balance
	acc.Balance = next
	s.accounts[id] = acc
	a.j.record(func() {
		restored := s.accounts[id]
		restored.Balance = prev
		s.accounts[id] = restored
	})
	return acc, nil
}

type memTransfers struct {
	s *MemoryStore
	j *journal
}

func (t *memTransfers) lock() func() {
	if t.j != nil {
		return func() {}
	}
	t.s.mu.Lock()
	return t.s.mu.Unlock
}

func (t *memTransfers) rlock() func() {
	if t.j != nil {
		return func() {}
	}
	t.s.mu.RLock()
	return t.s.mu.RUnlock
}

func (t *memTransfers) Create(_ context.Context, tr domain.Transfer) (int64, error) {
	defer t.lock()()
	s := t.s

	// ids are never handed out twice, even when the unit is rolled back
	tr.ID = s.nextTransferID
	s.nextTransferID++
	tr.CreatedAt = s.now()

	s.transfers[tr.ID] = tr
	s.byAccount[tr.FromAccountID] = append(s.byAccount[tr.FromAccountID], tr.ID)
	s.byAccount[tr.ToAccountID] = append(s.byAccount[tr.ToAccountID], tr.ID)
	t.j.record(func() {
		delete(s.transfers, tr.ID)
		s.byAccount[tr.FromAccountID] = dropLast(s.byAccount[tr.FromAccountID], tr.ID)
		s.byAccount[tr.ToAccountID] = dropLast(s.byAccount[tr.ToAccountID], tr.ID)
	})
	return tr.ID, nil
}

func (t *memTransfers) GetByID(_ context.Context, id int64) (domain.Transfer, error) {
	defer t.rlock()()
	tr, ok := t.s.transfers[id]
	if !ok {
		return domain.Transfer{}, domain.ErrNotFound
	}
	return tr, nil
}

func (t *memTransfers) ListByAccount(_ context.Context, accountID int64) ([]domain.Transfer, error) {
	defer t.rlock()()
	ids := t.s.byAccount[accountID]
	out := make([]domain.Transfer, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.s.transfers[id])
	}
	return out, nil
}

func (t *memTransfers) UpdateStatus(_ context.Context, id int64, status domain.TransferStatus) error {
	defer t.lock()()
	s := t.s
	tr, ok := s.transfers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := checkTransition(tr.Status, status); err != nil {
		return fmt.Errorf("transfer %d %s -> %s: %w", id, tr.Status, status, err)
	}

	prev := tr.Status
	tr.Status = status
	s.transfers[id] = tr
	t.j.record(func() {
		restored := s.transfers[id]
		restored.Status = prev
		s.transfers[id] = restored
	})
	return nil
}

func dropLast(ids []int64, id int64) []int64 {
	if n := len(ids); n > 0 && ids[n-1] == id {
		return ids[:n-1]
	}
	return ids
}
