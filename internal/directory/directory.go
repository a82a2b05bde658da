// Package directory resolves users and the usernames behind accounts. It is
// the user-directory collaborator of the ledger; credentials are not stored here.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/punchamoorthee/tenmo/internal/domain"
	"github.com/punchamoorthee/tenmo/internal/store"
)

var ErrUsernameTaken = errors.New("username already taken")

// AccountMatch is one hit of a username search.
type AccountMatch struct {
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
}

type Directory interface {
	Register(ctx context.Context, username string) (domain.User, error)
	UserByID(ctx context.Context, userID int64) (domain.User, error)
	UsernameForAccount(ctx context.Context, accountID int64) (string, error)
	// SearchAccounts matches usernames containing term, case-insensitively,
	// ordered by account id. Users without an account are skipped.
	SearchAccounts(ctx context.Context, term string) ([]AccountMatch, error)
}

const firstUserID = 1001

var _ Directory = (*Memory)(nil)

// Memory keeps users in process and resolves accounts through the account store.
type Memory struct {
	accounts store.Accounts

	mu     sync.RWMutex
	users  map[int64]domain.User
	byName map[string]int64
	nextID int64
}

func NewMemory(accounts store.Accounts) *Memory {
	return &Memory{
		accounts: accounts,
		users:    make(map[int64]domain.User),
		byName:   make(map[string]int64),
		nextID:   firstUserID,
	}
}

func (d *Memory) Register(_ context.Context, username string) (domain.User, error) {
	key := strings.ToLower(username)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[key]; ok {
		return domain.User{}, fmt.Errorf("%q: %w", username, ErrUsernameTaken)
	}
	u := domain.User{ID: d.nextID, Username: username}
	d.nextID++
	d.users[u.ID] = u
	d.byName[key] = u.ID
	return u, nil
}

func (d *Memory) UserByID(_ context.Context, userID int64) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (d *Memory) UsernameForAccount(ctx context.Context, accountID int64) (string, error) {
	acc, err := d.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	u, err := d.UserByID(ctx, acc.UserID)
	if err != nil {
		return "", fmt.Errorf("owner of account %d: %w", accountID, err)
	}
	return u.Username, nil
}

func (d *Memory) SearchAccounts(ctx context.Context, term string) ([]AccountMatch, error) {
	term = strings.ToLower(term)

	d.mu.RLock()
	var hits []domain.User
	for _, u := range d.users {
		if strings.Contains(strings.ToLower(u.Username), term) {
			hits = append(hits, u)
		}
	}
	d.mu.RUnlock()

	out := []AccountMatch{}
	for _, u := range hits {
		acc, err := d.accounts.GetByOwner(ctx, u.ID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, AccountMatch{AccountID: acc.ID, Username: u.Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}
