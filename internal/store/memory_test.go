package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMemoryAccounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	accounts := s.Accounts()

	alice, err := accounts.Create(ctx, 1001, dec("100.00"))
	require.NoError(t, err)
	require.EqualValues(t, 2001, alice.ID)

	bob, err := accounts.Create(ctx, 1002, decimal.Zero)
	require.NoError(t, err)
	require.EqualValues(t, 2002, bob.ID)

	got, err := accounts.GetByOwner(ctx, 1001)
	require.NoError(t, err)
	require.Equal(t, alice, got)

	got, err = accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.IsZero())

	_, err = accounts.Create(ctx, 1001, decimal.Zero)
	require.ErrorIs(t, err, ErrDuplicateAccount)

	_, err = accounts.Create(ctx, 1003, dec("-1"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = accounts.GetByID(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = accounts.GetByOwner(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMemoryApplyDelta(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryStore().Accounts()
	acc, err := accounts.Create(ctx, 1001, dec("10.00"))
	require.NoError(t, err)

	updated, err := accounts.ApplyDelta(ctx, acc.ID, dec("5.25"))
	require.NoError(t, err)
	require.True(t, updated.Balance.Equal(dec("15.25")))

	_, err = accounts.ApplyDelta(ctx, acc.ID, dec("-15.26"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	got, err := accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(dec("15.25")), "failed debit must not change the balance")

	updated, err = accounts.ApplyDelta(ctx, acc.ID, dec("-15.25"))
	require.NoError(t, err)
	require.True(t, updated.Balance.IsZero())

	_, err = accounts.ApplyDelta(ctx, 9999, dec("1"))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestMemoryTransfers(t *testing.T) {
	ctx := context.Background()
	transfers := NewMemoryStore().Transfers()

	send := domain.Transfer{
		Type:          domain.TransferTypeSend,
		Status:        domain.TransferStatusApproved,
		FromAccountID: 2001,
		ToAccountID:   2002,
		Amount:        dec("10.00"),
	}
	first, err := transfers.Create(ctx, send)
	require.NoError(t, err)
	require.EqualValues(t, 3001, first)

	back := send
	back.FromAccountID, back.ToAccountID = 2002, 2001
	second, err := transfers.Create(ctx, back)
	require.NoError(t, err)
	require.Greater(t, second, first)

	other := send
	other.FromAccountID, other.ToAccountID = 2003, 2004
	_, err = transfers.Create(ctx, other)
	require.NoError(t, err)

	got, err := transfers.GetByID(ctx, first)
	require.NoError(t, err)
	require.Equal(t, first, got.ID)
	require.False(t, got.CreatedAt.IsZero())
	require.True(t, got.Amount.Equal(send.Amount))

	list, err := transfers.ListByAccount(ctx, 2001)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first, list[0].ID)
	require.Equal(t, second, list[1].ID)

	list, err = transfers.ListByAccount(ctx, 4242)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)

	_, err = transfers.GetByID(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	transfers := NewMemoryStore().Transfers()

	id, err := transfers.Create(ctx, domain.Transfer{
		Type:          domain.TransferTypeRequest,
		Status:        domain.TransferStatusPending,
		FromAccountID: 2001,
		ToAccountID:   2002,
		Amount:        dec("3.00"),
	})
	require.NoError(t, err)

	require.ErrorIs(t, transfers.UpdateStatus(ctx, id, domain.TransferStatusPending), domain.ErrInvalidTransition)
	require.NoError(t, transfers.UpdateStatus(ctx, id, domain.TransferStatusApproved))
	require.ErrorIs(t, transfers.UpdateStatus(ctx, id, domain.TransferStatusRejected), domain.ErrInvalidTransition)

	got, err := transfers.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.TransferStatusApproved, got.Status)

	require.ErrorIs(t, transfers.UpdateStatus(ctx, 1, domain.TransferStatusApproved), domain.ErrNotFound)
}

func TestMemoryAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	acc, err := s.Accounts().Create(ctx, 1001, dec("50.00"))
	require.NoError(t, err)

	boom := errors.New("boom")
	var discarded int64
	err = s.Atomic(ctx, []int64{acc.ID}, func(accounts Accounts, transfers Transfers) error {
		if _, err := accounts.ApplyDelta(ctx, acc.ID, dec("-20.00")); err != nil {
			return err
		}
		id, err := transfers.Create(ctx, domain.Transfer{
			Type:          domain.TransferTypeSend,
			Status:        domain.TransferStatusApproved,
			FromAccountID: acc.ID,
			ToAccountID:   2999,
			Amount:        dec("20.00"),
		})
		discarded = id
		if err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Accounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(dec("50.00")))

	_, err = s.Transfers().GetByID(ctx, discarded)
	require.ErrorIs(t, err, domain.ErrNotFound)
	list, err := s.Transfers().ListByAccount(ctx, acc.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	// the discarded id is not handed out again
	next, err := s.Transfers().Create(ctx, domain.Transfer{
		Type:          domain.TransferTypeSend,
		Status:        domain.TransferStatusApproved,
		FromAccountID: acc.ID,
		ToAccountID:   2999,
		Amount:        dec("1.00"),
	})
	require.NoError(t, err)
	require.Greater(t, next, discarded)
}

func TestMemoryAtomicHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemoryStore().Atomic(ctx, nil, func(Accounts, Transfers) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}
