package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/tenmo/internal/domain"
	"github.com/punchamoorthee/tenmo/internal/store"
)

var ledgerOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tenmo_ledger_transfers_total",
	Help: "Ledger operations processed, labeled by operation and outcome",
}, []string{"operation", "outcome"})

// TransferLedger is the only writer of balances. Every balance change it makes
// runs inside one store unit of work together with the transfer record.
type TransferLedger struct {
	store  store.Store
	logger *zap.Logger
}

func NewTransferLedger(s store.Store, logger *zap.Logger) *TransferLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferLedger{store: s, logger: logger.Named("ledger")}
}

// SendFunds moves amount from one account to another and records an approved
// Send transfer. On any failure both balances are left as they were.
func (l *TransferLedger) SendFunds(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (domain.Transfer, error) {
	var out domain.Transfer
	err := validate(fromID, toID, amount)
	if err == nil {
		err = l.store.Atomic(ctx, []int64{fromID, toID}, func(accounts store.Accounts, transfers store.Transfers) error {
			if err := requireAccounts(ctx, accounts, fromID, toID); err != nil {
				return err
			}
			if err := move(ctx, accounts, fromID, toID, amount); err != nil {
				return err
			}

			t, err := record(ctx, transfers, domain.Transfer{
				Type:          domain.TransferTypeSend,
				Status:        domain.TransferStatusApproved,
				FromAccountID: fromID,
				ToAccountID:   toID,
				Amount:        amount,
			})
			if err != nil {
				return errors.Join(err, move(ctx, accounts, toID, fromID, amount))
			}
			out = t
			return nil
		})
	}

	l.observe("send", err)
	if err != nil {
		l.logger.Debug("send rejected",
			zap.Int64("from", fromID), zap.Int64("to", toID),
			zap.Stringer("amount", amount), zap.Error(err))
		return domain.Transfer{}, err
	}

	l.logger.Debug("send settled",
		zap.Int64("transfer_id", out.ID), zap.Int64("from", fromID), zap.Int64("to", toID),
		zap.Stringer("amount", amount))
	return out, nil
}

// RequestFunds records a pending Request asking payerID to pay requesterID.
// Balances are untouched until the request is approved.
func (l *TransferLedger) RequestFunds(ctx context.Context, requesterID, payerID int64, amount decimal.Decimal) (domain.Transfer, error) {
	var out domain.Transfer
	err := validate(payerID, requesterID, amount)
	if err == nil {
		err = l.store.Atomic(ctx, []int64{payerID, requesterID}, func(accounts store.Accounts, transfers store.Transfers) error {
			if err := requireAccounts(ctx, accounts, payerID, requesterID); err != nil {
				return err
			}
			t, err := record(ctx, transfers, domain.Transfer{
				Type:          domain.TransferTypeRequest,
				Status:        domain.TransferStatusPending,
				FromAccountID: payerID,
				ToAccountID:   requesterID,
				Amount:        amount,
			})
			out = t
			return err
		})
	}

	l.observe("request", err)
	if err != nil {
		return domain.Transfer{}, err
	}
	l.logger.Debug("request recorded", zap.Int64("transfer_id", out.ID))
	return out, nil
}

// ApproveRequest settles a pending Request: the payer is debited, the
// requester credited and the request marked Approved, all in one unit. A
// request the payer cannot cover stays Pending.
func (l *TransferLedger) ApproveRequest(ctx context.Context, transferID int64) (domain.Transfer, error) {
	out, err := l.resolve(ctx, transferID, func(accounts store.Accounts, transfers store.Transfers, t domain.Transfer) error {
		if err := move(ctx, accounts, t.FromAccountID, t.ToAccountID, t.Amount); err != nil {
			return err
		}
		if err := transfers.UpdateStatus(ctx, t.ID, domain.TransferStatusApproved); err != nil {
			return errors.Join(err, move(ctx, accounts, t.ToAccountID, t.FromAccountID, t.Amount))
		}
		return nil
	})
	l.observe("approve", err)
	return out, err
}

// RejectRequest closes a pending Request without moving funds.
func (l *TransferLedger) RejectRequest(ctx context.Context, transferID int64) (domain.Transfer, error) {
	out, err := l.resolve(ctx, transferID, func(_ store.Accounts, transfers store.Transfers, t domain.Transfer) error {
		return transfers.UpdateStatus(ctx, t.ID, domain.TransferStatusRejected)
	})
	l.observe("reject", err)
	return out, err
}

// resolve runs fn against a pending Request inside a unit of work locking both
// parties, then returns the transfer as committed.
func (l *TransferLedger) resolve(
	ctx context.Context,
	transferID int64,
	fn func(store.Accounts, store.Transfers, domain.Transfer) error,
) (domain.Transfer, error) {
	// parties never change, so they can be read before the unit to pick locks
	t, err := l.store.Transfers().GetByID(ctx, transferID)
	if err != nil {
		return domain.Transfer{}, err
	}

	var out domain.Transfer
	err = l.store.Atomic(ctx, []int64{t.FromAccountID, t.ToAccountID}, func(accounts store.Accounts, transfers store.Transfers) error {
		current, err := transfers.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if current.Type != domain.TransferTypeRequest || current.Status != domain.TransferStatusPending {
			return fmt.Errorf("transfer %d is a %s in state %s: %w",
				current.ID, current.Type, current.Status, domain.ErrInvalidTransition)
		}
		if err := fn(accounts, transfers, current); err != nil {
			return err
		}
		out, err = transfers.GetByID(ctx, transferID)
		return err
	})
	if err != nil {
		return domain.Transfer{}, err
	}

	l.logger.Debug("request resolved", zap.Int64("transfer_id", out.ID), zap.Stringer("status", out.Status))
	return out, nil
}

func (l *TransferLedger) observe(operation string, err error) {
	ledgerOpsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func validate(fromID, toID int64, amount decimal.Decimal) error {
	if !domain.ValidAmount(amount) {
		return domain.ErrInvalidAmount
	}
	if fromID == toID {
		return domain.ErrSelfTransferNotAllowed
	}
	return nil
}

func requireAccounts(ctx context.Context, accounts store.Accounts, ids ...int64) error {
	for _, id := range ids {
		if _, err := accounts.GetByID(ctx, id); err != nil {
			return fmt.Errorf("account %d: %w", id, err)
		}
	}
	return nil
}

// move debits fromID then credits toID. If the credit fails the debit is
// restored before the error is returned, so the pair is all-or-nothing.
func move(ctx context.Context, accounts store.Accounts, fromID, toID int64, amount decimal.Decimal) error {
	if _, err := accounts.ApplyDelta(ctx, fromID, amount.Neg()); err != nil {
		return fmt.Errorf("debit account %d: %w", fromID, err)
	}

	if _, err := accounts.ApplyDelta(ctx, toID, amount); err != nil {
		creditErr := fmt.Errorf("credit account %d: %w", toID, err)
		if _, undoErr := accounts.ApplyDelta(ctx, fromID, amount); undoErr != nil {
			return errors.Join(creditErr, fmt.Errorf("restore account %d: %w", fromID, undoErr))
		}
		return creditErr
	}
	return nil
}

func record(ctx context.Context, transfers store.Transfers, t domain.Transfer) (domain.Transfer, error) {
	id, err := transfers.Create(ctx, t)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("record transfer: %w", err)
	}
	stored, err := transfers.GetByID(ctx, id)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("read back transfer %d: %w", id, err)
	}
	return stored, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrSelfTransferNotAllowed):
		return "self_transfer"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
