package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	Db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{Db: pool}, nil
}

func (s *PostgresStore) Close() {
	s.Db.Close()
}

func (s *PostgresStore) Accounts() Accounts   { return &pgAccounts{q: s.Db} }
func (s *PostgresStore) Transfers() Transfers { return &pgTransfers{q: s.Db} }

// Atomic runs fn inside one transaction. The listed account rows are locked in
// ascending id order before fn runs, so two units sharing accounts serialize
// and can never deadlock on each other.
func (s *PostgresStore) Atomic(ctx context.Context, accountIDs []int64, fn func(Accounts, Transfers) error) error {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	for _, id := range ids {
		var locked int64
		err := tx.QueryRow(ctx, "SELECT account_id FROM account WHERE account_id = $1 FOR UPDATE", id).Scan(&locked)
		// missing rows are reported by fn through GetByID
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return classify(fmt.Errorf("lock acquisition failed: %w", err))
		}
	}

	if err := fn(&pgAccounts{q: tx}, &pgTransfers{q: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("tx commit failed: %w", err))
	}
	return nil
}

// classify maps aborts caused by concurrent transactions onto ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

type pgAccounts struct {
	q querier
}

const accountColumns = "account_id, user_id, balance::text"

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		acc     domain.Account
		balance string
	)
	if err := row.Scan(&acc.ID, &acc.UserID, &balance); err != nil {
		return domain.Account{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parsing balance of account %d: %w", acc.ID, err)
	}
	acc.Balance = b
	return acc, nil
}

func (a *pgAccounts) Create(ctx context.Context, userID int64, opening decimal.Decimal) (domain.Account, error) {
	if !domain.ValidBalance(opening) {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	acc, err := scanAccount(a.q.QueryRow(ctx,
		"INSERT INTO account (user_id, balance) VALUES ($1, $2::numeric) RETURNING "+accountColumns,
		userID, opening.String(),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Account{}, fmt.Errorf("user %d: %w", userID, ErrDuplicateAccount)
		}
		return domain.Account{}, fmt.Errorf("account insert failed: %w", err)
	}
	return acc, nil
}

func (a *pgAccounts) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	acc, err := scanAccount(a.q.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM account WHERE account_id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acc, err
}

func (a *pgAccounts) GetByOwner(ctx context.Context, userID int64) (domain.Account, error) {
	acc, err := scanAccount(a.q.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM account WHERE user_id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acc, err
}

func (a *pgAccounts) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (domain.Account, error) {
	acc, err := scanAccount(a.q.QueryRow(ctx,
		`UPDATE account SET balance = balance + $2::numeric
		 WHERE account_id = $1 AND balance + $2::numeric >= 0
		 RETURNING `+accountColumns,
		id, delta.String(),
	))
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("balance update failed: %w", err)
	}

	// no row matched: either the account is missing or the guard rejected it
	current, err := a.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	return current, domain.ErrInsufficientFunds
}

type pgTransfers struct {
	q querier
}

const transferColumns = "transfer_id, transfer_type_id, transfer_status_id, account_from, account_to, amount::text, created_at"

func scanTransfer(row pgx.Row) (domain.Transfer, error) {
	var (
		t              domain.Transfer
		typeID, status int
		amount         string
	)
	if err := row.Scan(&t.ID, &typeID, &status, &t.FromAccountID, &t.ToAccountID, &amount, &t.CreatedAt); err != nil {
		return domain.Transfer{}, err
	}
	t.Type = domain.TransferType(typeID)
	t.Status = domain.TransferStatus(status)
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("parsing amount of transfer %d: %w", t.ID, err)
	}
	t.Amount = a
	return t, nil
}

func (t *pgTransfers) Create(ctx context.Context, tr domain.Transfer) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO transfer (transfer_type_id, transfer_status_id, account_from, account_to, amount)
		 VALUES ($1, $2, $3, $4, $5::numeric) RETURNING transfer_id`,
		int(tr.Type), int(tr.Status), tr.FromAccountID, tr.ToAccountID, tr.Amount.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("transfer insert failed: %w", err)
	}
	return id, nil
}

func (t *pgTransfers) GetByID(ctx context.Context, id int64) (domain.Transfer, error) {
	tr, err := scanTransfer(t.q.QueryRow(ctx,
		"SELECT "+transferColumns+" FROM transfer WHERE transfer_id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transfer{}, domain.ErrNotFound
	}
	return tr, err
}

func (t *pgTransfers) ListByAccount(ctx context.Context, accountID int64) ([]domain.Transfer, error) {
	rows, err := t.q.Query(ctx,
		"SELECT "+transferColumns+" FROM transfer WHERE account_from = $1 OR account_to = $1 ORDER BY transfer_id",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("transfer query failed: %w", err)
	}
	defer rows.Close()

	out := []domain.Transfer{}
	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (t *pgTransfers) UpdateStatus(ctx context.Context, id int64, status domain.TransferStatus) error {
	if err := checkTransition(domain.TransferStatusPending, status); err != nil {
		return fmt.Errorf("transfer %d -> %s: %w", id, status, err)
	}

	tag, err := t.q.Exec(ctx,
		"UPDATE transfer SET transfer_status_id = $2 WHERE transfer_id = $1 AND transfer_status_id = $3",
		id, int(status), int(domain.TransferStatusPending))
	if err != nil {
		return fmt.Errorf("status update failed: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, err := t.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("transfer %d %s -> %s: %w", id, current.Status, status, domain.ErrInvalidTransition)
}
