package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/tenmo/internal/domain"
)

var _ Directory = (*Postgres)(nil)

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (d *Postgres) Register(ctx context.Context, username string) (domain.User, error) {
	u := domain.User{Username: username}
	err := d.db.QueryRow(ctx,
		"INSERT INTO tenmo_user (username) VALUES ($1) RETURNING user_id", username,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, fmt.Errorf("%q: %w", username, ErrUsernameTaken)
		}
		return domain.User{}, fmt.Errorf("user insert failed: %w", err)
	}
	return u, nil
}

func (d *Postgres) UserByID(ctx context.Context, userID int64) (domain.User, error) {
	u := domain.User{ID: userID}
	err := d.db.QueryRow(ctx, "SELECT username FROM tenmo_user WHERE user_id = $1", userID).Scan(&u.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user query failed: %w", err)
	}
	return u, nil
}

func (d *Postgres) UsernameForAccount(ctx context.Context, accountID int64) (string, error) {
	var username string
	err := d.db.QueryRow(ctx,
		`SELECT u.username FROM account a JOIN tenmo_user u ON u.user_id = a.user_id
		 WHERE a.account_id = $1`, accountID,
	).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("username query failed: %w", err)
	}
	return username, nil
}

func (d *Postgres) SearchAccounts(ctx context.Context, term string) ([]AccountMatch, error) {
	rows, err := d.db.Query(ctx,
		`SELECT a.account_id, u.username FROM account a JOIN tenmo_user u ON u.user_id = a.user_id
		 WHERE u.username ILIKE '%' || $1 || '%' ORDER BY a.account_id`, term)
	if err != nil {
		return nil, fmt.Errorf("account search failed: %w", err)
	}
	defer rows.Close()

	out := []AccountMatch{}
	for rows.Next() {
		var m AccountMatch
		if err := rows.Scan(&m.AccountID, &m.Username); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
