package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrAccountNotFound = errors.New("account not found")

type Repository interface {
	createAccount(ctx context.Context) (*Account, error)
	getAccountByID(ctx context.Context, id int64) (*Account, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) Repository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) createAccount(ctx context.Context) (*Account, error) {
	query := `
		INSERT INTO account DEFAULT VALUES
		RETURNING id, created_at;
	`
	var account Account
	if err := r.db.QueryRowContext(ctx, query).Scan(&account.ID, &account.CreatedAt); err != nil {
		return nil, fmt.Errorf("could not create account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) getAccountByID(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT id, created_at
		FROM account
		WHERE id = $1
	`
	var account Account
	err := r.db.QueryRowContext(ctx, query, id).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("could not find account: %w", err)
	}
	return &account, nil
}
