package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
	"github.com/sakif/family-catalog/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

// CreateAccount inserts a new account. The ID and CreatedAt are assigned
// here. A second account for the same email is a conflict.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	account.ID = xid.New().String()
	account.CreatedAt = time.Now().UTC()
	if account.Provider == "" {
		account.Provider = "password"
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, provider, email_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Provider,
		account.EmailVerified,
		account.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", account.Email, err)
	}
	return nil
}

func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := db.scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, provider, email_verified, created_at
		 FROM accounts WHERE email = ?`, email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", email, err)
	}
	return a, nil
}

func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := db.scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, provider, email_verified, created_at
		 FROM accounts WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return a, nil
}

func (db *DB) MarkEmailVerified(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET email_verified = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: verifying account %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("account", id)
	}
	return nil
}

// DeleteAccount removes the account row. Removing an account that does not
// exist is not an error.
func (db *DB) DeleteAccount(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", id, err)
	}
	return nil
}

func (db *DB) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, email, password_hash, provider, email_verified, created_at
		 FROM accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := db.scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accounts: %w", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Provider,
		&a.EmailVerified,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
