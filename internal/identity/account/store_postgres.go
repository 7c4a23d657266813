// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
	"github.com/taibuivan/kreativeid/internal/platform/postgres"
)

// # Repository Implementation

// PostgresRepository implements [Repository] on the accounts table.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewPostgresRepository creates a new Postgres account repository.
func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `ksn, email, username, password_hash, first_name, last_name,
	profile_picture, wallet_balance, reset_code, permissions, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.KSN,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.ProfilePicture,
		&account.WalletBalance,
		&account.ResetCode,
		&account.Permissions,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

/*
FindByKSN retrieves an account from the accounts table.

Returns:
  - *Account: Hydrated account
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByKSN(context context.Context, ksn int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ksn = $1`

	account, err := scanAccount(repository.db.QueryRow(context, query, ksn))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}
	return account, nil
}

// FindByEmail retrieves an account by email.
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccount(repository.db.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}
	return account, nil
}

/*
Create inserts a new account row and back-fills the store timestamps.

Returns:
  - error: apperr.Conflict (with the pg cause attached) on unique violations
*/
func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO accounts (ksn, email, username, password_hash, first_name, last_name, permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := repository.db.QueryRow(context, query,
		account.KSN,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Permissions,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	return nil
}

// Update syncs the profile fields and password hash.
func (repository *PostgresRepository) Update(context context.Context, account *Account) error {
	const query = `
		UPDATE accounts
		SET email = $2, username = $3, first_name = $4, last_name = $5,
		    profile_picture = $6, password_hash = $7, updated_at = NOW()
		WHERE ksn = $1
		RETURNING updated_at`

	err := repository.db.QueryRow(context, query,
		account.KSN,
		account.Email,
		account.Username,
		account.FirstName,
		account.LastName,
		account.ProfilePicture,
		account.PasswordHash,
	).Scan(&account.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	return nil
}

// GrantPermissions appends the missing additions in request order. The row
// lock taken by UPDATE serialises concurrent grants for one account.
func (repository *PostgresRepository) GrantPermissions(context context.Context, ksn int64, additions []string) ([]string, error) {
	const query = `
		UPDATE accounts
		SET permissions = permissions || ARRAY(
		        SELECT addition.permission
		        FROM unnest($2::text[]) WITH ORDINALITY AS addition(permission, position)
		        WHERE NOT addition.permission = ANY(accounts.permissions)
		        GROUP BY addition.permission
		        ORDER BY MIN(addition.position)
		    ),
		    updated_at = NOW()
		WHERE ksn = $1
		RETURNING permissions`

	var granted []string
	if err := repository.db.QueryRow(context, query, ksn, additions).Scan(&granted); err != nil {
		return nil, dberr.Wrap(err, "Account")
	}
	if granted == nil {
		granted = []string{}
	}
	return granted, nil
}

// SetResetCode stores the pending reset code (0 clears it).
func (repository *PostgresRepository) SetResetCode(context context.Context, ksn int64, code int64) error {
	const query = `UPDATE accounts SET reset_code = $2, updated_at = NOW() WHERE ksn = $1`
	return repository.exec(context, query, ksn, code)
}

// UpdatePassword replaces the password hash.
func (repository *PostgresRepository) UpdatePassword(context context.Context, ksn int64, passwordHash string) error {
	const query = `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE ksn = $1`
	return repository.exec(context, query, ksn, passwordHash)
}

// exec runs a single-row update and reports NotFound when no row matched.
func (repository *PostgresRepository) exec(context context.Context, query string, args ...any) error {
	tag, err := repository.db.Exec(context, query, args...)
	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account").WithCause(fmt.Errorf("no account with ksn %v", args[0]))
	}
	return nil
}
