// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keychain

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
	"github.com/taibuivan/kreativeid/internal/platform/postgres"
)

// pairLockQuery takes the two-key, transaction-scoped advisory lock.
const pairLockQuery = `SELECT pg_advisory_xact_lock($1::int4, $2::int4)`

// errNestedPairLock is returned when WithPairLock is called on a repository
// already bound to a locked transaction.
var errNestedPairLock = errors.New("keychain: pair lock already held")

// Pool is the connection source the repository needs: plain queries plus
// transactions. Satisfied by [*pgxpool.Pool].
type Pool interface {
	postgres.DBTX
	postgres.TxBeginner
}

// # Repository Implementation

// PostgresRepository implements [Repository] on the keychains table.
type PostgresRepository struct {
	db       postgres.DBTX
	beginner postgres.TxBeginner
}

// NewPostgresRepository creates a new Postgres keychain repository.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{db: pool, beginner: pool}
}

const keychainColumns = `id, ksn, aidn, token, expired, created_at`

func scanKeychain(row pgx.Row) (*Keychain, error) {
	keychain := &Keychain{}
	err := row.Scan(
		&keychain.ID,
		&keychain.KSN,
		&keychain.AIDN,
		&keychain.Token,
		&keychain.Expired,
		&keychain.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return keychain, nil
}

// FindByToken retrieves the record holding token.
func (repository *PostgresRepository) FindByToken(context context.Context, token string) (*Keychain, error) {
	query := `SELECT ` + keychainColumns + ` FROM keychains WHERE token = $1`

	keychain, err := scanKeychain(repository.db.QueryRow(context, query, token))
	if err != nil {
		return nil, dberr.Wrap(err, "Keychain")
	}
	return keychain, nil
}

// FindByAccountAndApplication returns every record of the pair.
func (repository *PostgresRepository) FindByAccountAndApplication(context context.Context, ksn, aidn int64) ([]*Keychain, error) {
	query := `SELECT ` + keychainColumns + ` FROM keychains WHERE ksn = $1 AND aidn = $2 ORDER BY id`
	return repository.list(context, query, ksn, aidn)
}

// ListAll returns every record, oldest first.
func (repository *PostgresRepository) ListAll(context context.Context) ([]*Keychain, error) {
	query := `SELECT ` + keychainColumns + ` FROM keychains ORDER BY id`
	return repository.list(context, query)
}

/*
Create inserts a new ACTIVE keychain.

Returns:
  - error: apperr.Conflict carrying the raw unique violation on token,
    apperr.NotFound when ksn or aidn do not exist, or storage failures
*/
func (repository *PostgresRepository) Create(context context.Context, keychain *Keychain) error {
	const query = `
		INSERT INTO keychains (ksn, aidn, token)
		VALUES ($1, $2, $3)
		RETURNING id, expired, created_at`

	err := repository.db.QueryRow(context, query, keychain.KSN, keychain.AIDN, keychain.Token).
		Scan(&keychain.ID, &keychain.Expired, &keychain.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "Keychain")
	}
	return nil
}

// MarkExpired flips the flag. No statement in this package clears it.
func (repository *PostgresRepository) MarkExpired(context context.Context, id int64) error {
	const query = `UPDATE keychains SET expired = TRUE WHERE id = $1`

	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "Keychain")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Keychain").WithCause(fmt.Errorf("no keychain with id %d", id))
	}
	return nil
}

/*
WithPairLock runs fn in a transaction holding a transaction-scoped advisory
lock on (ksn, aidn).

Description: The lock is released on commit or rollback. A repository handed
to fn is bound to the transaction and refuses to lock again.
*/
func (repository *PostgresRepository) WithPairLock(ctx context.Context, ksn, aidn int64, fn func(context context.Context, repository Repository) error) error {
	if repository.beginner == nil {
		return errNestedPairLock
	}

	return postgres.WithTx(ctx, repository.beginner, func(txCtx context.Context, tx postgres.DBTX) error {
		if _, err := tx.Exec(txCtx, pairLockQuery, pairLockKey(ksn), pairLockKey(aidn)); err != nil {
			return dberr.Wrap(err, "Keychain")
		}
		return fn(txCtx, &PostgresRepository{db: tx})
	})
}

func (repository *PostgresRepository) list(context context.Context, query string, args ...any) ([]*Keychain, error) {
	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "Keychain")
	}
	defer rows.Close()

	keychains := make([]*Keychain, 0)
	for rows.Next() {
		keychain, err := scanKeychain(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "Keychain")
		}
		keychains = append(keychains, keychain)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Keychain")
	}
	return keychains, nil
}

// pairLockKey maps an identifier onto an int4 lock key. KSNs (8 digits) and
// AIDNs (6 digits) fit as-is; wider values fold their high half in.
func pairLockKey(id int64) int32 {
	return int32(id ^ (id >> 32))
}
