// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// It is the single place where pgx and SQLSTATE codes are translated into the
// [apperr] taxonomy. Repositories call [Wrap] on every failing query so the
// original cause stays attached for logging.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Parameters
//   - err: the raw driver error.
//   - resource: the entity name used in NOT_FOUND and CONFLICT messages.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// Already classified further down the stack.
	if apperr.IsAppError(err) {
		return err
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource).WithCause(err)
	}

	// 2. SQLSTATE classification
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		switch {
		case pgError.Code == pgerrcode.UniqueViolation:
			return apperr.Conflict(fmt.Sprintf("%s already exists", resource)).WithCause(err)
		case pgError.Code == pgerrcode.NotNullViolation,
			pgError.Code == pgerrcode.CheckViolation,
			pgerrcode.IsDataException(pgError.Code):
			return apperr.ValidationError(fmt.Sprintf("Invalid %s data", resource)).WithCause(err)
		case pgError.Code == pgerrcode.ForeignKeyViolation:
			return apperr.NotFound("Referenced record").WithCause(err)
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err originates from a unique constraint
// violation, either raw from the driver or already wrapped by [Wrap].
//
// When constraint is non-empty, the violated constraint name must also match.
func IsUniqueViolation(err error, constraint string) bool {
	var pgError *pgconn.PgError
	if !errors.As(err, &pgError) {
		return false
	}
	if pgError.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgError.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err originates from a foreign key
// violation, such as deleting a row that is still referenced.
//
// When constraint is non-empty, the violated constraint name must also match.
func IsForeignKeyViolation(err error, constraint string) bool {
	var pgError *pgconn.PgError
	if !errors.As(err, &pgError) {
		return false
	}
	if pgError.Code != pgerrcode.ForeignKeyViolation {
		return false
	}
	return constraint == "" || pgError.ConstraintName == constraint
}
