// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"no_rows", pgx.ErrNoRows, apperr.CodeNotFound, http.StatusNotFound},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, apperr.CodeConflict, http.StatusForbidden},
		{"check", &pgconn.PgError{Code: pgerrcode.CheckViolation}, apperr.CodeValidation, http.StatusBadRequest},
		{"foreign_key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, apperr.CodeNotFound, http.StatusNotFound},
		{"unknown", errors.New("connection reset"), apperr.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := apperr.As(dberr.Wrap(tt.err, "Keychain"))
			if assert.NotNil(t, wrapped) {
				assert.Equal(t, tt.wantCode, wrapped.Code)
				assert.Equal(t, tt.wantStatus, wrapped.HTTPStatus)
			}
		})
	}
}

func TestConstraintMatchers(t *testing.T) {
	unique := dberr.Wrap(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "keychains_token_key"}, "Keychain")
	foreign := dberr.Wrap(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "keychains_aidn_fkey"}, "Application")

	assert.True(t, dberr.IsUniqueViolation(unique, "keychains_token_key"))
	assert.True(t, dberr.IsUniqueViolation(unique, ""))
	assert.False(t, dberr.IsUniqueViolation(unique, "accounts_email_key"))
	assert.False(t, dberr.IsUniqueViolation(foreign, ""))

	assert.True(t, dberr.IsForeignKeyViolation(foreign, "keychains_aidn_fkey"))
	assert.False(t, dberr.IsForeignKeyViolation(foreign, "keychains_ksn_fkey"))
	assert.False(t, dberr.IsForeignKeyViolation(unique, ""))
	assert.False(t, dberr.IsForeignKeyViolation(errors.New("plain"), ""))
}
