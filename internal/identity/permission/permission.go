// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package permission is the only write path for account permissions.

Every change must present a live keychain: the gate runs the full keychain
verification first and only then merges the requested permissions into the
verified account's set. Permissions are append-only; nothing here removes one.
*/
package permission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/kreativeid/internal/identity/account"
	"github.com/taibuivan/kreativeid/internal/identity/keychain"
	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/validate"
)

// maxPermissionLength bounds a single permission name.
const maxPermissionLength = 100

// Verifier authenticates the presented keychain.
type Verifier interface {
	Verify(context context.Context, input keychain.VerifyInput) (*keychain.Verification, error)
}

// Writer merges permissions into an account atomically and returns the
// resulting set.
type Writer interface {
	GrantPermissions(context context.Context, ksn int64, additions []string) ([]string, error)
}

// Gate guards permission updates behind keychain verification.
type Gate struct {
	verifier Verifier
	writer   Writer
}

// NewGate constructs a new [Gate].
func NewGate(verifier Verifier, writer Writer) *Gate {
	return &Gate{verifier: verifier, writer: writer}
}

// UpdateInput is a keychain proof plus the permissions to grant.
type UpdateInput struct {
	AIDN           int64
	Key            string
	Appchain       string
	NewPermissions []string
}

/*
UpdatePermissions grants NewPermissions to the account behind the keychain.

Description: Verification failures are returned unchanged. Entries already
held, and duplicates within NewPermissions, are ignored.

Returns:
  - *account.Account: The account with its merged set (sanitized)
  - error: ValidationError, any Verify failure, or Internal when the merged
    set cannot be persisted
*/
func (gate *Gate) UpdatePermissions(context context.Context, input UpdateInput) (*account.Account, error) {
	v := &validate.Validator{}
	v.Custom("newPermissions", input.NewPermissions == nil, "Field is required")
	for _, permission := range input.NewPermissions {
		v.Required("newPermissions", permission).MaxLen("newPermissions", permission, maxPermissionLength)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	verification, err := gate.verifier.Verify(context, keychain.VerifyInput{
		AIDN:     input.AIDN,
		Key:      input.Key,
		Appchain: input.Appchain,
	})
	if err != nil {
		return nil, err
	}

	owner := verification.Account
	merged, err := gate.writer.GrantPermissions(context, owner.KSN, input.NewPermissions)
	if err != nil {
		return nil, apperr.InternalMessage("Account permissions update failed", fmt.Errorf("permission_gate_persist_failed: %w", err))
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_permissions_updated",
		slog.Int64("ksn", owner.KSN),
		slog.Int("granted", len(merged)-len(owner.Permissions)),
	)

	owner.Permissions = merged
	return owner, nil
}
