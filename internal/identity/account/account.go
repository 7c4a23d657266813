// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages Kreative accounts: the identities that keychains are
issued to.

It covers profile reads and updates, the password reset flow and the raw
permission write used by the permission gate.

# Architecture

  - Entities: Account (KSN keyed, never hard deleted).
  - Domain: This package is the lowest identity layer; keychain, auth and
    permission depend on it, never the other way around.
  - Security: Password hashes and reset codes never leave the service in JSON.
*/
package account

import (
	"context"
	"slices"
	"time"
)

// # Domain Entities

// Account is a Kreative identity owning a wallet and a permission set.
type Account struct {
	KSN            int64     `json:"ksn"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	ProfilePicture string    `json:"profilePicture"`
	WalletBalance  int64     `json:"walletBalance"`
	ResetCode      int64     `json:"-"`
	Permissions    []string  `json:"permissions"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Sanitized returns a copy with the password hash and reset code cleared.
func (a *Account) Sanitized() *Account {
	clone := *a
	clone.PasswordHash = ""
	clone.ResetCode = 0
	clone.Permissions = slices.Clone(a.Permissions)
	if clone.Permissions == nil {
		clone.Permissions = []string{}
	}
	return &clone
}

// UnionPermissions appends every entry of additions missing from current,
// preserving order. current is not modified.
func UnionPermissions(current, additions []string) []string {
	merged := slices.Clone(current)
	if merged == nil {
		merged = []string{}
	}
	for _, permission := range additions {
		if !slices.Contains(merged, permission) {
			merged = append(merged, permission)
		}
	}
	return merged
}

// # Repository Contracts

// Repository defines the persistence contract for accounts.
type Repository interface {
	/*
		FindByKSN retrieves an account by its service number.

		Returns:
		  - *Account: Loaded account entity (unsanitized)
		  - error: apperr.NotFound or storage failures
	*/
	FindByKSN(context context.Context, ksn int64) (*Account, error)

	/*
		FindByEmail retrieves an account by its normalised email.

		Returns:
		  - *Account: Loaded account entity (unsanitized)
		  - error: apperr.NotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		Create inserts a new account. CreatedAt and UpdatedAt are set by the store.

		Returns:
		  - error: apperr.Conflict on duplicate email, a raw unique violation on
		    the KSN primary key (callers regenerate), or storage failures
	*/
	Create(context context.Context, account *Account) error

	// Update persists profile fields and the password hash of an existing account.
	Update(context context.Context, account *Account) error

	/*
		GrantPermissions appends the additions the account does not hold yet,
		in one atomic step, so concurrent grants never overwrite each other.

		Returns:
		  - []string: The resulting permission set
		  - error: apperr.NotFound or storage failures
	*/
	GrantPermissions(context context.Context, ksn int64, additions []string) ([]string, error)

	// SetResetCode stores (or with 0 clears) the pending reset code.
	SetResetCode(context context.Context, ksn int64, code int64) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(context context.Context, ksn int64, passwordHash string) error
}
