// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package keychain implements the keychain lifecycle: issue, verify, close.

A keychain is a bearer credential binding one account (KSN) to one
application (AIDN). It is a signed token plus a persisted record carrying an
expired flag.

# State Machine

	ACTIVE ──(close | superseded | lazy expiry)──► EXPIRED

EXPIRED is terminal. No code path in this package clears the flag.

# Expiry

Expiry is checked twice on verification: the stored flag short-circuits
without decoding, and the signed expiresAt is the source of truth. The first
verification after the window elapses writes the flag back.
*/
package keychain

import (
	"context"
	"time"
)

// ConstraintToken is the unique constraint on the token column.
const ConstraintToken = "keychains_token_key"

// # Domain Entities

// Keychain is the persisted record of an issued token.
type Keychain struct {
	ID        int64     `json:"id"`
	KSN       int64     `json:"ksn"`
	AIDN      int64     `json:"aidn"`
	Token     string    `json:"token,omitempty"`
	Expired   bool      `json:"expired"`
	CreatedAt time.Time `json:"createdAt"`
}

// Active reports whether the stored flag still allows use.
func (k *Keychain) Active() bool { return !k.Expired }

// Redacted returns a copy without the token.
func (k *Keychain) Redacted() *Keychain {
	clone := *k
	clone.Token = ""
	return &clone
}

// Summary is the keychain view returned by verification: no token, no flag.
type Summary struct {
	ID        int64     `json:"id"`
	KSN       int64     `json:"ksn"`
	AIDN      int64     `json:"aidn"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary strips the token and the expired flag.
func (k *Keychain) Summary() *Summary {
	return &Summary{ID: k.ID, KSN: k.KSN, AIDN: k.AIDN, CreatedAt: k.CreatedAt}
}

// # Repository Contracts

// Repository is the keychain store. It holds no business rules.
type Repository interface {
	/*
		FindByToken retrieves the record holding token.

		Returns:
		  - *Keychain: The record, token included
		  - error: apperr.NotFound or storage failures
	*/
	FindByToken(context context.Context, token string) (*Keychain, error)

	// FindByAccountAndApplication returns every record of the pair, expired or not.
	FindByAccountAndApplication(context context.Context, ksn, aidn int64) ([]*Keychain, error)

	/*
		Create inserts a new ACTIVE record and fills ID and CreatedAt.

		Returns:
		  - error: a unique violation on the token, or storage failures
	*/
	Create(context context.Context, keychain *Keychain) error

	/*
		MarkExpired sets expired=true on id. Setting it twice is harmless.

		Returns:
		  - error: apperr.NotFound when no record has id
	*/
	MarkExpired(context context.Context, id int64) error

	// ListAll returns every record, expired included, oldest first.
	ListAll(context context.Context) ([]*Keychain, error)

	/*
		WithPairLock runs fn while holding an exclusive lock on (ksn, aidn).

		Description: fn receives a repository bound to the locked scope (a
		transaction for Postgres). Issuance runs dedup and create inside it so
		two concurrent sign-ins for one pair cannot both stay ACTIVE.
	*/
	WithPairLock(context context.Context, ksn, aidn int64, fn func(context context.Context, repository Repository) error) error
}
