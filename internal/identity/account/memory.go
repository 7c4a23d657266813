// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
)

// MemoryRepository is an in-process [Repository] used by tests across the
// identity packages. It reports unique violations the way Postgres does.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	now      func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[int64]*Account), now: time.Now}
}

func (repository *MemoryRepository) FindByKSN(_ context.Context, ksn int64) (*Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	account, ok := repository.accounts[ksn]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return clone(account), nil
}

func (repository *MemoryRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, account := range repository.accounts {
		if account.Email == email {
			return clone(account), nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (repository *MemoryRepository) Create(_ context.Context, account *Account) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.accounts[account.KSN]; taken {
		return uniqueViolation(ConstraintPrimaryKey)
	}
	for _, existing := range repository.accounts {
		if existing.Email == account.Email {
			return uniqueViolation(ConstraintEmail)
		}
	}

	account.CreatedAt = repository.now()
	account.UpdatedAt = account.CreatedAt
	repository.accounts[account.KSN] = clone(account)
	return nil
}

func (repository *MemoryRepository) Update(_ context.Context, account *Account) error {
	return repository.mutate(account.KSN, func(stored *Account) {
		stored.Email = account.Email
		stored.Username = account.Username
		stored.FirstName = account.FirstName
		stored.LastName = account.LastName
		stored.ProfilePicture = account.ProfilePicture
		stored.PasswordHash = account.PasswordHash
	})
}

func (repository *MemoryRepository) GrantPermissions(_ context.Context, ksn int64, additions []string) ([]string, error) {
	var granted []string
	err := repository.mutate(ksn, func(stored *Account) {
		stored.Permissions = UnionPermissions(stored.Permissions, additions)
		granted = slices.Clone(stored.Permissions)
	})
	if err != nil {
		return nil, err
	}
	return granted, nil
}

func (repository *MemoryRepository) SetResetCode(_ context.Context, ksn int64, code int64) error {
	return repository.mutate(ksn, func(stored *Account) { stored.ResetCode = code })
}

func (repository *MemoryRepository) UpdatePassword(_ context.Context, ksn int64, passwordHash string) error {
	return repository.mutate(ksn, func(stored *Account) { stored.PasswordHash = passwordHash })
}

// Put stores account as-is, bypassing uniqueness checks. Test seeding only.
func (repository *MemoryRepository) Put(account *Account) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.accounts[account.KSN] = clone(account)
}

func (repository *MemoryRepository) mutate(ksn int64, apply func(*Account)) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.accounts[ksn]
	if !ok {
		return apperr.NotFound("Account")
	}
	apply(stored)
	stored.UpdatedAt = repository.now()
	return nil
}

func clone(account *Account) *Account {
	copied := *account
	copied.Permissions = slices.Clone(account.Permissions)
	return &copied
}

func uniqueViolation(constraint string) error {
	cause := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
	return apperr.Conflict(fmt.Sprintf("Account already exists (%s)", constraint)).WithCause(cause)
}
