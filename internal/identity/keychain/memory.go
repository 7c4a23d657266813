// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keychain

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
)

type pair struct{ ksn, aidn int64 }

// MemoryRepository is an in-process [Repository]. Its pair lock is a mutex
// per (ksn, aidn), mirroring the advisory lock of the Postgres store.
type MemoryRepository struct {
	mu        sync.Mutex
	keychains []*Keychain
	nextID    int64
	locks     map[pair]*sync.Mutex
	now       func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{locks: make(map[pair]*sync.Mutex), now: time.Now}
}

func (repository *MemoryRepository) FindByToken(_ context.Context, token string) (*Keychain, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, keychain := range repository.keychains {
		if keychain.Token == token {
			copied := *keychain
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Keychain")
}

func (repository *MemoryRepository) FindByAccountAndApplication(_ context.Context, ksn, aidn int64) ([]*Keychain, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	found := make([]*Keychain, 0)
	for _, keychain := range repository.keychains {
		if keychain.KSN == ksn && keychain.AIDN == aidn {
			copied := *keychain
			found = append(found, &copied)
		}
	}
	return found, nil
}

func (repository *MemoryRepository) Create(_ context.Context, keychain *Keychain) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.keychains {
		if existing.Token == keychain.Token {
			cause := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: ConstraintToken}
			return apperr.Conflict("Keychain already exists").WithCause(cause)
		}
	}

	repository.nextID++
	keychain.ID = repository.nextID
	keychain.Expired = false
	keychain.CreatedAt = repository.now()

	copied := *keychain
	repository.keychains = append(repository.keychains, &copied)
	return nil
}

func (repository *MemoryRepository) MarkExpired(_ context.Context, id int64) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, keychain := range repository.keychains {
		if keychain.ID == id {
			keychain.Expired = true
			return nil
		}
	}
	return apperr.NotFound("Keychain")
}

func (repository *MemoryRepository) ListAll(_ context.Context) ([]*Keychain, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	all := make([]*Keychain, 0, len(repository.keychains))
	for _, keychain := range repository.keychains {
		copied := *keychain
		all = append(all, &copied)
	}
	return all, nil
}

func (repository *MemoryRepository) WithPairLock(context context.Context, ksn, aidn int64, fn func(context context.Context, repository Repository) error) error {
	repository.mu.Lock()
	lock, ok := repository.locks[pair{ksn, aidn}]
	if !ok {
		lock = &sync.Mutex{}
		repository.locks[pair{ksn, aidn}] = lock
	}
	repository.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(context, repository)
}

// Get returns a copy of the record with id. Test inspection only.
func (repository *MemoryRepository) Get(id int64) (*Keychain, bool) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, keychain := range repository.keychains {
		if keychain.ID == id {
			copied := *keychain
			return &copied, true
		}
	}
	return nil, false
}
