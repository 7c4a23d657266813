// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"cmp"
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
// identity packages.
type MemoryRepository struct {
	mu           sync.Mutex
	applications map[int64]*Application
	sequence     time.Duration
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{applications: make(map[int64]*Application)}
}

func (repository *MemoryRepository) FindByAIDN(_ context.Context, aidn int64) (*Application, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	application, ok := repository.applications[aidn]
	if !ok {
		return nil, apperr.NotFound("Application")
	}
	copied := *application
	return &copied, nil
}

func (repository *MemoryRepository) FindByAppchain(_ context.Context, appchain string) (*Application, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, application := range repository.applications {
		if application.Appchain == appchain {
			copied := *application
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Application")
}

func (repository *MemoryRepository) List(_ context.Context) ([]*Application, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	applications := make([]*Application, 0, len(repository.applications))
	for _, application := range repository.applications {
		copied := *application
		applications = append(applications, &copied)
	}
	slices.SortFunc(applications, func(a, b *Application) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.AIDN, b.AIDN))
	})
	return applications, nil
}

func (repository *MemoryRepository) Create(_ context.Context, application *Application) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.applications[application.AIDN]; taken {
		return uniqueViolation(ConstraintPrimaryKey)
	}
	for _, existing := range repository.applications {
		if existing.Appchain == application.Appchain {
			return uniqueViolation(ConstraintAppchain)
		}
	}

	// Strictly increasing timestamps keep List ordering deterministic.
	repository.sequence += time.Millisecond
	application.CreatedAt = time.Unix(0, 0).UTC().Add(repository.sequence)

	copied := *application
	repository.applications[application.AIDN] = &copied
	return nil
}

func (repository *MemoryRepository) Update(_ context.Context, application *Application) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.applications[application.AIDN]
	if !ok {
		return apperr.NotFound("Application")
	}
	appchain, createdAt := stored.Appchain, stored.CreatedAt
	*stored = *application
	stored.Appchain, stored.CreatedAt = appchain, createdAt
	return nil
}

func (repository *MemoryRepository) UpdateAppchain(_ context.Context, aidn int64, appchain string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.applications[aidn]
	if !ok {
		return apperr.NotFound("Application")
	}
	for other, existing := range repository.applications {
		if other != aidn && existing.Appchain == appchain {
			return uniqueViolation(ConstraintAppchain)
		}
	}
	stored.Appchain = appchain
	return nil
}

func (repository *MemoryRepository) Delete(_ context.Context, aidn int64) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.applications[aidn]; !ok {
		return apperr.NotFound("Application")
	}
	delete(repository.applications, aidn)
	return nil
}

// Put stores application as-is. Test seeding only.
func (repository *MemoryRepository) Put(application *Application) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	copied := *application
	repository.applications[application.AIDN] = &copied
}

func uniqueViolation(constraint string) error {
	cause := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
	return apperr.Conflict(fmt.Sprintf("Application already exists (%s)", constraint)).WithCause(cause)
}
