// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package application is the trust store for third-party applications.

An application is identified by a 6-digit AIDN and authenticates with a
shared secret called the appchain. Every keychain operation starts by
validating the presented appchain here.

# Architecture

  - Entities: Application.
  - Security: The appchain is only serialized by registration and rotation
    responses; every other read goes through [Application.Public].
*/
package application

import (
	"context"
	"time"
)

// # Domain Entities

// Application is a registered consumer of Kreative keychains.
type Application struct {
	AIDN        int64     `json:"aidn"`
	Name        string    `json:"name"`
	CallbackURL string    `json:"callbackUrl"`
	Homepage    string    `json:"homepage"`
	Description string    `json:"description"`
	LogoURL     string    `json:"logoUrl"`
	IconURL     string    `json:"iconUrl"`
	Appchain    string    `json:"appchain,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Public returns a copy without the appchain.
func (a *Application) Public() *Application {
	clone := *a
	clone.Appchain = ""
	return &clone
}

// # Repository Contracts

// Repository defines the persistence contract for applications.
type Repository interface {
	/*
		FindByAIDN retrieves an application by id, appchain included.

		Returns:
		  - *Application: Loaded entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByAIDN(context context.Context, aidn int64) (*Application, error)

	// FindByAppchain retrieves the application holding appchain.
	FindByAppchain(context context.Context, appchain string) (*Application, error)

	// List returns every application ordered by creation time, oldest first.
	List(context context.Context) ([]*Application, error)

	/*
		Create inserts a new application. CreatedAt is set by the store.

		Returns:
		  - error: a unique violation on aidn or appchain (callers regenerate),
		    or storage failures
	*/
	Create(context context.Context, application *Application) error

	// Update persists descriptive fields. The appchain is left untouched.
	Update(context context.Context, application *Application) error

	// UpdateAppchain replaces the shared secret.
	UpdateAppchain(context context.Context, aidn int64, appchain string) error

	// Delete removes the application. While keychains reference it, the
	// error carries the keychains_aidn_fkey violation as its cause.
	Delete(context context.Context, aidn int64) error
}
