// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/constants"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
	"github.com/taibuivan/kreativeid/internal/platform/logging"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
	"github.com/taibuivan/kreativeid/internal/platform/validate"
	"github.com/taibuivan/kreativeid/pkg/slice"
)

// Unique constraints on the applications table.
const (
	ConstraintPrimaryKey = "applications_pkey"
	ConstraintAppchain   = "applications_appchain_key"

	// ConstraintKeychains is the keychains foreign key that keeps a
	// referenced application from being deleted.
	ConstraintKeychains = "keychains_aidn_fkey"
)

// # Service Layer

// Service is the application trust store.
type Service struct {
	repository Repository
}

// NewService constructs a new [Service].
func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

// # Trust Checks

/*
Lookup resolves an application by id.

Returns:
  - *Application: The application, appchain included (internal callers only)
  - error: apperr.NotFound when no application holds aidn
*/
func (service *Service) Lookup(context context.Context, aidn int64) (*Application, error) {
	application, err := service.repository.FindByAIDN(context, aidn)
	if err != nil {
		if apperr.IsNotFound(err) {
			logging.Alert(context, ctxutil.GetLogger(context), "application_unknown_aidn", slog.Int64("aidn", aidn))
		}
		return nil, err
	}
	return application, nil
}

/*
ValidateSecret checks a presented appchain against the one registered for aidn.

Returns:
  - error: apperr.NotFound for an unknown aidn, apperr.Forbidden on mismatch
*/
func (service *Service) ValidateSecret(context context.Context, aidn int64, appchain string) error {
	application, err := service.Lookup(context, aidn)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(application.Appchain), []byte(appchain)) != 1 {
		ctxutil.GetLogger(context).WarnContext(context, "application_appchain_mismatch", slog.Int64("aidn", aidn))
		return apperr.Forbidden("Appchain mismatch")
	}
	return nil
}

/*
VerifyAppchain is the HTTP form of [Service.ValidateSecret]: on success it
returns the application without its secret.
*/
func (service *Service) VerifyAppchain(context context.Context, aidn int64, appchain string) (*Application, error) {
	if err := service.ValidateSecret(context, aidn, appchain); err != nil {
		return nil, err
	}

	application, err := service.repository.FindByAIDN(context, aidn)
	if err != nil {
		return nil, err
	}
	return application.Public(), nil
}

// # Identifiers

/*
GenerateAIDN draws an unused 6-digit application id (digits 1-9).

The check is advisory only: [Service.Register] still retries when the insert
loses a race on the primary key.
*/
func (service *Service) GenerateAIDN(context context.Context) (int64, error) {
	for attempt := 0; attempt < constants.IdentifierMaxAttempts; attempt++ {
		aidn, err := sec.GenerateNumericID(constants.AIDNLength, sec.NonZeroDigits)
		if err != nil {
			return 0, apperr.Internal(err)
		}

		_, err = service.repository.FindByAIDN(context, aidn)
		if apperr.IsNotFound(err) {
			return aidn, nil
		}
		if err != nil {
			return 0, fmt.Errorf("application_service_generate_aidn_failed: %w", err)
		}
	}
	return 0, apperr.InternalMessage("Could not allocate an AIDN", nil)
}

// GenerateAppchain draws a 32-character appchain not held by any application.
func (service *Service) GenerateAppchain(context context.Context) (string, error) {
	for attempt := 0; attempt < constants.IdentifierMaxAttempts; attempt++ {
		appchain, err := sec.GenerateSecureToken(constants.AppchainLength, sec.AppchainAlphabet)
		if err != nil {
			return "", apperr.Internal(err)
		}

		_, err = service.repository.FindByAppchain(context, appchain)
		if apperr.IsNotFound(err) {
			return appchain, nil
		}
		if err != nil {
			return "", fmt.Errorf("application_service_generate_appchain_failed: %w", err)
		}
	}
	return "", apperr.InternalMessage("Could not allocate an appchain", nil)
}

/*
RotateSecret replaces the appchain of aidn with a fresh unique value.

Returns:
  - string: The new appchain (shown once)
  - error: apperr.NotFound or storage failures
*/
func (service *Service) RotateSecret(context context.Context, aidn int64) (string, error) {
	for attempt := 0; attempt < constants.IdentifierMaxAttempts; attempt++ {
		appchain, err := service.GenerateAppchain(context)
		if err != nil {
			return "", err
		}

		err = service.repository.UpdateAppchain(context, aidn, appchain)
		if err == nil {
			ctxutil.GetLogger(context).InfoContext(context, "application_appchain_rotated", slog.Int64("aidn", aidn))
			return appchain, nil
		}
		if dberr.IsUniqueViolation(err, ConstraintAppchain) {
			continue
		}
		return "", fmt.Errorf("application_service_rotate_failed: %w", err)
	}
	return "", apperr.InternalMessage("Could not allocate an appchain", nil)
}

// # Registration

// RegisterInput holds the descriptive fields of a new application.
type RegisterInput struct {
	Name        string
	CallbackURL string
	Homepage    string
	Description string
	LogoURL     string
	IconURL     string
}

func (input RegisterInput) validate() error {
	v := &validate.Validator{}
	v.Required("name", input.Name).MaxLen("name", input.Name, 100)
	v.Required("callbackUrl", input.CallbackURL).URL("callbackUrl", input.CallbackURL)
	v.Required("homepage", input.Homepage).URL("homepage", input.Homepage)
	v.Required("description", input.Description).MaxLen("description", input.Description, 1000)
	v.URL("logoUrl", input.LogoURL)
	v.URL("iconUrl", input.IconURL)
	return v.Err()
}

/*
Register creates an application with a fresh AIDN and appchain.

Description: Both identifiers are checked before insert; a unique violation
on either (a concurrent registration won the race) draws new ones.

Returns:
  - *Application: The new application, appchain included
  - error: ValidationError or storage failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Application, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < constants.IdentifierMaxAttempts; attempt++ {
		aidn, err := service.GenerateAIDN(context)
		if err != nil {
			return nil, err
		}
		appchain, err := service.GenerateAppchain(context)
		if err != nil {
			return nil, err
		}

		application := &Application{
			AIDN:        aidn,
			Name:        input.Name,
			CallbackURL: input.CallbackURL,
			Homepage:    input.Homepage,
			Description: input.Description,
			LogoURL:     input.LogoURL,
			IconURL:     input.IconURL,
			Appchain:    appchain,
		}

		err = service.repository.Create(context, application)
		if err == nil {
			ctxutil.GetLogger(context).InfoContext(context, "application_registered", slog.Int64("aidn", aidn))
			return application, nil
		}
		if dberr.IsUniqueViolation(err, ConstraintPrimaryKey) || dberr.IsUniqueViolation(err, ConstraintAppchain) {
			continue
		}
		return nil, fmt.Errorf("application_service_register_failed: %w", err)
	}

	return nil, apperr.InternalMessage("Could not register application", nil)
}

// # Management

// List returns every application without secrets, oldest first.
func (service *Service) List(context context.Context) ([]*Application, error) {
	applications, err := service.repository.List(context)
	if err != nil {
		return nil, fmt.Errorf("application_service_list_failed: %w", err)
	}

	return slice.Map(applications, (*Application).Public), nil
}

// Get returns one application without its secret.
func (service *Service) Get(context context.Context, aidn int64) (*Application, error) {
	application, err := service.repository.FindByAIDN(context, aidn)
	if err != nil {
		return nil, err
	}
	return application.Public(), nil
}

// UpdateInput replaces the descriptive fields and optionally rotates the appchain.
type UpdateInput struct {
	RegisterInput
	RefreshAppchain bool
}

/*
Update rewrites an application's descriptive fields.

Returns:
  - *Application: The updated application; the appchain is only present when
    it was refreshed
  - error: ValidationError, NotFound or storage failures
*/
func (service *Service) Update(context context.Context, aidn int64, input UpdateInput) (*Application, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	application, err := service.repository.FindByAIDN(context, aidn)
	if err != nil {
		return nil, err
	}

	application.Name = input.Name
	application.CallbackURL = input.CallbackURL
	application.Homepage = input.Homepage
	application.Description = input.Description
	application.LogoURL = input.LogoURL
	application.IconURL = input.IconURL

	if err := service.repository.Update(context, application); err != nil {
		return nil, fmt.Errorf("application_service_update_failed: %w", err)
	}

	updated := application.Public()
	if input.RefreshAppchain {
		updated.Appchain, err = service.RotateSecret(context, aidn)
		if err != nil {
			return nil, err
		}
	}
	return updated, nil
}

/*
Delete removes an application that never issued a keychain.

Returns:
  - error: apperr.Conflict when keychains still reference the application,
    apperr.NotFound or storage failures
*/
func (service *Service) Delete(context context.Context, aidn int64) error {
	if err := service.repository.Delete(context, aidn); err != nil {
		if dberr.IsForeignKeyViolation(err, ConstraintKeychains) {
			return apperr.Conflict("Application has keychains and cannot be deleted").WithCause(err)
		}
		return fmt.Errorf("application_service_delete_failed: %w", err)
	}
	ctxutil.GetLogger(context).InfoContext(context, "application_deleted", slog.Int64("aidn", aidn))
	return nil
}
