// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/constants"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
	"github.com/taibuivan/kreativeid/internal/platform/validate"
	"github.com/taibuivan/kreativeid/internal/postage"
	"github.com/taibuivan/kreativeid/pkg/normalize"
	"github.com/taibuivan/kreativeid/pkg/pointer"
)

// Unique constraints on the accounts table.
const (
	ConstraintPrimaryKey = "accounts_pkey"
	ConstraintEmail      = "accounts_email_key"
)

// # Service Layer

// Service orchestrates account use cases.
type Service struct {
	repository Repository
	notifier   postage.Notifier
}

// NewService constructs a new [Service].
func NewService(repository Repository, notifier postage.Notifier) *Service {
	return &Service{repository: repository, notifier: notifier}
}

// # Identifiers

/*
GenerateKSN draws an unused 8-digit service number (digits 1-9).

Returns:
  - int64: A KSN not held by any account at the time of the check
  - error: Internal after repeated collisions or storage failures
*/
func (service *Service) GenerateKSN(context context.Context) (int64, error) {
	for attempt := 0; attempt < constants.IdentifierMaxAttempts; attempt++ {
		ksn, err := sec.GenerateNumericID(constants.KSNLength, sec.NonZeroDigits)
		if err != nil {
			return 0, apperr.Internal(err)
		}

		_, err = service.repository.FindByKSN(context, ksn)
		if apperr.IsNotFound(err) {
			return ksn, nil
		}
		if err != nil {
			return 0, fmt.Errorf("account_service_generate_ksn_failed: %w", err)
		}
	}
	return 0, apperr.InternalMessage("Could not allocate a KSN", nil)
}

// # Registration

// CreateInput holds the data required to enroll a new account.
type CreateInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

/*
Create validates, hashes and persists a new account.

Description: Emails and usernames are normalised first. A KSN collision
between generation and insert is retried; a duplicate email is a Conflict.

Returns:
  - *Account: The created account (unsanitized, callers sanitize for output)
  - error: ValidationError, Conflict or storage failures
*/
func (service *Service) Create(context context.Context, input CreateInput) (*Account, error) {
	input.Email = normalize.Email(input.Email)
	input.Username = normalize.Username(input.Username)
	input.FirstName = normalize.Name(input.FirstName)
	input.LastName = normalize.Name(input.LastName)

	v := &validate.Validator{}
	v.Required("email", input.Email).Email("email", input.Email)
	v.Required("username", input.Username).MaxLen("username", input.Username, 50)
	v.Required("password", input.Password).MinLen("password", input.Password, 8).MaxLen("password", input.Password, 72)
	v.Required("firstName", input.FirstName).MaxLen("firstName", input.FirstName, 100)
	v.Required("lastName", input.LastName).MaxLen("lastName", input.LastName, 100)
	if err := v.Err(); err != nil {
		return nil, err
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	for attempt := 0; attempt < constants.IdentifierMaxAttempts; attempt++ {
		ksn, err := service.GenerateKSN(context)
		if err != nil {
			return nil, err
		}

		account := &Account{
			KSN:          ksn,
			Email:        input.Email,
			Username:     input.Username,
			PasswordHash: passwordHash,
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			Permissions:  []string{},
		}

		err = service.repository.Create(context, account)
		if err == nil {
			return account, nil
		}

		// Another signup took the KSN after our check; draw again.
		if dberr.IsUniqueViolation(err, ConstraintPrimaryKey) {
			continue
		}
		if dberr.IsUniqueViolation(err, ConstraintEmail) || apperr.IsConflict(err) {
			return nil, apperr.Conflict("An account with this email already exists").WithCause(err)
		}
		return nil, fmt.Errorf("account_service_create_failed: %w", err)
	}

	return nil, apperr.InternalMessage("Could not allocate a KSN", nil)
}

// # Profile

/*
Get returns the sanitized account for ksn.

Returns:
  - *Account: Account without password hash or reset code
  - error: apperr.NotFound or storage failures
*/
func (service *Service) Get(context context.Context, ksn int64) (*Account, error) {
	account, err := service.repository.FindByKSN(context, ksn)
	if err != nil {
		return nil, err
	}
	return account.Sanitized(), nil
}

// FindByEmail returns the unsanitized account for email. Internal use only.
func (service *Service) FindByEmail(context context.Context, email string) (*Account, error) {
	return service.repository.FindByEmail(context, normalize.Email(email))
}

// FindByKSN returns the unsanitized account for ksn. Internal use only.
func (service *Service) FindByKSN(context context.Context, ksn int64) (*Account, error) {
	return service.repository.FindByKSN(context, ksn)
}

// UpdateInput is a partial profile update; nil fields are left unchanged.
type UpdateInput struct {
	Username       *string
	Email          *string
	FirstName      *string
	LastName       *string
	ProfilePicture *string
	Password       *string
}

/*
Update applies a partial profile change.

Description: The password is re-hashed only when supplied. Permissions are
never touched here; see the permission gate.

Returns:
  - *Account: The updated, sanitized account
  - error: ValidationError, NotFound, Conflict or storage failures
*/
func (service *Service) Update(context context.Context, ksn int64, input UpdateInput) (*Account, error) {
	account, err := service.repository.FindByKSN(context, ksn)
	if err != nil {
		return nil, err
	}

	v := &validate.Validator{}
	if pointer.Assign(&account.Email, input.Email, normalize.Email) {
		v.Email("email", account.Email)
	}
	if pointer.Assign(&account.Username, input.Username, normalize.Username) {
		v.Required("username", account.Username).MaxLen("username", account.Username, 50)
	}
	if pointer.Assign(&account.FirstName, input.FirstName, normalize.Name) {
		v.Required("firstName", account.FirstName).MaxLen("firstName", account.FirstName, 100)
	}
	if pointer.Assign(&account.LastName, input.LastName, normalize.Name) {
		v.Required("lastName", account.LastName).MaxLen("lastName", account.LastName, 100)
	}
	if pointer.Assign(&account.ProfilePicture, input.ProfilePicture, nil) {
		v.URL("profilePicture", account.ProfilePicture)
	}

	password := pointer.Val(input.Password)
	if input.Password != nil {
		v.MinLen("password", password, 8).MaxLen("password", password, 72)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if input.Password != nil {
		account.PasswordHash, err = sec.HashPassword(password)
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}

	if err := service.repository.Update(context, account); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	return account.Sanitized(), nil
}

// GrantPermissions adds permissions to an account and returns the resulting
// set. Callers are expected to have verified a keychain first.
func (service *Service) GrantPermissions(context context.Context, ksn int64, additions []string) ([]string, error) {
	granted, err := service.repository.GrantPermissions(context, ksn, additions)
	if err != nil {
		return nil, fmt.Errorf("account_service_grant_permissions_failed: %w", err)
	}
	return granted, nil
}

// # Password Reset

/*
SendResetCode generates a 6-digit reset code for the account behind email and
mails it.

Returns:
  - error: apperr.NotFound for an unknown email, or storage failures.
    Mail failures are logged only.
*/
func (service *Service) SendResetCode(context context.Context, email string) error {
	account, err := service.repository.FindByEmail(context, normalize.Email(email))
	if err != nil {
		return err
	}

	code, err := sec.GenerateNumericID(constants.ResetCodeLength, sec.AllDigits)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.repository.SetResetCode(context, account.KSN, code); err != nil {
		return fmt.Errorf("account_service_send_reset_code_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_reset_code_issued", slog.Int64("ksn", account.KSN))

	postage.NotifyQuietly(context, service.notifier, postage.Message{
		Template: postage.TemplateResetCode,
		To:       account.Email,
		Data:     []string{account.FirstName, strconv.FormatInt(code, 10)},
	})
	return nil
}

/*
VerifyResetCode checks a presented code and clears it on success (single use).

Returns:
  - error: apperr.Unauthorized on mismatch or when no code is pending
*/
func (service *Service) VerifyResetCode(context context.Context, ksn int64, code int64) error {
	account, err := service.repository.FindByKSN(context, ksn)
	if err != nil {
		return err
	}

	// Zero means "no code pending"; it must never match.
	if account.ResetCode == 0 || account.ResetCode != code {
		ctxutil.GetLogger(context).InfoContext(context, "account_reset_code_mismatch", slog.Int64("ksn", ksn))
		return apperr.Unauthorized("Reset code mismatch")
	}

	if err := service.repository.SetResetCode(context, ksn, 0); err != nil {
		return fmt.Errorf("account_service_verify_reset_code_failed: %w", err)
	}
	return nil
}

/*
ResetPassword replaces the password and sends a best-effort notification.

Returns:
  - error: ValidationError, NotFound or storage failures
*/
func (service *Service) ResetPassword(context context.Context, ksn int64, password string) error {
	v := &validate.Validator{}
	if err := v.Required("password", password).MinLen("password", password, 8).MaxLen("password", password, 72).Err(); err != nil {
		return err
	}

	account, err := service.repository.FindByKSN(context, ksn)
	if err != nil {
		return err
	}

	passwordHash, err := sec.HashPassword(password)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.repository.UpdatePassword(context, ksn, passwordHash); err != nil {
		return fmt.Errorf("account_service_reset_password_failed: %w", err)
	}

	postage.NotifyQuietly(context, service.notifier, postage.Message{
		Template: postage.TemplatePasswordChanged,
		To:       account.Email,
		Data:     []string{account.FirstName},
	})
	return nil
}
