// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements sign-up and sign-in: the two flows that create
keychains.

Architecture:

  - Service: Orchestrates account creation or password check, keychain
    issuance and the notification email.
  - Collaborators: account.Service, the application trust store and the
    keychain manager, each behind a narrow interface.
  - Security: Responses carry the sanitized account and the only copy of the
    keychain token the client will ever receive.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/kreativeid/internal/identity/account"
	"github.com/taibuivan/kreativeid/internal/identity/application"
	"github.com/taibuivan/kreativeid/internal/identity/keychain"
	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
	"github.com/taibuivan/kreativeid/internal/platform/validate"
	"github.com/taibuivan/kreativeid/internal/postage"
)

// # Contracts & Types

// Accounts is the slice of account.Service used here.
type Accounts interface {
	Create(context context.Context, input account.CreateInput) (*account.Account, error)
	FindByEmail(context context.Context, email string) (*account.Account, error)
}

// Applications resolves the application a keychain is issued for.
type Applications interface {
	Lookup(context context.Context, aidn int64) (*application.Application, error)
}

// Issuer mints keychains.
type Issuer interface {
	Issue(context context.Context, input keychain.IssueInput) (*keychain.Keychain, error)
}

// Service implements sign-up and sign-in.
type Service struct {
	accounts     Accounts
	applications Applications
	issuer       Issuer
	notifier     postage.Notifier
}

// NewService constructs a new auth [Service].
func NewService(accounts Accounts, applications Applications, issuer Issuer, notifier postage.Notifier) *Service {
	return &Service{
		accounts:     accounts,
		applications: applications,
		issuer:       issuer,
		notifier:     notifier,
	}
}

// Session is what both flows return to the client.
type Session struct {
	Account  *account.Account   `json:"account"`
	Keychain *keychain.Keychain `json:"keychain"`
}

// # Registration Flow

// SignupInput holds a new account plus the application it signs up through.
type SignupInput struct {
	account.CreateInput
	AIDN int64
}

/*
Signup creates an account and its first keychain.

Description: The application is resolved before the account is written so an
unknown aidn leaves nothing behind. The keychain is issued with rememberMe.

Returns:
  - *Session: Sanitized account and the new keychain (token included)
  - error: ValidationError, NotFound (aidn), Conflict (email) or storage failures
*/
func (service *Service) Signup(context context.Context, input SignupInput) (*Session, error) {
	if err := (&validate.Validator{}).Positive("aidn", input.AIDN).Err(); err != nil {
		return nil, err
	}

	if _, err := service.applications.Lookup(context, input.AIDN); err != nil {
		return nil, err
	}

	created, err := service.accounts.Create(context, input.CreateInput)
	if err != nil {
		return nil, err
	}

	issued, err := service.issuer.Issue(context, keychain.IssueInput{KSN: created.KSN, AIDN: input.AIDN, RememberMe: true})
	if err != nil {
		return nil, fmt.Errorf("auth_service_signup_issue_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "account_signed_up",
		slog.Int64("ksn", created.KSN),
		slog.Int64("aidn", input.AIDN),
		slog.Int64("keychain_id", issued.ID),
	)

	postage.NotifyQuietly(context, service.notifier, postage.Message{
		Template: postage.TemplateWelcome,
		To:       created.Email,
		Data:     []string{created.FirstName},
	})

	return &Session{Account: created.Sanitized(), Keychain: issued}, nil
}

// # Authentication Flow

// SigninInput carries credentials and the target application.
type SigninInput struct {
	Email      string
	Password   string
	AIDN       int64
	RememberMe bool
}

/*
Signin checks credentials and issues a keychain for the application.

Description: Dedup of the pair's older keychains runs synchronously inside
Issue, before the new token is minted.

Returns:
  - *Session: Sanitized account and the new keychain (token included)
  - error: NotFound ("No account found" or unknown aidn), Unauthorized on a
    password mismatch, or storage failures
*/
func (service *Service) Signin(context context.Context, input SigninInput) (*Session, error) {
	v := &validate.Validator{}
	v.Required("email", input.Email).Required("password", input.Password).Positive("aidn", input.AIDN)
	if err := v.Err(); err != nil {
		return nil, err
	}

	logger := ctxutil.GetLogger(context)

	found, err := service.accounts.FindByEmail(context, input.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFoundMessage("No account found").WithCause(err)
		}
		return nil, fmt.Errorf("auth_service_signin_failed: %w", err)
	}

	if !sec.CheckPasswordHash(input.Password, found.PasswordHash) {
		logger.InfoContext(context, "account_password_mismatch", slog.Int64("ksn", found.KSN))
		return nil, apperr.Unauthorized("password mismatch")
	}

	if _, err := service.applications.Lookup(context, input.AIDN); err != nil {
		return nil, err
	}

	issued, err := service.issuer.Issue(context, keychain.IssueInput{KSN: found.KSN, AIDN: input.AIDN, RememberMe: input.RememberMe})
	if err != nil {
		return nil, fmt.Errorf("auth_service_signin_issue_failed: %w", err)
	}

	logger.InfoContext(context, "account_signed_in",
		slog.Int64("ksn", found.KSN),
		slog.Int64("aidn", input.AIDN),
		slog.Int64("keychain_id", issued.ID),
	)

	postage.NotifyQuietly(context, service.notifier, postage.Message{
		Template: postage.TemplateNewLogin,
		To:       found.Email,
		Data:     []string{found.FirstName},
	})

	return &Session{Account: found.Sanitized(), Keychain: issued}, nil
}
