// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keychain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/kreativeid/internal/identity/account"
	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/dberr"
	"github.com/taibuivan/kreativeid/internal/platform/logging"
	"github.com/taibuivan/kreativeid/internal/platform/metrics"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
	"github.com/taibuivan/kreativeid/pkg/slice"
)

// # Collaborators

// SecretValidator checks a presented appchain. Implemented by the
// application trust store.
type SecretValidator interface {
	ValidateSecret(context context.Context, aidn int64, appchain string) error
}

// AccountFinder resolves the account owning a keychain.
type AccountFinder interface {
	FindByKSN(context context.Context, ksn int64) (*account.Account, error)
}

// Codec mints and decodes signed tokens.
type Codec interface {
	Mint(ksn, aidn int64) (string, error)
	Decode(token string) (*sec.Payload, error)
}

// # Manager

// Manager drives the keychain state machine.
type Manager struct {
	repository   Repository
	codec        Codec
	applications SecretValidator
	accounts     AccountFinder
	dedup        *DedupPolicy
	recorder     metrics.KeychainRecorder
	now          func() time.Time
}

/*
NewManager wires the lifecycle manager.

Parameters:
  - repository: Repository (keychain store)
  - codec: Codec (signs with the process-wide secret)
  - applications: SecretValidator
  - accounts: AccountFinder
  - dedup: *DedupPolicy
  - recorder: metrics.KeychainRecorder (nil disables metrics)
*/
func NewManager(
	repository Repository,
	codec Codec,
	applications SecretValidator,
	accounts AccountFinder,
	dedup *DedupPolicy,
	recorder metrics.KeychainRecorder,
) *Manager {
	if recorder == nil {
		recorder = metrics.Discard{}
	}
	return &Manager{
		repository:   repository,
		codec:        codec,
		applications: applications,
		accounts:     accounts,
		dedup:        dedup,
		recorder:     recorder,
		now:          time.Now,
	}
}

// WithClock returns a copy of the manager evaluating expiry against now.
func (manager *Manager) WithClock(now func() time.Time) *Manager {
	clone := *manager
	clone.now = now
	return &clone
}

// # Issue

// IssueInput identifies the pair a keychain is issued for.
type IssueInput struct {
	KSN        int64
	AIDN       int64
	RememberMe bool
}

/*
Issue expires the pair's previous keychains and mints a new one.

Description: Dedup and create run under the repository's pair lock, so
sequential and concurrent issuance both leave exactly one ACTIVE keychain
(unless the account is exempt from dedup).

Returns:
  - *Keychain: The new record, token included. This is the only time the
    token leaves the service.
  - error: Internal on a token collision, or storage failures
*/
func (manager *Manager) Issue(ctx context.Context, input IssueInput) (*Keychain, error) {
	var (
		issued     *Keychain
		superseded int
	)

	err := manager.repository.WithPairLock(ctx, input.KSN, input.AIDN, func(lockCtx context.Context, repository Repository) error {
		var err error
		superseded, err = manager.dedup.Apply(lockCtx, repository, input.KSN, input.AIDN)
		if err != nil {
			return err
		}

		token, err := manager.codec.Mint(input.KSN, input.AIDN)
		if err != nil {
			return apperr.Internal(err)
		}

		keychain := &Keychain{KSN: input.KSN, AIDN: input.AIDN, Token: token}
		if err := repository.Create(lockCtx, keychain); err != nil {
			if dberr.IsUniqueViolation(err, ConstraintToken) {
				return apperr.InternalMessage("Keychain token collision", err)
			}
			return err
		}

		issued = keychain
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("keychain_manager_issue_failed: %w", err)
	}

	manager.recorder.RecordIssued()
	manager.recorder.RecordExpired(metrics.ReasonSuperseded, superseded)

	ctxutil.GetLogger(ctx).InfoContext(ctx, "keychain_issued",
		slog.Int64("keychain_id", issued.ID),
		slog.Int64("ksn", input.KSN),
		slog.Int64("aidn", input.AIDN),
		slog.Bool("remember_me", input.RememberMe),
		slog.Int("superseded", superseded),
	)
	return issued, nil
}

// # Verify

// VerifyInput is what a caller presents to prove a live session.
type VerifyInput struct {
	AIDN     int64
	Key      string
	Appchain string
}

// Verification is the sanitized result of a successful [Manager.Verify].
type Verification struct {
	Keychain *Summary        `json:"keychain"`
	Account  *account.Account `json:"account"`
}

/*
Verify authenticates a presented keychain.

Description: Checks run in a fixed order and the first failure wins:
appchain, token lookup, stored flag, signature, signed expiry, aidn binding,
owning account.

Returns:
  - *Verification: Sanitized keychain and account
  - error:
  - apperr.NotFound: unknown aidn, unknown token or missing account
  - apperr.Forbidden: appchain mismatch or aidn mismatch
  - apperr.Unauthorized: expired by flag or by payload
  - apperr.IntegrityViolation: signature not produced by the active secret
*/
func (manager *Manager) Verify(context context.Context, input VerifyInput) (*Verification, error) {
	logger := ctxutil.GetLogger(context).With(slog.Int64("aidn", input.AIDN))

	// 1. Application trust
	if err := manager.applications.ValidateSecret(context, input.AIDN, input.Appchain); err != nil {
		manager.recordFailure(err)
		return nil, err
	}

	// 2. Stored record
	keychain, err := manager.repository.FindByToken(context, input.Key)
	if err != nil {
		if apperr.IsNotFound(err) {
			logging.Alert(context, logger, "keychain_unknown_token")
			manager.recorder.RecordVerification(metrics.ResultNotFound)
			return nil, apperr.NotFound("Keychain")
		}
		manager.recorder.RecordVerification(metrics.ResultUnavailable)
		return nil, fmt.Errorf("keychain_manager_verify_failed: %w", err)
	}
	logger = logger.With(slog.Int64("keychain_id", keychain.ID))

	// 3. Stored flag (terminal)
	if keychain.Expired {
		logger.InfoContext(context, "keychain_expired_by_flag")
		manager.recorder.RecordVerification(metrics.ResultExpired)
		return nil, apperr.Unauthorized("Keychain has expired")
	}

	// 4. Signature
	payload, err := manager.codec.Decode(keychain.Token)
	if err != nil {
		logging.Fatal(context, logger, "keychain_integrity_violation", slog.String("error", err.Error()))
		manager.recorder.RecordVerification(metrics.ResultIntegrity)
		return nil, apperr.IntegrityViolation(err)
	}

	// 5. Signed expiry, written back before the failure is reported
	if !payload.ExpiresAt.After(manager.now()) {
		manager.expireLazily(context, logger, keychain.ID)
		manager.recorder.RecordVerification(metrics.ResultExpired)
		return nil, apperr.Unauthorized("Keychain has expired")
	}

	// 6. Binding to the presenting application
	if payload.AIDN != input.AIDN {
		logging.Alert(context, logger, "keychain_aidn_mismatch", slog.Int64("payload_aidn", payload.AIDN))
		manager.recorder.RecordVerification(metrics.ResultForbidden)
		return nil, apperr.Forbidden("aidn mismatch")
	}

	// 7-8. Owner
	owner, err := manager.accounts.FindByKSN(context, keychain.KSN)
	if err != nil {
		if apperr.IsNotFound(err) {
			logging.Fatal(context, logger, "keychain_owner_missing", slog.Int64("ksn", keychain.KSN))
			manager.recorder.RecordVerification(metrics.ResultNotFound)
			return nil, apperr.NotFound("Account")
		}
		manager.recorder.RecordVerification(metrics.ResultUnavailable)
		return nil, fmt.Errorf("keychain_manager_verify_failed: %w", err)
	}

	manager.recorder.RecordVerification(metrics.ResultOK)
	return &Verification{Keychain: keychain.Summary(), Account: owner.Sanitized()}, nil
}

// expireLazily writes the expired flag back. A failed write is logged and
// never replaces the expiry error the caller is about to return.
func (manager *Manager) expireLazily(context context.Context, logger *slog.Logger, id int64) {
	if err := manager.repository.MarkExpired(context, id); err != nil {
		logger.ErrorContext(context, "keychain_lazy_expiry_write_failed", slog.String("error", err.Error()))
		return
	}
	manager.recorder.RecordExpired(metrics.ReasonLazy, 1)
	logger.InfoContext(context, "keychain_expired_by_payload")
}

func (manager *Manager) recordFailure(err error) {
	switch {
	case apperr.IsNotFound(err):
		manager.recorder.RecordVerification(metrics.ResultNotFound)
	case apperr.HasCode(err, apperr.CodeForbidden):
		manager.recorder.RecordVerification(metrics.ResultForbidden)
	default:
		manager.recorder.RecordVerification(metrics.ResultUnavailable)
	}
}

/*
VerifySession adapts [Manager.Verify] for the HTTP gates.

Returns:
  - *ctxutil.Session: Keychain id, owner and the owner's permissions
  - error: Same as Verify
*/
func (manager *Manager) VerifySession(context context.Context, aidn int64, key, appchain string) (*ctxutil.Session, error) {
	verification, err := manager.Verify(context, VerifyInput{AIDN: aidn, Key: key, Appchain: appchain})
	if err != nil {
		return nil, err
	}
	return &ctxutil.Session{
		KeychainID:  verification.Keychain.ID,
		KSN:         verification.Keychain.KSN,
		AIDN:        verification.Keychain.AIDN,
		Permissions: verification.Account.Permissions,
	}, nil
}

// # Close

/*
Close expires keychain id on behalf of application aidn.

Returns:
  - error: NotFound/Forbidden from the trust check, or Internal when no
    keychain has id. Closing an unknown id is never a silent success.
*/
func (manager *Manager) Close(context context.Context, id, aidn int64, appchain string) error {
	if err := manager.applications.ValidateSecret(context, aidn, appchain); err != nil {
		return err
	}

	logger := ctxutil.GetLogger(context).With(slog.Int64("keychain_id", id), slog.Int64("aidn", aidn))

	err := manager.repository.MarkExpired(context, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			logging.Fatal(context, logger, "keychain_close_matched_nothing")
			return apperr.InternalMessage("Close keychain failed", err)
		}
		return fmt.Errorf("keychain_manager_close_failed: %w", err)
	}

	manager.recorder.RecordExpired(metrics.ReasonClosed, 1)
	logger.InfoContext(context, "keychain_closed")
	return nil
}

// # Administration

// ListAll returns every keychain, expired included, without tokens.
func (manager *Manager) ListAll(context context.Context) ([]*Keychain, error) {
	keychains, err := manager.repository.ListAll(context)
	if err != nil {
		return nil, fmt.Errorf("keychain_manager_list_failed: %w", err)
	}

	return slice.Map(keychains, (*Keychain).Redacted), nil
}

