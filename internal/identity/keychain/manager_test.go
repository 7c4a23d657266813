// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keychain_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kreativeid/internal/identity/account"
	"github.com/taibuivan/kreativeid/internal/identity/application"
	"github.com/taibuivan/kreativeid/internal/identity/keychain"
	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/metrics"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
)

const (
	testSecret = "kreative-keychain-test-secret-0123456789"
	testTTL    = 30 * 24 * time.Hour

	ksn         = int64(12345678)
	exemptKSN   = int64(57427833)
	aidn        = int64(100000)
	appchain    = "appchain-of-application-100000xx"
	otherAIDN   = int64(200000)
	otherSecret = "appchain-of-application-200000xx"
)

// # Fixture

type countingRecorder struct {
	mu            sync.Mutex
	issued        int
	verifications map[string]int
	expired       map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{verifications: map[string]int{}, expired: map[string]int{}}
}

func (recorder *countingRecorder) RecordIssued() {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.issued++
}

func (recorder *countingRecorder) RecordVerification(result string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.verifications[result]++
}

func (recorder *countingRecorder) RecordExpired(reason string, count int) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.expired[reason] += count
}

type fixture struct {
	manager    *keychain.Manager
	keychains  *keychain.MemoryRepository
	accounts   *account.MemoryRepository
	codec      *sec.KeychainCodec
	recorder   *countingRecorder
	trustStore *application.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := sec.NewKeychainCodec(testSecret, testTTL)
	require.NoError(t, err)

	accounts := account.NewMemoryRepository()
	for _, seeded := range []int64{ksn, exemptKSN} {
		accounts.Put(&account.Account{
			KSN:          seeded,
			Email:        "user@kreativeusa.com",
			Username:     "user",
			PasswordHash: "$2a$10$secret-hash",
			FirstName:    "Kreative",
			LastName:     "User",
			ResetCode:    424242,
			Permissions:  []string{"KREATIVE_ID_DEVELOPER"},
		})
	}

	applications := application.NewMemoryRepository()
	applications.Put(&application.Application{AIDN: aidn, Name: "Hyperlink", Appchain: appchain})
	applications.Put(&application.Application{AIDN: otherAIDN, Name: "Other", Appchain: otherSecret})
	trustStore := application.NewService(applications)

	keychains := keychain.NewMemoryRepository()
	recorder := newCountingRecorder()
	manager := keychain.NewManager(
		keychains,
		codec,
		trustStore,
		account.NewService(accounts, nil),
		keychain.NewDedupPolicy([]int64{exemptKSN}),
		recorder,
	)

	return &fixture{
		manager:    manager,
		keychains:  keychains,
		accounts:   accounts,
		codec:      codec,
		recorder:   recorder,
		trustStore: trustStore,
	}
}

func (f *fixture) issue(t *testing.T, owner, app int64) *keychain.Keychain {
	t.Helper()
	issued, err := f.manager.Issue(context.Background(), keychain.IssueInput{KSN: owner, AIDN: app, RememberMe: true})
	require.NoError(t, err)
	return issued
}

func (f *fixture) state(t *testing.T, id int64) *keychain.Keychain {
	t.Helper()
	stored, ok := f.keychains.Get(id)
	require.True(t, ok, "keychain %d not stored", id)
	return stored
}

// storeToken persists a token minted by codec, bypassing Issue.
func (f *fixture) storeToken(t *testing.T, codec *sec.KeychainCodec, owner, app int64) *keychain.Keychain {
	t.Helper()
	token, err := codec.Mint(owner, app)
	require.NoError(t, err)

	record := &keychain.Keychain{KSN: owner, AIDN: app, Token: token}
	require.NoError(t, f.keychains.Create(context.Background(), record))
	return record
}

// # Issue

func TestIssue_MintsDecodableToken(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)

	assert.NotZero(t, issued.ID)
	assert.NotEmpty(t, issued.Token)
	assert.False(t, issued.Expired)

	payload, err := f.codec.Decode(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, ksn, payload.KSN)
	assert.Equal(t, aidn, payload.AIDN)
	assert.Equal(t, testTTL, payload.ExpiresAt.Sub(payload.IssuedAt))
	assert.Equal(t, 1, f.recorder.issued)
}

/*
TestIssue_SupersedesPrevious: issuing twice for ksn=12345678, aidn=100000
leaves the first keychain EXPIRED.
*/
func TestIssue_SupersedesPrevious(t *testing.T) {
	f := newFixture(t)

	first := f.issue(t, ksn, aidn)
	second := f.issue(t, ksn, aidn)

	assert.True(t, f.state(t, first.ID).Expired)
	assert.False(t, f.state(t, second.ID).Expired)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 1, f.recorder.expired[metrics.ReasonSuperseded])
}

/*
TestIssue_ExemptAccountKeepsSessions: the exempt account keeps both
keychains ACTIVE.
*/
func TestIssue_ExemptAccountKeepsSessions(t *testing.T) {
	f := newFixture(t)

	first := f.issue(t, exemptKSN, aidn)
	second := f.issue(t, exemptKSN, aidn)

	assert.False(t, f.state(t, first.ID).Expired)
	assert.False(t, f.state(t, second.ID).Expired)
	assert.Zero(t, f.recorder.expired[metrics.ReasonSuperseded])
}

func TestIssue_DedupIsScopedToPair(t *testing.T) {
	f := newFixture(t)

	elsewhere := f.issue(t, ksn, otherAIDN)
	f.issue(t, ksn, aidn)
	f.issue(t, ksn, aidn)

	assert.False(t, f.state(t, elsewhere.ID).Expired)
}

/*
TestIssue_ConcurrentLeavesOneActive: the pair lock closes the dedup/create
race, so concurrent sign-ins leave exactly one ACTIVE keychain.
*/
func TestIssue_ConcurrentLeavesOneActive(t *testing.T) {
	f := newFixture(t)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Issue(context.Background(), keychain.IssueInput{KSN: ksn, AIDN: aidn})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	all, err := f.keychains.FindByAccountAndApplication(context.Background(), ksn, aidn)
	require.NoError(t, err)
	require.Len(t, all, workers)

	active := 0
	for _, record := range all {
		if record.Active() {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestIssue_TokenCollisionIsInternal(t *testing.T) {
	f := newFixture(t)
	manager := keychain.NewManager(f.keychains, fixedCodec{KeychainCodec: f.codec, token: "same"}, f.trustStore,
		account.NewService(f.accounts, nil), keychain.NewDedupPolicy(nil), nil)

	_, err := manager.Issue(context.Background(), keychain.IssueInput{KSN: ksn, AIDN: aidn})
	require.NoError(t, err)

	_, err = manager.Issue(context.Background(), keychain.IssueInput{KSN: ksn, AIDN: otherAIDN})
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal), "got %v", err)
}

type fixedCodec struct {
	*sec.KeychainCodec
	token string
}

func (codec fixedCodec) Mint(int64, int64) (string, error) { return codec.token, nil }

// # Verify

func TestVerify_Succeeds(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)

	verification, err := f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: issued.Token, Appchain: appchain})
	require.NoError(t, err)

	assert.Equal(t, issued.ID, verification.Keychain.ID)
	assert.Equal(t, ksn, verification.Keychain.KSN)
	assert.Equal(t, aidn, verification.Keychain.AIDN)
	assert.Equal(t, ksn, verification.Account.KSN)
	assert.Equal(t, 1, f.recorder.verifications[metrics.ResultOK])
}

/*
TestVerify_Sanitizes: the result never carries the token, the expired flag,
the password hash or the reset code.
*/
func TestVerify_Sanitizes(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)

	verification, err := f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: issued.Token, Appchain: appchain})
	require.NoError(t, err)

	assert.Empty(t, verification.Account.PasswordHash)
	assert.Zero(t, verification.Account.ResetCode)

	encoded, err := json.Marshal(verification)
	require.NoError(t, err)
	body := string(encoded)

	assert.NotContains(t, body, issued.Token)
	assert.NotContains(t, body, `"token"`)
	assert.NotContains(t, body, `"expired"`)
	assert.NotContains(t, body, "secret-hash")
	assert.NotContains(t, body, "424242")
}

/*
TestVerify_FailureAxes: every independent failure rejects with its own kind.
*/
func TestVerify_FailureAxes(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture) keychain.VerifyInput
		code   string
		status int
	}{
		{
			name: "wrong_appchain",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				issued := f.issue(t, ksn, aidn)
				return keychain.VerifyInput{AIDN: aidn, Key: issued.Token, Appchain: "wrong"}
			},
			code: apperr.CodeForbidden, status: 403,
		},
		{
			name: "unknown_aidn",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				issued := f.issue(t, ksn, aidn)
				return keychain.VerifyInput{AIDN: 999999, Key: issued.Token, Appchain: appchain}
			},
			code: apperr.CodeNotFound, status: 404,
		},
		{
			name: "aidn_mismatch_with_payload",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				issued := f.issue(t, ksn, aidn)
				return keychain.VerifyInput{AIDN: otherAIDN, Key: issued.Token, Appchain: otherSecret}
			},
			code: apperr.CodeForbidden, status: 403,
		},
		{
			name: "expired_flag",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				issued := f.issue(t, ksn, aidn)
				require.NoError(t, f.keychains.MarkExpired(context.Background(), issued.ID))
				return keychain.VerifyInput{AIDN: aidn, Key: issued.Token, Appchain: appchain}
			},
			code: apperr.CodeUnauthorized, status: 401,
		},
		{
			name: "payload_expired",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				past := f.codec.WithClock(func() time.Time { return time.Now().Add(-testTTL - time.Second) })
				stored := f.storeToken(t, past, ksn, aidn)
				return keychain.VerifyInput{AIDN: aidn, Key: stored.Token, Appchain: appchain}
			},
			code: apperr.CodeUnauthorized, status: 401,
		},
		{
			name: "token_not_stored",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				token, err := f.codec.Mint(ksn, aidn)
				require.NoError(t, err)
				return keychain.VerifyInput{AIDN: aidn, Key: token, Appchain: appchain}
			},
			code: apperr.CodeNotFound, status: 404,
		},
		{
			name: "foreign_signature",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				foreign, err := sec.NewKeychainCodec("another-secret-another-secret-0000", testTTL)
				require.NoError(t, err)
				stored := f.storeToken(t, foreign, ksn, aidn)
				return keychain.VerifyInput{AIDN: aidn, Key: stored.Token, Appchain: appchain}
			},
			code: apperr.CodeIntegrityViolation, status: 404,
		},
		{
			name: "owner_missing",
			setup: func(t *testing.T, f *fixture) keychain.VerifyInput {
				stored := f.storeToken(t, f.codec, 87654321, aidn)
				return keychain.VerifyInput{AIDN: aidn, Key: stored.Token, Appchain: appchain}
			},
			code: apperr.CodeNotFound, status: 404,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			input := tc.setup(t, f)

			verification, err := f.manager.Verify(context.Background(), input)
			assert.Nil(t, verification)

			ae := apperr.As(err)
			require.NotNil(t, ae, "expected an AppError, got %v", err)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.status, ae.HTTPStatus)
		})
	}
}

/*
TestVerify_LazyExpiry: a token whose signed expiresAt is one second in the
past is rejected and the stored record is flipped to expired.
*/
func TestVerify_LazyExpiry(t *testing.T) {
	f := newFixture(t)
	past := f.codec.WithClock(func() time.Time { return time.Now().Add(-testTTL - time.Second) })
	stored := f.storeToken(t, past, ksn, aidn)
	require.False(t, f.state(t, stored.ID).Expired)

	_, err := f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: stored.Token, Appchain: appchain})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.True(t, f.state(t, stored.ID).Expired)
	assert.Equal(t, 1, f.recorder.expired[metrics.ReasonLazy])

	// Second attempt is rejected by the stored flag.
	_, err = f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: stored.Token, Appchain: appchain})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.Equal(t, 1, f.recorder.expired[metrics.ReasonLazy])
}

/*
TestVerify_LazyExpiryWriteFailure: a failed write-back never masks the
expiry failure.
*/
func TestVerify_LazyExpiryWriteFailure(t *testing.T) {
	f := newFixture(t)
	past := f.codec.WithClock(func() time.Time { return time.Now().Add(-testTTL - time.Second) })
	stored := f.storeToken(t, past, ksn, aidn)

	broken := &failingExpiry{MemoryRepository: f.keychains}
	manager := keychain.NewManager(broken, f.codec, f.trustStore, account.NewService(f.accounts, nil), keychain.NewDedupPolicy(nil), nil)

	_, err := manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: stored.Token, Appchain: appchain})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.Equal(t, 1, broken.attempts)
	assert.False(t, f.state(t, stored.ID).Expired)
}

type failingExpiry struct {
	*keychain.MemoryRepository
	attempts int
}

func (repository *failingExpiry) MarkExpired(context.Context, int64) error {
	repository.attempts++
	return errors.New("connection reset")
}

func TestVerify_ClockBoundary(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)
	payload, err := f.codec.Decode(issued.Token)
	require.NoError(t, err)

	// expiresAt == now counts as expired.
	atExpiry := f.manager.WithClock(func() time.Time { return payload.ExpiresAt })
	_, err = atExpiry.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: issued.Token, Appchain: appchain})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.True(t, f.state(t, issued.ID).Expired)
}

func TestVerifySession(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)

	session, err := f.manager.VerifySession(context.Background(), aidn, issued.Token, appchain)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, session.KeychainID)
	assert.Equal(t, ksn, session.KSN)
	assert.Equal(t, aidn, session.AIDN)
	assert.Equal(t, []string{"KREATIVE_ID_DEVELOPER"}, session.Permissions)
}

// # Close

func TestClose(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)

	require.NoError(t, f.manager.Close(context.Background(), issued.ID, aidn, appchain))
	assert.True(t, f.state(t, issued.ID).Expired)
	assert.Equal(t, 1, f.recorder.expired[metrics.ReasonClosed])

	// Closing twice is harmless; verification stays rejected.
	require.NoError(t, f.manager.Close(context.Background(), issued.ID, aidn, appchain))
	_, err := f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: issued.Token, Appchain: appchain})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

// TestClose_UnknownID: closing a nonexistent id is an internal error.
func TestClose_UnknownID(t *testing.T) {
	f := newFixture(t)

	err := f.manager.Close(context.Background(), 424242, aidn, appchain)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeInternal, ae.Code)
	assert.Equal(t, "Close keychain failed", ae.Message)
}

func TestClose_RequiresAppchain(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, ksn, aidn)

	err := f.manager.Close(context.Background(), issued.ID, aidn, "wrong")
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
	assert.False(t, f.state(t, issued.ID).Expired)
}

/*
TestExpiryIsMonotonic: after close, re-issuing and verifying never brings the
old keychain back.
*/
func TestExpiryIsMonotonic(t *testing.T) {
	f := newFixture(t)
	first := f.issue(t, ksn, aidn)
	require.NoError(t, f.manager.Close(context.Background(), first.ID, aidn, appchain))

	second := f.issue(t, ksn, aidn)
	_, err := f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: second.Token, Appchain: appchain})
	require.NoError(t, err)
	_, _ = f.manager.Verify(context.Background(), keychain.VerifyInput{AIDN: aidn, Key: first.Token, Appchain: appchain})

	assert.True(t, f.state(t, first.ID).Expired)
}

// # Administration

func TestListAll(t *testing.T) {
	f := newFixture(t)
	first := f.issue(t, ksn, aidn)
	f.issue(t, ksn, aidn)

	all, err := f.manager.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, first.ID, all[0].ID)
	assert.True(t, all[0].Expired)
	assert.False(t, all[1].Expired)
	for _, listed := range all {
		assert.Empty(t, listed.Token)
	}
}
