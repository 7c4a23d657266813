// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kreativeid/internal/platform/sec"
)

const (
	testSecret = "keychain-test-secret-0123456789abcdef"
	testTTL    = 30 * 24 * time.Hour
)

func newCodec(t *testing.T) *sec.KeychainCodec {
	t.Helper()
	codec, err := sec.NewKeychainCodec(testSecret, testTTL)
	require.NoError(t, err)
	return codec
}

/*
TestKeychainCodec_RoundTrip verifies that decode(mint(ksn, aidn)) preserves the
identifiers and the validity window.
*/
func TestKeychainCodec_RoundTrip(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newCodec(t).WithClock(func() time.Time { return fixed })

	token, err := codec.Mint(12345678, 100000)
	require.NoError(t, err)

	payload, err := codec.Decode(token)
	require.NoError(t, err)

	assert.Equal(t, int64(12345678), payload.KSN)
	assert.Equal(t, int64(100000), payload.AIDN)
	assert.True(t, payload.IssuedAt.Equal(fixed))
	assert.Equal(t, testTTL, payload.ExpiresAt.Sub(payload.IssuedAt))
	assert.NotEmpty(t, payload.Nonce)
}

/*
TestKeychainCodec_Uniqueness verifies that two tokens minted for the same pair
at the same instant differ.
*/
func TestKeychainCodec_Uniqueness(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newCodec(t).WithClock(func() time.Time { return fixed })

	first, err := codec.Mint(12345678, 100000)
	require.NoError(t, err)
	second, err := codec.Mint(12345678, 100000)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestKeychainCodec_DecodeIgnoresExpiry verifies that the codec does not enforce
expiry itself.
*/
func TestKeychainCodec_DecodeIgnoresExpiry(t *testing.T) {
	past := time.Now().Add(-testTTL - time.Hour)
	codec := newCodec(t).WithClock(func() time.Time { return past })

	token, err := codec.Mint(12345678, 100000)
	require.NoError(t, err)

	payload, err := newCodec(t).Decode(token)
	require.NoError(t, err)
	assert.True(t, payload.ExpiresAt.Before(time.Now()))
}

/*
TestKeychainCodec_InvalidSignature covers tokens the active secret did not produce.
*/
func TestKeychainCodec_InvalidSignature(t *testing.T) {
	other, err := sec.NewKeychainCodec("a-completely-different-secret-value!!", testTTL)
	require.NoError(t, err)

	foreign, err := other.Mint(12345678, 100000)
	require.NoError(t, err)

	genuine, err := newCodec(t).Mint(12345678, 100000)
	require.NoError(t, err)
	parts := strings.Split(genuine, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
	}{
		{"foreign_secret", foreign},
		{"tampered_signature", tampered},
		{"garbage", "not-a-token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newCodec(t).Decode(tt.token)
			assert.ErrorIs(t, err, sec.ErrInvalidSignature)
		})
	}
}

/*
TestNewKeychainCodec_Rejects verifies constructor guards.
*/
func TestNewKeychainCodec_Rejects(t *testing.T) {
	_, err := sec.NewKeychainCodec("", testTTL)
	assert.Error(t, err)

	_, err = sec.NewKeychainCodec(testSecret, 0)
	assert.Error(t, err)
}
