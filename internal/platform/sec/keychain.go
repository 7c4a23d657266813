// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and keychain token handling.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token signing, random
// identifiers) from the domain logic. The [KeychainCodec] is constructed once
// from configuration and injected into the keychain manager.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/kreativeid/pkg/uuid"
)

// ErrInvalidSignature is returned by [KeychainCodec.Decode] when a token was not
// produced by the active secret or cannot be parsed at all.
var ErrInvalidSignature = errors.New("sec: keychain signature invalid")

// KeychainClaims is the signed payload embedded inside a keychain token.
//
// The registered claims carry iat, exp and the jti nonce. No two tokens share
// a jti, so minting twice for the same pair within one second still yields
// distinct strings.
type KeychainClaims struct {
	jwt.RegisteredClaims

	KSN  int64 `json:"ksn"`
	AIDN int64 `json:"aidn"`
}

// Payload is the decoded, caller-facing view of [KeychainClaims].
type Payload struct {
	KSN       int64
	AIDN      int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	Nonce     string
}

// KeychainCodec mints and decodes HS256-signed keychain tokens.
//
// The codec validates signature and structure only. Expiry is evaluated by the
// caller against [Payload.ExpiresAt].
type KeychainCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

/*
NewKeychainCodec creates a codec bound to a signing secret.

Parameters:
  - secret: string (HS256 key, shared by mint and decode)
  - ttl: time.Duration (validity window embedded in each token)

Returns:
  - *KeychainCodec: The codec instance
  - error: When the secret is empty or the ttl is not positive
*/
func NewKeychainCodec(secret string, ttl time.Duration) (*KeychainCodec, error) {
	if secret == "" {
		return nil, errors.New("sec: keychain secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("sec: keychain ttl must be positive, got %s", ttl)
	}
	return &KeychainCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of the codec reading the current time from now.
func (codec *KeychainCodec) WithClock(now func() time.Time) *KeychainCodec {
	clone := *codec
	clone.now = now
	return &clone
}

// Mint signs a new token for (ksn, aidn) with issuedAt = now and
// expiresAt = now + ttl.
func (codec *KeychainCodec) Mint(ksn, aidn int64) (string, error) {
	issuedAt := codec.now().Truncate(time.Second)
	claims := KeychainClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(codec.ttl)),
		},
		KSN:  ksn,
		AIDN: aidn,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign keychain: %w", err)
	}
	return signed, nil
}

// Decode verifies the token signature and returns its payload. Any failure,
// including a malformed token, wraps [ErrInvalidSignature].
func (codec *KeychainCodec) Decode(token string) (*Payload, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &KeychainClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return codec.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !parsed.Valid || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: incomplete payload", ErrInvalidSignature)
	}

	return &Payload{
		KSN:       claims.KSN,
		AIDN:      claims.AIDN,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		Nonce:     claims.ID,
	}, nil
}
