// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: Kreative header names and keychain parameters.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "kreativeid"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Kreative Headers

const (
	// HeaderKeychain carries the keychain token presented by a client.
	HeaderKeychain = "KREATIVE_ID_KEY"

	// HeaderAIDN carries the application id a request claims to act for.
	HeaderAIDN = "KREATIVE_AIDN"

	// HeaderAppchain carries the application's shared secret.
	HeaderAppchain = "KREATIVE_APPCHAIN"

	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # Identifiers

const (
	// KSNLength is the digit count of an account service number.
	KSNLength = 8

	// AIDNLength is the digit count of an application id number.
	AIDNLength = 6

	// ResetCodeLength is the digit count of a password reset code.
	ResetCodeLength = 6

	// AppchainLength is the character count of a generated appchain.
	AppchainLength = 32

	// IdentifierMaxAttempts bounds the generate-check-create retry loops.
	IdentifierMaxAttempts = 5
)

// # JSON Field Identifiers

const (
	FieldData       = "data"
	FieldError      = "error"
	FieldCode       = "code"
	FieldDetails    = "details"
	FieldMessage    = "message"
	FieldStatusCode = "statusCode"
	FieldStatus     = "status"
	FieldChecks     = "checks"
)

// # Redis Keys

const (
	// RedisKeyPostageOutbox is the list holding queued outbound emails.
	RedisKeyPostageOutbox = "postage:outbox"
)
