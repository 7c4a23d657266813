// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/kreativeid/internal/platform/request"
	"github.com/taibuivan/kreativeid/internal/platform/respond"
)

// SessionVerifier runs the full keychain verification for a presented key.
// Implemented by the keychain manager.
type SessionVerifier interface {
	VerifySession(ctx context.Context, aidn int64, key, appchain string) (*ctxutil.Session, error)
}

// AppchainValidator checks a presented appchain against the registered one.
type AppchainValidator interface {
	ValidateSecret(ctx context.Context, aidn int64, appchain string) error
}

// AdminPolicy configures [RequireAdmin].
type AdminPolicy struct {
	// HostAIDN is the application the keychain must have been minted for.
	HostAIDN int64
	// Permissions lists the permissions that grant access (any one suffices).
	Permissions []string
}

// RequireAdmin guards administrative routes with a Kreative keychain.
//
// # Flow
//  1. Read KREATIVE_ID_KEY, KREATIVE_AIDN and KREATIVE_APPCHAIN (400 if missing).
//  2. Verify the keychain. An unknown key or aidn is reported as 401.
//  3. Require one of the admin permissions (403).
//  4. Require the keychain to belong to the host application (401).
//  5. Inject [*ctxutil.Session] into the request context.
func RequireAdmin(verifier SessionVerifier, policy AdminPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			credentials, err := requestutil.HeaderCredentials(request, true)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			session, err := verifier.VerifySession(request.Context(), credentials.AIDN, credentials.Key, credentials.Appchain)
			if err != nil {
				if apperr.IsNotFound(err) {
					err = apperr.Unauthorized("aidn or key is not found").WithCause(err)
				}
				respond.Error(writer, request, err)
				return
			}

			if !hasAnyPermission(session.Permissions, policy.Permissions) {
				respond.Error(writer, request, apperr.Forbidden("Account does not have the required permissions"))
				return
			}

			if session.AIDN != policy.HostAIDN {
				respond.Error(writer, request, apperr.Unauthorized("Keychain aidn does not match the host application"))
				return
			}

			ctx := ctxutil.WithSession(request.Context(), session)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireSession verifies the presented keychain and injects the session
// without any permission or host checks. It guards self-service routes where
// the caller acts on its own account.
func RequireSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			credentials, err := requestutil.HeaderCredentials(request, true)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			session, err := verifier.VerifySession(request.Context(), credentials.AIDN, credentials.Key, credentials.Appchain)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := ctxutil.WithSession(request.Context(), session)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireApp guards routes that a registered application calls on its own
// behalf (KREATIVE_AIDN + KREATIVE_APPCHAIN).
func RequireApp(validator AppchainValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			credentials, err := requestutil.HeaderCredentials(request, false)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			if err := validator.ValidateSecret(request.Context(), credentials.AIDN, credentials.Appchain); err != nil {
				respond.Error(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

func hasAnyPermission(held, required []string) bool {
	for _, permission := range required {
		if slices.Contains(held, permission) {
			return true
		}
	}
	return false
}
