// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/constants"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/middleware"
)

const hostAIDN = 100000

type stubVerifier struct {
	session *ctxutil.Session
	err     error
}

func (stub stubVerifier) VerifySession(context.Context, int64, string, string) (*ctxutil.Session, error) {
	return stub.session, stub.err
}

type stubValidator struct{ err error }

func (stub stubValidator) ValidateSecret(context.Context, int64, string) error { return stub.err }

// okHandler echoes the session KSN so tests can assert on injection.
var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	if session := ctxutil.GetSession(request.Context()); session != nil {
		writer.Header().Set("X-Test-KSN", "present")
	}
	writer.WriteHeader(http.StatusOK)
})

func adminRequest(withHeaders bool) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/v1/keychains", nil)
	if withHeaders {
		request.Header.Set(constants.HeaderKeychain, "token")
		request.Header.Set(constants.HeaderAIDN, "100000")
		request.Header.Set(constants.HeaderAppchain, "appchain")
	}
	return request
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

/*
TestRequireAdmin covers every branch of the administrative keychain gate.
*/
func TestRequireAdmin(t *testing.T) {
	policy := middleware.AdminPolicy{HostAIDN: hostAIDN, Permissions: []string{"KREATIVE_ID_ADMIN", "KREATIVE_ID_DEVELOPER"}}
	admin := &ctxutil.Session{KSN: 12345678, AIDN: hostAIDN, Permissions: []string{"KREATIVE_ID_DEVELOPER"}}

	tests := []struct {
		name       string
		headers    bool
		verifier   stubVerifier
		wantStatus int
		wantCode   string
	}{
		{"missing_headers", false, stubVerifier{session: admin}, http.StatusBadRequest, apperr.CodeValidation},
		{"unknown_key", true, stubVerifier{err: apperr.NotFound("Keychain")}, http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"expired_key", true, stubVerifier{err: apperr.Unauthorized("Keychain expired")}, http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"aidn_mismatch", true, stubVerifier{err: apperr.Forbidden("aidn mismatch")}, http.StatusForbidden, apperr.CodeForbidden},
		{"missing_permission", true, stubVerifier{session: &ctxutil.Session{AIDN: hostAIDN, Permissions: []string{"KREATIVE_ID_USER"}}}, http.StatusForbidden, apperr.CodeForbidden},
		{"foreign_application", true, stubVerifier{session: &ctxutil.Session{AIDN: 200000, Permissions: []string{"KREATIVE_ID_ADMIN"}}}, http.StatusUnauthorized, apperr.CodeUnauthorized},
		{"granted", true, stubVerifier{session: admin}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			middleware.RequireAdmin(tt.verifier, policy)(okHandler).ServeHTTP(recorder, adminRequest(tt.headers))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "present", recorder.Header().Get("X-Test-KSN"))
				return
			}
			body := decodeError(t, recorder)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.EqualValues(t, tt.wantStatus, body["statusCode"])
		})
	}
}

/*
TestRequireSession verifies the self-service gate skips permission checks.
*/
func TestRequireSession(t *testing.T) {
	member := &ctxutil.Session{KSN: 12345678, AIDN: 200000}

	recorder := httptest.NewRecorder()
	middleware.RequireSession(stubVerifier{session: member})(okHandler).ServeHTTP(recorder, adminRequest(true))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "present", recorder.Header().Get("X-Test-KSN"))

	recorder = httptest.NewRecorder()
	middleware.RequireSession(stubVerifier{err: apperr.NotFound("Keychain")})(okHandler).ServeHTTP(recorder, adminRequest(true))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

/*
TestRequireApp verifies the appchain-only gate.
*/
func TestRequireApp(t *testing.T) {
	request := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/v1/accounts/update/permissions", nil)
		r.Header.Set(constants.HeaderAIDN, "100000")
		r.Header.Set(constants.HeaderAppchain, "appchain")
		return r
	}

	recorder := httptest.NewRecorder()
	middleware.RequireApp(stubValidator{})(okHandler).ServeHTTP(recorder, request())
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	middleware.RequireApp(stubValidator{err: apperr.Forbidden("Appchain mismatch")})(okHandler).ServeHTTP(recorder, request())
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = httptest.NewRecorder()
	middleware.RequireApp(stubValidator{})(okHandler).ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

type originPolicy struct {
	development bool
	allowed     string
}

func (policy originPolicy) IsDevelopment() bool { return policy.development }
func (policy originPolicy) IsOriginAllowed(origin string) bool {
	return origin == policy.allowed
}

/*
TestCORS verifies the allow-list outside development.
*/
func TestCORS(t *testing.T) {
	policy := originPolicy{allowed: "https://id.kreativeusa.com"}

	request := httptest.NewRequest(http.MethodOptions, "/v1/keychains/verify", nil)
	request.Header.Set("Origin", "https://id.kreativeusa.com")
	recorder := httptest.NewRecorder()
	middleware.CORS(policy)(okHandler).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://id.kreativeusa.com", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Headers"), constants.HeaderKeychain)

	request = httptest.NewRequest(http.MethodGet, "/v1/keychains/verify", nil)
	request.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	middleware.CORS(policy)(okHandler).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

type countingRecorder struct{ statuses []int }

func (recorder *countingRecorder) RecordHTTPStatus(status int) {
	recorder.statuses = append(recorder.statuses, status)
}

/*
TestChain_RequestIDLoggerRecovery runs the tracing, logging and recovery
middleware together.
*/
func TestChain_RequestIDLoggerRecovery(t *testing.T) {
	counter := &countingRecorder{}
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	handler := middleware.RequestID()(
		middleware.StructuredLogger(ctxutil.GetLogger(context.Background()), counter)(
			middleware.PanicRecovery()(panicking),
		),
	)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/keychains", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
	assert.Equal(t, []int{http.StatusInternalServerError}, counter.statuses)
	assert.Equal(t, apperr.CodeInternal, decodeError(t, recorder)["code"])
}

func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", middleware.RealIP(request))

	request.Header.Set(constants.HeaderXForwardedFor, "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", middleware.RealIP(request))
}
