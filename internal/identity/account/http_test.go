// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kreativeid/internal/identity/account"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/sec"
)

const handlerKSN = int64(12345678)

func passThrough(next http.Handler) http.Handler { return next }

// asOwner stands in for the session gate and attaches a verified session.
func asOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := ctxutil.WithSession(request.Context(), &ctxutil.Session{KSN: handlerKSN, AIDN: 100000})
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func newHandlerFixture(t *testing.T) (http.Handler, *account.Service) {
	t.Helper()

	hash, err := sec.HashPassword("original-password")
	require.NoError(t, err)

	repository := account.NewMemoryRepository()
	repository.Put(&account.Account{
		KSN:          handlerKSN,
		Email:        "ada@kreativeusa.com",
		Username:     "ada",
		PasswordHash: hash,
		ResetCode:    424242,
		Permissions:  []string{},
	})

	service := account.NewService(repository, &recordingNotifier{})
	return account.NewHandler(service, passThrough, asOwner).Routes(), service
}

func serve(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHandler_UpdateUsesSessionAccount(t *testing.T) {
	handler, service := newHandlerFixture(t)

	response := serve(handler, http.MethodPost, "/update", `{"firstName":"Augusta"}`)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	assert.Contains(t, response.Body.String(), "Augusta")

	stored, err := service.FindByKSN(context.Background(), handlerKSN)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", stored.FirstName)
}

func TestHandler_ResetFlow(t *testing.T) {
	handler, service := newHandlerFixture(t)

	wrong := serve(handler, http.MethodPost, "/12345678/resetCode/verify", `{"resetCode":111111}`)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	right := serve(handler, http.MethodPost, "/12345678/resetCode/verify", `{"resetCode":424242}`)
	assert.Equal(t, http.StatusOK, right.Code, right.Body.String())

	reset := serve(handler, http.MethodPost, "/12345678/resetPassword", `{"password":"brand-new-password"}`)
	require.Equal(t, http.StatusOK, reset.Code, reset.Body.String())

	stored, err := service.FindByKSN(context.Background(), handlerKSN)
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("brand-new-password", stored.PasswordHash))
}

func TestHandler_GetAndMalformedKSN(t *testing.T) {
	handler, _ := newHandlerFixture(t)

	found := serve(handler, http.MethodGet, "/12345678", "")
	require.Equal(t, http.StatusOK, found.Code)
	assert.NotContains(t, found.Body.String(), "424242")

	malformed := serve(handler, http.MethodGet, "/not-a-number", "")
	assert.Equal(t, http.StatusBadRequest, malformed.Code)

	unknown := serve(handler, http.MethodGet, "/87654321", "")
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}
