// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/kreativeid/internal/platform/request"
	"github.com/taibuivan/kreativeid/internal/platform/respond"
)

// Middleware is a standard chi middleware.
type Middleware = func(http.Handler) http.Handler

// Handler implements the HTTP layer for account management.
type Handler struct {
	accountService *Service
	appGate        Middleware
	sessionGate    Middleware
}

/*
NewHandler constructs a new account [Handler].

Parameters:
  - service: *Service
  - appGate: Middleware requiring KREATIVE_AIDN + KREATIVE_APPCHAIN
  - sessionGate: Middleware requiring a verified keychain
*/
func NewHandler(service *Service, appGate, sessionGate Middleware) *Handler {
	return &Handler{accountService: service, appGate: appGate, sessionGate: sessionGate}
}

// Routes returns a [chi.Router] configured with the account endpoints.
// Sign-up, sign-in and permission updates are mounted next to it by the API layer.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Self-service
	router.With(handler.sessionGate).Post("/update", handler.update)

	// Password reset flow
	router.Post("/resetCode/send", handler.sendResetCode)
	router.Post("/{ksn}/resetCode/verify", handler.verifyResetCode)
	router.With(handler.appGate).Post("/{ksn}/resetPassword", handler.resetPassword)

	// Application lookups
	router.With(handler.appGate).Get("/{ksn}", handler.get)

	return router
}

// # Profile Endpoints

/*
GET /v1/accounts/{ksn}.

Response:
  - 200: Account (sanitized)
  - 404: ErrNotFound
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	ksn, err := requestutil.Int64Param(request, "ksn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Get(request.Context(), ksn)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account found", account)
}

// updateRequest is a partial profile update; omitted fields stay unchanged.
type updateRequest struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	Password       *string `json:"password"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	ProfilePicture *string `json:"profilePicture"`
}

/*
POST /v1/accounts/update.

Description: Updates the profile of the account owning the presented keychain.

Response:
  - 200: {account}
  - 400: Validation failure
  - 401/403/404: Keychain verification failures
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	session, err := requestutil.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Update(request.Context(), session.KSN, UpdateInput{
		Username:       input.Username,
		Email:          input.Email,
		Password:       input.Password,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		ProfilePicture: input.ProfilePicture,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account updated", map[string]any{"account": account})
}

// # Password Reset Endpoints

type sendResetCodeRequest struct {
	Email string `json:"email"`
}

/*
POST /v1/accounts/resetCode/send.

Response:
  - 200: Reset code created (the code itself is only sent by email)
  - 404: No account for the email
*/
func (handler *Handler) sendResetCode(writer http.ResponseWriter, request *http.Request) {
	var input sendResetCodeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.SendResetCode(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Reset code created", nil)
}

type verifyResetCodeRequest struct {
	ResetCode int64 `json:"resetCode"`
}

/*
POST /v1/accounts/{ksn}/resetCode/verify.

Response:
  - 200: resetCode verified
  - 401: Reset code mismatch
*/
func (handler *Handler) verifyResetCode(writer http.ResponseWriter, request *http.Request) {
	ksn, err := requestutil.Int64Param(request, "ksn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input verifyResetCodeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.VerifyResetCode(request.Context(), ksn, input.ResetCode); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "resetCode verified", nil)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

/*
POST /v1/accounts/{ksn}/resetPassword.

Response:
  - 200: Password updated
  - 400: Validation failure
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	ksn, err := requestutil.Int64Param(request, "ksn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ResetPassword(request.Context(), ksn, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password updated", nil)
}
