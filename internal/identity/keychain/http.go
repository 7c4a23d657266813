// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keychain

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	requestutil "github.com/taibuivan/kreativeid/internal/platform/request"
	"github.com/taibuivan/kreativeid/internal/platform/respond"
	"github.com/taibuivan/kreativeid/internal/platform/validate"
)

// Handler implements the HTTP layer for keychains.
type Handler struct {
	manager   *Manager
	adminGate func(http.Handler) http.Handler
}

// NewHandler constructs a new keychain [Handler]. Listing sits behind adminGate.
func NewHandler(manager *Manager, adminGate func(http.Handler) http.Handler) *Handler {
	return &Handler{manager: manager, adminGate: adminGate}
}

// Routes returns a [chi.Router] configured with the keychain endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(handler.adminGate).Get("/", handler.list)
	router.Post("/verify", handler.verify)
	router.Post("/{id}/close", handler.close)

	return router
}

// GET /v1/keychains.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	keychains, err := handler.manager.ListAll(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Keychains found", map[string]any{"keychains": keychains})
}

type verifyRequest struct {
	AIDN     int64  `json:"aidn"`
	Key      string `json:"key"`
	Appchain string `json:"appchain"`
}

/*
POST /v1/keychains/verify.

Request Body:
  - aidn: number
  - key: string (the keychain token)
  - appchain: string

Response:
  - 200: {keychain, account} (both sanitized)
  - 401: Expired
  - 403: Appchain or aidn mismatch
  - 404: Unknown aidn, token or account; integrity violation
*/
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	var input verifyRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Positive("aidn", input.AIDN).Required("key", input.Key).Required("appchain", input.Appchain)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	verification, err := handler.manager.Verify(request.Context(), VerifyInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Keychain is valid", verification)
}

type closeRequest struct {
	AIDN     int64  `json:"aidn"`
	Appchain string `json:"appchain"`
}

/*
POST /v1/keychains/{id}/close.

Response:
  - 200: Keychain closed
  - 403: Appchain mismatch
  - 500: No keychain with that id
*/
func (handler *Handler) close(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input closeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.AIDN <= 0 || input.Appchain == "" {
		respond.Error(writer, request, apperr.ValidationError("aidn and appchain are required"))
		return
	}

	if err := handler.manager.Close(request.Context(), id, input.AIDN, input.Appchain); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Keychain closed", nil)
}
