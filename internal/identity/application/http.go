// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/kreativeid/internal/platform/request"
	"github.com/taibuivan/kreativeid/internal/platform/respond"
)

// Handler implements the HTTP layer for application management.
type Handler struct {
	applicationService *Service
	adminGate          func(http.Handler) http.Handler
}

// NewHandler constructs a new application [Handler]. Registration, listing,
// updates and deletion sit behind adminGate.
func NewHandler(service *Service, adminGate func(http.Handler) http.Handler) *Handler {
	return &Handler{applicationService: service, adminGate: adminGate}
}

// Routes returns a [chi.Router] configured with the application endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Administrative
	router.Group(func(admin chi.Router) {
		admin.Use(handler.adminGate)
		admin.Post("/", handler.register)
		admin.Get("/", handler.list)
		admin.Post("/{aidn}", handler.update)
		admin.Delete("/{aidn}", handler.delete)
	})

	// Public
	router.Get("/{aidn}", handler.get)
	router.Post("/{aidn}/appchain/verify", handler.verifyAppchain)

	return router
}

// applicationRequest carries the descriptive fields shared by create and update.
type applicationRequest struct {
	Name            string `json:"name"`
	CallbackURL     string `json:"callbackUrl"`
	Homepage        string `json:"homepage"`
	Description     string `json:"description"`
	LogoURL         string `json:"logoUrl"`
	IconURL         string `json:"iconUrl"`
	RefreshAppchain bool   `json:"refreshAppchain"`
}

func (input applicationRequest) toRegisterInput() RegisterInput {
	return RegisterInput{
		Name:        input.Name,
		CallbackURL: input.CallbackURL,
		Homepage:    input.Homepage,
		Description: input.Description,
		LogoURL:     input.LogoURL,
		IconURL:     input.IconURL,
	}
}

/*
POST /v1/applications.

Response:
  - 200: {application} including the appchain (shown once)
  - 400: Validation failure
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input applicationRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	application, err := handler.applicationService.Register(request.Context(), input.toRegisterInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Application created", map[string]any{"application": application})
}

// GET /v1/applications.
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	applications, err := handler.applicationService.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Applications found", applications)
}

// GET /v1/applications/{aidn}.
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	aidn, err := requestutil.Int64Param(request, "aidn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	application, err := handler.applicationService.Get(request.Context(), aidn)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Application found", map[string]any{"application": application})
}

/*
POST /v1/applications/{aidn}.

Description: Replaces the descriptive fields. With refreshAppchain=true the
secret is rotated and the new value is returned once.
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	aidn, err := requestutil.Int64Param(request, "aidn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input applicationRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	application, err := handler.applicationService.Update(request.Context(), aidn, UpdateInput{
		RegisterInput:   input.toRegisterInput(),
		RefreshAppchain: input.RefreshAppchain,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Application updated", map[string]any{"application": application})
}

// DELETE /v1/applications/{aidn}.
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	aidn, err := requestutil.Int64Param(request, "aidn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.applicationService.Delete(request.Context(), aidn); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Application deleted", nil)
}

type verifyAppchainRequest struct {
	Appchain string `json:"appchain"`
}

/*
POST /v1/applications/{aidn}/appchain/verify.

Response:
  - 200: {application} without the appchain
  - 403: Appchain mismatch
  - 404: Unknown aidn
*/
func (handler *Handler) verifyAppchain(writer http.ResponseWriter, request *http.Request) {
	aidn, err := requestutil.Int64Param(request, "aidn")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input verifyAppchainRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	application, err := handler.applicationService.VerifyAppchain(request.Context(), aidn, input.Appchain)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Appchain verified", map[string]any{"application": application})
}
