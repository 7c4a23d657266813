// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package permission

import (
	"net/http"

	requestutil "github.com/taibuivan/kreativeid/internal/platform/request"
	"github.com/taibuivan/kreativeid/internal/platform/respond"
)

// Handler exposes the gate over HTTP.
type Handler struct {
	gate *Gate
}

// NewHandler constructs a new permission [Handler].
func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

type updateRequest struct {
	AIDN           int64    `json:"aidn"`
	Key            string   `json:"key"`
	Appchain       string   `json:"appchain"`
	NewPermissions []string `json:"newPermissions"`
}

/*
Update handles POST /v1/accounts/update/permissions.

Description: The body carries its own keychain proof, so the route is not
wrapped in a gate middleware.

Response:
  - 200: {account}
  - 400: Validation failure
  - 401/403/404: Keychain verification failures
  - 500: Persisting the merged set failed
*/
func (handler *Handler) Update(writer http.ResponseWriter, request *http.Request) {
	var input updateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.gate.UpdatePermissions(request.Context(), UpdateInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account permissions updated", map[string]any{"account": updated})
}
