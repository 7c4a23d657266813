// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/kreativeid/internal/identity/account"
	requestutil "github.com/taibuivan/kreativeid/internal/platform/request"
	"github.com/taibuivan/kreativeid/internal/platform/respond"
)

// Handler implements the sign-up and sign-in endpoints. They are mounted
// under /v1/accounts next to the account routes.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// # Request Payloads

type signupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AIDN      int64  `json:"aidn"`
}

type signinRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	AIDN       int64  `json:"aidn"`
	RememberMe bool   `json:"rememberMe"`
}

// # Handlers

/*
Signup handles POST /v1/accounts/signup.

Response:
  - 200: {account, keychain}
  - 400: Validation failure
  - 403: Email already registered
  - 404: Unknown aidn
*/
func (handler *Handler) Signup(writer http.ResponseWriter, request *http.Request) {
	var input signupRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Signup(request.Context(), SignupInput{
		CreateInput: account.CreateInput{
			Username:  input.Username,
			Email:     input.Email,
			Password:  input.Password,
			FirstName: input.FirstName,
			LastName:  input.LastName,
		},
		AIDN: input.AIDN,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account created", session)
}

/*
Signin handles POST /v1/accounts/signin.

Response:
  - 200: {account, keychain}
  - 401: Password mismatch
  - 404: No account for the email, or unknown aidn
*/
func (handler *Handler) Signin(writer http.ResponseWriter, request *http.Request) {
	var input signinRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Signin(request.Context(), SigninInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account logged in", session)
}
