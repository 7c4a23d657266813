// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/kreativeid/internal/platform/apperr"
	"github.com/taibuivan/kreativeid/internal/platform/constants"
	"github.com/taibuivan/kreativeid/internal/platform/ctxutil"
	"github.com/taibuivan/kreativeid/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Int64Param parses a numeric URL parameter such as {ksn}, {aidn} or {id}.

Returns:
  - int64: The parsed value
  - error: apperr.ValidationError if the segment is not a positive integer
*/
func Int64Param(request *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(chi.URLParam(request, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, validate.RequiredError(name, "Must be a positive integer")
	}
	return value, nil
}

// Credentials is the application identity a caller presents in headers.
type Credentials struct {
	Key      string
	AIDN     int64
	Appchain string
}

/*
HeaderCredentials reads the Kreative headers (key, aidn, appchain).

When requireKey is false the keychain header may be absent.

Returns:
  - Credentials: The presented values
  - error: apperr.ValidationError when a required header is missing or malformed
*/
func HeaderCredentials(request *http.Request, requireKey bool) (Credentials, error) {
	credentials := Credentials{
		Key:      strings.TrimSpace(request.Header.Get(constants.HeaderKeychain)),
		Appchain: strings.TrimSpace(request.Header.Get(constants.HeaderAppchain)),
	}

	rawAIDN := strings.TrimSpace(request.Header.Get(constants.HeaderAIDN))
	if rawAIDN == "" || credentials.Appchain == "" || (requireKey && credentials.Key == "") {
		return credentials, apperr.ValidationError("Kreative credentials missing in headers")
	}

	aidn, err := strconv.ParseInt(rawAIDN, 10, 64)
	if err != nil {
		return credentials, apperr.ValidationError("Malformed " + constants.HeaderAIDN + " header")
	}
	credentials.AIDN = aidn

	return credentials, nil
}

/*
RequiredSession returns the verified keychain session attached by the admin gate.

Returns:
  - *ctxutil.Session: The verified session
  - error: apperr.Unauthorized if the request did not pass through the gate
*/
func RequiredSession(request *http.Request) (*ctxutil.Session, error) {
	session := ctxutil.GetSession(request.Context())
	if session == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return session, nil
}
