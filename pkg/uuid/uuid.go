// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the opaque identifiers used for request correlation
and keychain nonces.

Version 7 values are preferred so identifiers sort by creation time in logs.
A random version 4 value is returned when the clock-based generator fails.
*/
package uuid

import "github.com/google/uuid"

// New returns a new identifier string.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
