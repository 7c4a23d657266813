// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package normalize canonicalises user-supplied identifiers before they are
// compared or stored.
//
// # Usage
//
// Emails and usernames are unique per account, so "Ärmaan@Kreative.com" and
// "ärmaan@kreative.com" must collide. Both are folded to NFKC and lower case.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases without language-specific rules.
var fold = cases.Lower(language.Und)

// Email trims, NFKC-normalises and lowercases an email address.
func Email(s string) string {
	return identifier(s)
}

// Username trims, NFKC-normalises and lowercases a username.
func Username(s string) string {
	return identifier(s)
}

// Name trims surrounding space and applies NFC so visually identical names
// compare equal. Case is preserved.
func Name(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func identifier(s string) string {
	return fold.String(norm.NFKC.String(strings.TrimSpace(s)))
}
