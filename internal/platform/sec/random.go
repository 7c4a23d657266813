// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// # Alphabets

const (
	// NonZeroDigits never yields a leading zero, so every id keeps its length.
	NonZeroDigits = "123456789"

	// AllDigits is used for reset codes.
	AllDigits = "0123456789"

	// AppchainAlphabet is the character set of generated appchains.
	AppchainAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSecureToken returns length characters drawn uniformly from alphabet
// using crypto/rand.
func GenerateSecureToken(length int, alphabet string) (string, error) {
	if length <= 0 || alphabet == "" {
		return "", fmt.Errorf("sec: invalid token shape (length=%d)", length)
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("sec: failed to read random source: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateNumericID returns a length-digit number drawn from a digit alphabet.
// A result of zero (possible only with [AllDigits]) is redrawn.
func GenerateNumericID(length int, alphabet string) (int64, error) {
	for {
		raw, err := GenerateSecureToken(length, alphabet)
		if err != nil {
			return 0, err
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sec: non numeric alphabet: %w", err)
		}
		if id != 0 {
			return id, nil
		}
	}
}
