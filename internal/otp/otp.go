// Package otp generates the short-lived numeric codes used for email
// verification and password reset.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// Digits is the fixed code length. Six uniform digits give a 1-in-10^6
// guess within the expiry window.
const Digits = 6

var codeSpace = big.NewInt(1_000_000)

// Generate returns a zero-padded 6-digit code from crypto/rand.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Digest returns the hex SHA-256 of a code. Only digests are persisted;
// the raw code exists solely in the email sent to the user.
func Digest(code string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(code)))
}
