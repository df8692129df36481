// Package identkey turns an email address into the key that whitelist,
// pending-request and repair entries are stored under.
//
// The encoding is unpadded URL-safe base64 of the exact bytes of the
// address. It is injective and reversible, and its alphabet ([A-Za-z0-9_-])
// never contains a path separator, so a key is always a single segment in
// every store backend. Case is preserved: "A@x.com" and "a@x.com" are two
// different keys, matching how the whitelist has always been populated.
package identkey

import (
	"encoding/base64"
	"strings"

	"github.com/sakif/family-catalog/internal/apperror"
)

// Keys with non-zero trailing bits do not decode; each address has exactly
// one key.
var encoding = base64.RawURLEncoding.Strict()

// Encode returns the lookup key for email.
func Encode(email string) string {
	return encoding.EncodeToString([]byte(email))
}

// Decode reverses Encode.
func Decode(key string) (string, error) {
	if key == "" {
		return "", apperror.ValidationFailed("key", "identity key is required")
	}
	raw, err := encoding.DecodeString(key)
	if err != nil {
		return "", apperror.ValidationFailed("key", "identity key is malformed")
	}
	return string(raw), nil
}

// Normalize strips surrounding whitespace from user input. It does not
// fold case.
func Normalize(email string) string {
	return strings.TrimSpace(email)
}
