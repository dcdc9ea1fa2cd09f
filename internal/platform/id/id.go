// Package id generates URL-safe identifiers for sessions and save slots.
//
// Identifiers are UUIDv4 bytes encoded as base32 (RFC 4648) with no
// padding: 26 lowercase characters, safe in URLs, file names and SQLite
// keys.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a fresh identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Valid reports whether s has the shape of an identifier from NewID.
func Valid(s string) bool {
	if len(s) != 26 {
		return false
	}
	raw, err := encoding.DecodeString(strings.ToUpper(s))
	return err == nil && len(raw) == 16 && s == strings.ToLower(s)
}
