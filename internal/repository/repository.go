// Package repository holds the storage backends behind the auth core.
//
// Every backend enforces the same constraints: email is unique
// (case-insensitive, callers pass it normalized), (provider, provider_id) is
// unique, (account, provider) is unique, and deleting a refresh token reports
// whether this call removed the row. The core relies on those constraints
// instead of locking.
package repository

import (
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// NormalizeEmail is the canonical form used as the uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
