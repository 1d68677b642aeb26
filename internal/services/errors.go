package services

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists        = errors.New("account already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidProviderToken = errors.New("invalid provider token")
	ErrUnsupportedProvider  = errors.New("unsupported provider")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrProviderConflict     = errors.New("account already linked to a different identity for this provider")
	ErrPasswordTooLong      = errors.New("password exceeds 72 bytes")
	ErrInternal             = errors.New("internal error")

	// ErrTokenExpired also matches ErrInvalidToken.
	ErrTokenExpired = fmt.Errorf("refresh token expired: %w", ErrInvalidToken)
)

func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// Outcome is a short, bounded label for err, used for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidProviderToken):
		return "invalid_provider_token"
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrProviderConflict):
		return "provider_conflict"
	case errors.Is(err, ErrPasswordTooLong):
		return "invalid_input"
	default:
		return "internal"
	}
}
