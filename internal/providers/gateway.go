// Package providers verifies access or identity tokens issued by external
// identity providers and normalizes the result into a Profile.
package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidToken        = errors.New("invalid provider token")
)

// Profile is the normalized identity returned by every provider.
type Profile struct {
	Provider   models.Provider
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
	Avatar     *string
}

// Verifier turns one provider's token into a Profile.
type Verifier interface {
	Provider() models.Provider
	VerifyToken(ctx context.Context, token string) (*Profile, error)
}

// Gateway dispatches to the Verifier registered for a provider and bounds
// each call with a timeout.
type Gateway struct {
	verifiers map[models.Provider]Verifier
	timeout   time.Duration
}

func NewGateway(timeout time.Duration, verifiers ...Verifier) *Gateway {
	g := &Gateway{
		verifiers: make(map[models.Provider]Verifier, len(verifiers)),
		timeout:   timeout,
	}
	for _, v := range verifiers {
		g.verifiers[v.Provider()] = v
	}
	return g
}

// Supports reports whether a verifier is registered for provider.
func (g *Gateway) Supports(provider models.Provider) bool {
	_, ok := g.verifiers[provider]
	return ok
}

// Verify returns ErrUnsupportedProvider when no verifier is registered and
// ErrInvalidToken for every verification failure. The underlying cause is
// logged and wrapped as text only.
func (g *Gateway) Verify(ctx context.Context, provider models.Provider, token string) (*Profile, error) {
	v, ok := g.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	profile, err := v.VerifyToken(ctx, token)
	if err != nil {
		cause := redact(err.Error(), token)
		slog.Warn("provider token verification failed",
			"provider", provider,
			"error", cause,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, cause)
	}
	if profile.ProviderID == "" || profile.Email == "" {
		slog.Warn("provider profile incomplete", "provider", provider)
		return nil, fmt.Errorf("%w: profile missing id or email", ErrInvalidToken)
	}

	profile.Provider = provider
	return profile, nil
}

func redact(msg, token string) string {
	msg = strings.ReplaceAll(msg, token, "[REDACTED]")
	if escaped := url.QueryEscape(token); escaped != token {
		msg = strings.ReplaceAll(msg, escaped, "[REDACTED]")
	}
	return msg
}
