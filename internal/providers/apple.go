package providers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
)

const (
	appleIssuer          = "https://appleid.apple.com"
	appleKeysTTL         = 24 * time.Hour
	appleRefetchInterval = time.Minute
	applePrivateMail     = "privaterelay.appleid.com"
)

type appleJWKS struct {
	Keys []appleJWK `json:"keys"`
}

type appleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type appleClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	jwt.RegisteredClaims
}

// Apple verifies Sign in with Apple identity tokens. Signing keys are cached
// by kid and refetched when an unknown kid shows up.
type Apple struct {
	keys       *gocache.Cache
	fetchMu    sync.Mutex
	lastFetch  time.Time // guarded by fetchMu
	now        func() time.Time
	httpClient *http.Client
	keysURL    string
	clientIDs  []string
}

type AppleConfig struct {
	ClientIDs []string
	KeysURL   string
	Timeout   time.Duration
}

func NewApple(cfg AppleConfig) *Apple {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Apple{
		keys:       gocache.New(appleKeysTTL, time.Hour),
		httpClient: &http.Client{Timeout: timeout},
		keysURL:    cfg.KeysURL,
		clientIDs:  cfg.ClientIDs,
		now:        time.Now,
	}
}

func (a *Apple) Provider() models.Provider { return models.ProviderApple }

func (a *Apple) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	var claims appleClaims
	_, err := jwt.ParseWithClaims(token, &claims, a.keyFunc(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse identity token: %w", err)
	}

	if !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(a.clientIDs, aud)
	}) {
		return nil, fmt.Errorf("invalid audience: %v", claims.Audience)
	}

	if v, ok := claims.EmailVerified.(bool); ok && !v {
		return nil, fmt.Errorf("email %q not verified", claims.Email)
	}
	if v, ok := claims.EmailVerified.(string); ok && v == "false" {
		return nil, fmt.Errorf("email %q not verified", claims.Email)
	}

	email := claims.Email
	if email == "" {
		email = claims.Subject + "@" + applePrivateMail
	}

	return &Profile{
		ProviderID: claims.Subject,
		Email:      email,
	}, nil
}

func (a *Apple) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return a.publicKey(ctx, kid)
	}
}

func (a *Apple) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := a.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}

	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()

	if key, ok := a.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	// Unknown kids are attacker controlled; refetch at most once per window.
	if !a.lastFetch.IsZero() && a.now().Sub(a.lastFetch) < appleRefetchInterval {
		return nil, fmt.Errorf("public key with kid %s not found", kid)
	}
	a.lastFetch = a.now()
	if err := a.fetchKeys(ctx); err != nil {
		return nil, err
	}
	if key, ok := a.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	return nil, fmt.Errorf("public key with kid %s not found", kid)
}

func (a *Apple) fetchKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.keysURL, nil)
	if err != nil {
		return fmt.Errorf("build JWKS request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks appleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	for _, jwk := range jwks.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk.N, jwk.E)
		if err != nil {
			continue
		}
		a.keys.SetDefault(jwk.Kid, pubKey)
	}
	return nil
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
