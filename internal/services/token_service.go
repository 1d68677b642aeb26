package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenBytes = 32

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessClaims is the payload of an access token. Subject holds the account id.
type AccessClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// TokenManager signs access tokens and owns the refresh token lifecycle.
type TokenManager struct {
	cfg      AuthConfig
	tokens   TokenStore
	accounts AccountFinder
	now      func() time.Time
}

func NewTokenManager(cfg AuthConfig, tokens TokenStore, accounts AccountFinder) *TokenManager {
	return &TokenManager{
		cfg:      cfg,
		tokens:   tokens,
		accounts: accounts,
		now:      time.Now,
	}
}

// IssueTokenPair signs a fresh access token and persists a new refresh token.
func (m *TokenManager) IssueTokenPair(ctx context.Context, accountID uuid.UUID, email string, role models.Role) (*TokenPair, error) {
	now := m.now()

	accessExp := now.Add(m.cfg.AccessTTL)
	claims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID.String(),
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return nil, internalErr("sign access token", err)
	}

	raw, err := newRefreshToken()
	if err != nil {
		return nil, internalErr("generate refresh token", err)
	}
	refreshExp := now.Add(m.cfg.RefreshTTL)
	record := models.RefreshToken{
		ID:        uuid.New(),
		AccountID: accountID,
		TokenHash: HashToken(raw),
		ExpiresAt: refreshExp,
		CreatedAt: now,
	}
	if err := m.tokens.Create(ctx, &record); err != nil {
		return nil, internalErr("store refresh token", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     raw,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Rotate consumes presented and issues a new pair for its owner. Only one of
// several concurrent callers presenting the same token can win the delete.
func (m *TokenManager) Rotate(ctx context.Context, presented string) (*TokenPair, *models.Account, error) {
	hash := HashToken(presented)

	stored, err := m.tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, internalErr("find refresh token", err)
	}

	if stored.Expired(m.now()) {
		if _, err := m.tokens.DeleteByHash(ctx, hash); err != nil {
			return nil, nil, internalErr("delete expired refresh token", err)
		}
		return nil, nil, ErrTokenExpired
	}

	deleted, err := m.tokens.DeleteByHash(ctx, hash)
	if err != nil {
		return nil, nil, internalErr("consume refresh token", err)
	}
	if !deleted {
		return nil, nil, ErrInvalidToken
	}

	account, err := m.accounts.FindByID(ctx, stored.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, internalErr("load refresh token owner", err)
	}

	pair, err := m.IssueTokenPair(ctx, account.ID, account.Email, account.Role)
	if err != nil {
		return nil, nil, err
	}
	return pair, account, nil
}

// Revoke deletes the refresh token. An unknown token is not an error.
func (m *TokenManager) Revoke(ctx context.Context, presented string) error {
	if _, err := m.tokens.DeleteByHash(ctx, HashToken(presented)); err != nil {
		return internalErr("revoke refresh token", err)
	}
	return nil
}

// RevokeAll deletes every refresh token held by the account.
func (m *TokenManager) RevokeAll(ctx context.Context, accountID uuid.UUID) (int64, error) {
	n, err := m.tokens.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, internalErr("revoke account refresh tokens", err)
	}
	return n, nil
}

// Sweep removes refresh tokens that are past their expiry.
func (m *TokenManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.tokens.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, internalErr("sweep expired refresh tokens", err)
	}
	return n, nil
}

// ValidateAccess checks signature, issuer and expiry. Every failure is
// reported as ErrInvalidToken.
func (m *TokenManager) ValidateAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		slog.Debug("access token rejected", "error", err)
		return nil, ErrInvalidToken
	}
	if _, err := claims.AccountID(); err != nil {
		slog.Debug("access token rejected", "error", fmt.Errorf("subject: %w", err))
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// HashToken is the storage key for a refresh token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
