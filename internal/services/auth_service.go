package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/providers"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/repository"
	"github.com/google/uuid"
)

// AuthResult is what every credential exchange returns.
type AuthResult struct {
	Account *models.Account
	Tokens  *TokenPair
	// Created is set when the call inserted a new account.
	Created bool
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService runs the register, login, social login, refresh, logout and
// validate flows on top of the stores, the provider gateway and the token
// manager.
type AuthService struct {
	cfg         AuthConfig
	accounts    AccountStore
	credentials *Credentials
	resolver    *Resolver
	tokens      *TokenManager
	verifier    ProfileVerifier
}

func NewAuthService(cfg AuthConfig, accounts AccountStore, tokens TokenStore, verifier ProfileVerifier) *AuthService {
	return &AuthService{
		cfg:         cfg,
		accounts:    accounts,
		credentials: NewCredentials(cfg.BcryptCost),
		resolver:    NewResolver(accounts),
		tokens:      NewTokenManager(cfg, tokens, accounts),
		verifier:    verifier,
	}
}

// Tokens exposes the token manager for maintenance jobs and admin routes.
func (s *AuthService) Tokens() *TokenManager {
	return s.tokens
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, "register", start, res, err, "") }()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	email := repository.NormalizeEmail(in.Email)
	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalErr("find account by email", err)
	}

	hash, err := s.credentials.Hash(in.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		return nil, err
	}
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	account := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: &hash,
		Role:         models.RoleUser,
		Status:       models.StatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, internalErr("create account", err)
	}
	metrics.AccountsCreated.WithLabelValues(string(models.ProviderEmail)).Inc()

	pair, err := s.tokens.IssueTokenPair(ctx, account.ID, account.Email, account.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Tokens: pair, Created: true}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, "login", start, res, err, "") }()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.credentials.VerifyPassword(password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, internalErr("find account by email", err)
	}

	if !s.credentials.VerifyPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssueTokenPair(ctx, account.ID, account.Email, account.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Tokens: pair}, nil
}

// SocialLogin verifies the provider token and resolves, links or creates the
// account it belongs to.
func (s *AuthService) SocialLogin(ctx context.Context, provider models.Provider, accessToken string) (res *AuthResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, "social_login", start, res, err, provider) }()

	profile, err := s.verifier.Verify(ctx, provider, accessToken)
	metrics.ProviderVerifications.WithLabelValues(string(provider), verifyOutcome(err)).Inc()
	if err != nil {
		if errors.Is(err, providers.ErrUnsupportedProvider) {
			return nil, ErrUnsupportedProvider
		}
		return nil, ErrInvalidProviderToken
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	account, created, err := s.resolver.ResolveSocial(ctx, profile)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.AccountsCreated.WithLabelValues(string(provider)).Inc()
	}

	pair, err := s.tokens.IssueTokenPair(ctx, account.ID, account.Email, account.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Tokens: pair, Created: created}, nil
}

// Refresh rotates a refresh token. The presented token is invalid afterwards.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *AuthResult, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, "refresh", start, res, err, "") }()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	pair, account, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Tokens: pair}, nil
}

// Logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	start := time.Now()
	defer func() { s.finish(ctx, "logout", start, nil, err, "") }()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *AuthService) ValidateToken(ctx context.Context, accessToken string) (claims *AccessClaims, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOp("validate", Outcome(err), start)
	}()
	return s.tokens.ValidateAccess(accessToken)
}

// RevokeAll ends every session of an account.
func (s *AuthService) RevokeAll(ctx context.Context, accountID uuid.UUID) (n int64, err error) {
	start := time.Now()
	defer func() { s.finish(ctx, "revoke_all", start, &AuthResult{Account: &models.Account{ID: accountID}}, err, "") }()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	return s.tokens.RevokeAll(ctx, accountID)
}

func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *AuthService) finish(ctx context.Context, op string, start time.Time, res *AuthResult, err error, provider models.Provider) {
	outcome := Outcome(err)
	metrics.ObserveOp(op, outcome, start)

	attrs := []any{
		"op", op,
		"outcome", outcome,
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if provider != "" {
		attrs = append(attrs, "provider", string(provider))
	}
	if res != nil && res.Account != nil {
		attrs = append(attrs, "account_id", res.Account.ID.String())
	}

	switch {
	case err == nil:
		slog.InfoContext(ctx, "auth operation completed", attrs...)
	case outcome == "internal":
		slog.ErrorContext(ctx, "auth operation failed", append(attrs, "error", err.Error())...)
	default:
		slog.WarnContext(ctx, "auth operation rejected", append(attrs, "error", err.Error())...)
	}
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, providers.ErrUnsupportedProvider):
		return "unsupported"
	default:
		return "invalid"
	}
}
