package dto

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
)

const MinPasswordLength = 8

// MaxPasswordLength is the bcrypt input limit, in bytes.
const MaxPasswordLength = 72

var (
	ErrEmailInvalid     = errors.New("a valid email is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrProviderInvalid  = errors.New("provider must be one of google, facebook, apple, instagram")
	ErrTokenRequired    = errors.New("token is required")
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r *RegisterRequest) Validate() error {
	if !validEmail(r.Email) {
		return ErrEmailInvalid
	}
	if len(r.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(r.Password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func (r *RegisterRequest) Input() services.RegisterInput {
	return services.RegisterInput{
		Email:     strings.TrimSpace(r.Email),
		Password:  r.Password,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if !validEmail(r.Email) {
		return ErrEmailInvalid
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

type SocialLoginRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"accessToken"`
}

// Validate also resolves the provider; "email" is not a social provider.
func (r *SocialLoginRequest) Validate() (models.Provider, error) {
	p, ok := models.ParseProvider(strings.ToLower(strings.TrimSpace(r.Provider)))
	if !ok || p == models.ProviderEmail {
		return "", ErrProviderInvalid
	}
	if strings.TrimSpace(r.AccessToken) == "" {
		return "", ErrTokenRequired
	}
	return p, nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return ErrTokenRequired
	}
	return nil
}

type LogoutRequest = RefreshRequest

// AuthData mirrors the token pair handed to clients.
type AuthData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
}

func NewAuthData(res *services.AuthResult) AuthData {
	return AuthData{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		UserID:       res.Account.ID.String(),
		Email:        res.Account.Email,
	}
}

// TokenPayload is the decoded content of a valid access token.
type TokenPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

func NewTokenPayload(c *services.AccessClaims) TokenPayload {
	p := TokenPayload{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   string(c.Role),
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Unix()
	}
	return p
}

// Response is the envelope for every successful call.
type Response struct {
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	StatusCode int    `json:"statusCode"`
}

type ErrorResponse struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	DB         string `json:"db"`
	TokenStore string `json:"token_store"`
}

type SweepResponse struct {
	TokensDeleted int64 `json:"tokensDeleted"`
	LogsDeleted   int64 `json:"logsDeleted"`
}

type RevokeResponse struct {
	SessionsRevoked int64 `json:"sessionsRevoked"`
}

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
