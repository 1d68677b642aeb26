package handlers

import (
	"context"
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AuthCore is the set of operations the auth routes call into.
type AuthCore interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	SocialLogin(ctx context.Context, provider models.Provider, accessToken string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, accessToken string) (*services.AccessClaims, error)
}

type AuthHandler struct {
	auth AuthCore
}

func NewAuthHandler(auth AuthCore) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.auth.Register(c.UserContext(), req.Input())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusCreated, "User registered successfully", dto.NewAuthData(res))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusOK, "Login successful", dto.NewAuthData(res))
}

func (h *AuthHandler) SocialLogin(c *fiber.Ctx) error {
	var req dto.SocialLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	provider, err := req.Validate()
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.auth.SocialLogin(c.UserContext(), provider, req.AccessToken)
	if err != nil {
		return writeError(c, err)
	}
	code := fiber.StatusOK
	if res.Created {
		code = fiber.StatusCreated
	}
	return respond(c, code, "Social login successful", dto.NewAuthData(res))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusOK, "Token refreshed successfully", dto.NewAuthData(res))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.auth.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: msgInvalidToken, StatusCode: fiber.StatusUnauthorized,
		})
	}

	claims, err := h.auth.ValidateToken(c.UserContext(), token)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusOK, "Token is valid", dto.NewTokenPayload(claims))
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
