package middleware

import (
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userKey = "user"

// JWTProtected accepts HS256 access tokens minted by the token manager and
// stores the parsed token under c.Locals("user").
func JWTProtected(cfg services.AuthConfig) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: cfg.Secret},
		Claims:     &services.AccessClaims{},
		ContextKey: userKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			claims, ok := Claims(c)
			if !ok || (cfg.Issuer != "" && claims.Issuer != cfg.Issuer) {
				return unauthorized(c)
			}
			if _, err := claims.AccountID(); err != nil {
				return unauthorized(c)
			}
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

// Claims returns the access token claims set by JWTProtected.
func Claims(c *fiber.Ctx) (*services.AccessClaims, bool) {
	token, ok := c.Locals(userKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(*services.AccessClaims)
	return claims, ok
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:      true,
		Message:    "Unauthorized: invalid or expired token",
		StatusCode: fiber.StatusUnauthorized,
	})
}
