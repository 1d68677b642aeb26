package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuth = services.AuthConfig{
	Secret: []byte("0123456789abcdef0123456789abcdef"),
	Issuer: "identity-test",
}

func sign(t *testing.T, secret []byte, claims services.AccessClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func claimsFor(subject, email string, role models.Role, exp time.Duration) services.AccessClaims {
	now := time.Now()
	return services.AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testAuth.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
	}
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTProtected(testAuth), func(c *fiber.Ctx) error {
		claims, _ := Claims(c)
		return c.SendString(claims.Email)
	})
	app.Get("/admin",
		JWTProtected(testAuth),
		AdminRequired(func(email string) bool { return email == "ops@x.com" }),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
	)
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestJWTProtected(t *testing.T) {
	app := newProtectedApp()
	id := uuid.NewString()

	wrongIssuer := claimsFor(id, "a@x.com", models.RoleUser, time.Minute)
	wrongIssuer.Issuer = "someone-else"

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", sign(t, testAuth.Secret, claimsFor(id, "a@x.com", models.RoleUser, time.Minute)), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"expired", sign(t, testAuth.Secret, claimsFor(id, "a@x.com", models.RoleUser, -time.Minute)), http.StatusUnauthorized},
		{"wrong secret", sign(t, []byte("another-secret-another-secret-xx"), claimsFor(id, "a@x.com", models.RoleUser, time.Minute)), http.StatusUnauthorized},
		{"wrong issuer", sign(t, testAuth.Secret, wrongIssuer), http.StatusUnauthorized},
		{"subject not a uuid", sign(t, testAuth.Secret, claimsFor("42", "a@x.com", models.RoleUser, time.Minute)), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, get(t, app, "/me", tc.token))
		})
	}
}

func TestAdminRequired(t *testing.T) {
	app := newProtectedApp()
	id := uuid.NewString()

	assert.Equal(t, http.StatusNoContent, get(t, app, "/admin", sign(t, testAuth.Secret, claimsFor(id, "boss@x.com", models.RoleAdmin, time.Minute))))
	assert.Equal(t, http.StatusNoContent, get(t, app, "/admin", sign(t, testAuth.Secret, claimsFor(id, "ops@x.com", models.RoleUser, time.Minute))))
	assert.Equal(t, http.StatusForbidden, get(t, app, "/admin", sign(t, testAuth.Secret, claimsFor(id, "a@x.com", models.RoleUser, time.Minute))))
}
