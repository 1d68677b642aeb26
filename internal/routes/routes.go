package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	Health *handlers.HealthHandler
	Admin  *handlers.AdminHandler
}

type Options struct {
	Auth         services.AuthConfig
	IsAdminEmail func(email string) bool
	// RateLimit disables the per-IP limiters when false; tests turn it off.
	RateLimit bool
}

func Setup(app *fiber.App, opts Options, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	if opts.RateLimit {
		// General API rate limiter: 60 req/min per IP
		api.Use(perIPLimiter(60))
	}

	api.Get("/health", h.Health.Check)

	auth := api.Group("/auth")
	if opts.RateLimit {
		// Stricter limit on credential endpoints: 10 req/min per IP
		auth.Use(perIPLimiter(10))
	}
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/social-login", h.Auth.SocialLogin)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/validate", h.Auth.Validate)

	admin := api.Group("/admin",
		middleware.JWTProtected(opts.Auth),
		middleware.AdminRequired(opts.IsAdminEmail),
	)
	admin.Delete("/accounts/:id/sessions", h.Admin.RevokeSessions)
	admin.Post("/tokens/sweep", h.Admin.Sweep)
}

func perIPLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}
