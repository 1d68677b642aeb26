package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping       func(ctx context.Context) error
	tokenStore string
}

// NewHealthHandler takes the database ping; nil means no database is used.
func NewHealthHandler(ping func(ctx context.Context) error, tokenStore string) *HealthHandler {
	return &HealthHandler{ping: ping, tokenStore: tokenStore}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status, dbStatus := "ok", "disabled"
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		dbStatus = "ok"
		if err := h.ping(ctx); err != nil {
			status, dbStatus = "degraded", "unhealthy"
		}
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DB:         dbStatus,
		TokenStore: h.tokenStore,
	})
}
