package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SessionRevoker interface {
	RevokeAll(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type Sweeper interface {
	RunOnce(ctx context.Context) (tokens, logs int64, err error)
}

// AdminHandler serves session and maintenance routes behind the admin guard.
type AdminHandler struct {
	sessions SessionRevoker
	sweeper  Sweeper
}

func NewAdminHandler(sessions SessionRevoker, sweeper Sweeper) *AdminHandler {
	return &AdminHandler{sessions: sessions, sweeper: sweeper}
}

func (h *AdminHandler) RevokeSessions(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid account id")
	}

	n, err := h.sessions.RevokeAll(c.UserContext(), accountID)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusOK, "Sessions revoked", dto.RevokeResponse{SessionsRevoked: n})
}

func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	tokens, logs, err := h.sweeper.RunOnce(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, fiber.StatusOK, "Sweep completed", dto.SweepResponse{
		TokensDeleted: tokens,
		LogsDeleted:   logs,
	})
}
