package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

const (
	msgUnauthorized = "Invalid credentials"
	msgInvalidToken = "Invalid or expired token"
	msgInternal     = "Internal server error"
)

// writeError is the single place where core errors become HTTP statuses.
// Messages for rejected credentials or tokens never say why.
func writeError(c *fiber.Ctx, err error) error {
	var (
		code = fiber.StatusInternalServerError
		msg  = msgInternal
	)
	switch {
	case errors.Is(err, services.ErrAlreadyExists):
		code, msg = fiber.StatusConflict, "Account already exists"
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidProviderToken),
		errors.Is(err, services.ErrProviderConflict):
		code, msg = fiber.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, services.ErrUnsupportedProvider):
		code, msg = fiber.StatusBadRequest, "Unsupported provider"
	case errors.Is(err, services.ErrPasswordTooLong):
		code, msg = fiber.StatusBadRequest, "Password is too long"
	case errors.Is(err, services.ErrInvalidToken):
		code, msg = fiber.StatusUnauthorized, msgInvalidToken
	default:
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: msg, StatusCode: code})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: msg, StatusCode: fiber.StatusBadRequest,
	})
}

func respond(c *fiber.Ctx, code int, msg string, data any) error {
	return c.Status(code).JSON(dto.Response{Message: msg, Data: data, StatusCode: code})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// ErrorHandler handles errors that escape route handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := msgInternal
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = msgInternal
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message, StatusCode: code})
}
