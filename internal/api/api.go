// Package api exposes the HTTP surface: route registration, request
// decoding and the translation of domain errors into JSON responses.
package api

import (
	"log/slog"
	"time"

	"sigma/internal/account"
	"sigma/internal/apperror"
	"sigma/internal/auth"
	"sigma/internal/repository"
	"sigma/internal/session"
	"sigma/internal/validator"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	logger    *slog.Logger
	repo      repository.Repository
	resolver  *auth.Resolver
	authn     *account.Authenticator
	accounts  *account.Manager
	sessions  *session.Manager
	validator *validator.Validator
	version   string
}

func NewHandler(logger *slog.Logger, repo repository.Repository, resolver *auth.Resolver, authn *account.Authenticator, accounts *account.Manager, sessions *session.Manager, version string) Handler {
	return Handler{
		logger:    logger,
		repo:      repo,
		resolver:  resolver,
		authn:     authn,
		accounts:  accounts,
		sessions:  sessions,
		validator: validator.New(),
		version:   version,
	}
}

// Health returns the health status of the application.
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.repo.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.version,
	})
}

// fail translates a domain error into the JSON error envelope. Unclassified
// errors are logged and reported as a bare internal error.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)

	message := "Internal server error"
	if kind != apperror.KindInternal {
		message = err.Error()
	} else {
		h.logger.ErrorContext(c.Context(), "request failed", "path", c.Path(), "error", err)
	}

	return c.Status(kind.HTTPStatus()).JSON(fiber.Map{
		"error": fiber.Map{"status": kind.String(), "message": message},
	})
}

// decode parses the JSON body into dst and runs struct validation.
func (h *Handler) decode(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := h.validator.Validate(dst); err != nil {
		return apperror.BadRequest("validation failed: " + err.Error())
	}
	return nil
}

func identity(c *fiber.Ctx) auth.Identity {
	id, _ := auth.IdentityFromCtx(c)
	return id
}
