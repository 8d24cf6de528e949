package auth

import (
	"strings"

	"sigma/internal/apperror"
	"sigma/internal/repository"

	"github.com/gofiber/fiber/v2"
)

const identityLocalsKey = "identity"

// Authenticated extracts the bearer token, resolves it and stores the
// identity in the request locals. Identity is re-resolved on every request;
// there is deliberately no caching in front of authorization decisions.
func Authenticated(resolver *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorizedResponse(c, "Missing Authorization header")
		}
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return unauthorizedResponse(c, "Invalid Authorization header")
		}

		identity, err := resolver.Resolve(c.Context(), authHeader[7:])
		if err != nil {
			kind := apperror.KindOf(err)
			return c.Status(kind.HTTPStatus()).JSON(fiber.Map{
				"error": fiber.Map{"status": kind.String(), "message": "Could not validate credentials"},
			})
		}

		c.Locals(identityLocalsKey, identity)
		return c.Next()
	}
}

// RequirePermissions gates the request on a statically declared permission
// set, then expands hierarchical scope for the identities that carry it.
func RequirePermissions(repo repository.Repository, required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromCtx(c)
		if !ok {
			return unauthorizedResponse(c, "Missing identity")
		}

		if err := Authorize(identity, required...); err != nil {
			kind := apperror.KindOf(err)
			return c.Status(kind.HTTPStatus()).JSON(fiber.Map{
				"error": fiber.Map{"status": kind.String(), "message": "Insufficient permissions"},
			})
		}

		expanded, err := ExpandScope(c.Context(), repo, identity)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{"status": "INTERNAL", "message": "Internal server error"},
			})
		}

		c.Locals(identityLocalsKey, expanded)
		return c.Next()
	}
}

// IdentityFromCtx returns the identity stored by Authenticated.
func IdentityFromCtx(c *fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(identityLocalsKey).(Identity)
	return identity, ok
}

func unauthorizedResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{"status": "UNAUTHENTICATED", "message": message},
	})
}
