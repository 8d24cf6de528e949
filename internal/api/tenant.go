package api

import (
	"errors"

	"sigma/internal/apperror"
	"sigma/internal/auth"
	"sigma/internal/model"
	"sigma/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	lodgeCodeHeader    = "x-lodge-code"
	tenantLodgeLocsKey = "tenant_lodge"
)

// TenantLodge resolves the optional x-lodge-code header into a lodge and
// stores it in the request locals. Super admins use it to pick the lodge
// they operate on; for other profiles it is ignored.
func TenantLodge(repo repository.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Get(lodgeCodeHeader)
		if code == "" {
			return c.Next()
		}

		lodge, err := repo.GetLodgeByCode(c.Context(), code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": fiber.Map{"status": "NOT_FOUND", "message": "unknown lodge code"},
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{"status": "INTERNAL", "message": "Internal server error"},
			})
		}
		if !lodge.Active {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fiber.Map{"status": "NOT_FOUND", "message": "unknown lodge code"},
			})
		}

		c.Locals(tenantLodgeLocsKey, lodge)
		return c.Next()
	}
}

func tenantLodgeFromCtx(c *fiber.Ctx) (model.Lodge, bool) {
	lodge, ok := c.Locals(tenantLodgeLocsKey).(model.Lodge)
	return lodge, ok
}

// scopeLodgeIDs returns the lodge ids a request may read. Members and
// webmasters are bound to their own lodge plus any expanded subordinates;
// super admins must name a lodge through the x-lodge-code header.
func scopeLodgeIDs(c *fiber.Ctx, id auth.Identity) ([]uuid.UUID, error) {
	if id.Profile == auth.ProfileSuperAdmin {
		lodge, ok := tenantLodgeFromCtx(c)
		if !ok {
			return nil, apperror.BadRequest("missing " + lodgeCodeHeader + " header")
		}
		return []uuid.UUID{lodge.ID}, nil
	}

	ids := id.LodgeIDs()
	if len(ids) == 0 {
		return nil, apperror.Forbidden("no lodge scope available")
	}
	return ids, nil
}
