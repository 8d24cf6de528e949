package api

import (
	"sigma/internal/auth"
	"sigma/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the full HTTP surface on the app. The authenticated
// group re-resolves the identity on every request; permission sets are
// declared per route.
func RegisterRoutes(app *fiber.App, h *Handler, resolver *auth.Resolver, repo repository.Repository) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	// Credential flows, no token required.
	v1.Post("/auth/super-admin/login", h.LoginSuperAdmin)
	v1.Post("/auth/webmaster/login", h.LoginWebmaster)
	v1.Post("/auth/login", h.LoginLodgeMember)
	v1.Post("/auth/forgot-password", h.ForgotPassword)
	v1.Post("/auth/reset-password", h.ResetPassword)

	authed := v1.Group("", auth.Authenticated(resolver), TenantLodge(repo))

	authed.Get("/auth/me", h.Me)
	authed.Post("/auth/refresh", h.Refresh)
	authed.Post("/auth/select-lodge", h.SelectLodge)

	// Check-in is open to member and visitor tokens alike; the session
	// manager enforces lodge and time-window rules.
	authed.Post("/sessions/:id/checkin", h.Checkin)

	authed.Post("/lodges", requireSuperAdmin(), h.CreateLodge)
	authed.Get("/lodges/:id", auth.RequirePermissions(repo), h.GetLodge)
	authed.Get("/lodges/:id/next-session", auth.RequirePermissions(repo, "read:sessions"), h.SuggestNextSession)

	authed.Get("/members", auth.RequirePermissions(repo, "read:lodge_members"), h.ListMembers)

	authed.Post("/sessions", auth.RequirePermissions(repo, "manage:sessions"), h.CreateSession)
	authed.Get("/sessions", auth.RequirePermissions(repo, "read:sessions"), h.ListSessions)
	authed.Get("/sessions/:id", auth.RequirePermissions(repo, "read:sessions"), h.GetSession)
	authed.Patch("/sessions/:id/status", auth.RequirePermissions(repo, "manage:sessions"), h.UpdateSessionStatus)
	authed.Get("/sessions/:id/attendance", auth.RequirePermissions(repo, "read:sessions"), h.GetSessionRoster)
	authed.Post("/sessions/:id/attendance", auth.RequirePermissions(repo, "manage:sessions"), h.RecordAttendance)
	authed.Post("/sessions/:id/visitors", auth.RequirePermissions(repo, "manage:visitors"), h.AdmitVisitor)
	authed.Delete("/visitors/:visitorId", auth.RequirePermissions(repo, "manage:visitors"), h.RemoveVisitor)
}

// requireSuperAdmin restricts a route to the super admin profile. Webmasters
// bypass permission checks inside their lodge but cannot provision lodges.
func requireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := auth.IdentityFromCtx(c)
		if !ok || id.Profile != auth.ProfileSuperAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": fiber.Map{"status": "FORBIDDEN", "message": "super admin required"},
			})
		}
		return c.Next()
	}
}
