package api

import (
	"strings"

	"sigma/internal/account"
	"sigma/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r loginRequest) param() account.LoginParam {
	return account.LoginParam{
		Email:    strings.TrimSpace(strings.ToLower(r.Email)),
		Password: r.Password,
	}
}

func (h *Handler) LoginSuperAdmin(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	result, err := h.authn.LoginSuperAdmin(c.Context(), req.param())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) LoginWebmaster(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	result, err := h.authn.LoginWebmaster(c.Context(), req.param())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) LoginLodgeMember(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	result, err := h.authn.LoginLodgeMember(c.Context(), req.param())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

type selectLodgeRequest struct {
	LodgeID uuid.UUID `json:"lodge_id" validate:"required"`
}

func (h *Handler) SelectLodge(c *fiber.Ctx) error {
	var req selectLodgeRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	result, err := h.authn.SelectLodge(c.Context(), identity(c), req.LodgeID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	result, err := h.authn.Refresh(c.Context(), identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

// Me returns the resolved identity of the caller.
func (h *Handler) Me(c *fiber.Ctx) error {
	id := identity(c)

	response := fiber.Map{
		"profile": id.Profile,
		"role":    id.Role.Name,
	}
	switch id.Profile {
	case auth.ProfileSuperAdmin:
		response["account"] = id.SuperAdmin
	case auth.ProfileWebmaster:
		response["account"] = id.Webmaster
		response["lodge"] = id.Lodge
	case auth.ProfileLodgeMember:
		response["account"] = id.Member
		response["lodge"] = id.Lodge
		permissions := make([]string, 0, len(id.Role.Permissions))
		for action := range id.Role.Permissions {
			permissions = append(permissions, action)
		}
		response["permissions"] = permissions
	case auth.ProfileVisitor:
		response["account"] = id.Visitor
	}
	return c.JSON(response)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.authn.ForgotPassword(c.Context(), strings.TrimSpace(strings.ToLower(req.Email))); err != nil {
		return h.fail(c, err)
	}
	// The message is identical whether or not the account exists.
	return c.JSON(fiber.Map{
		"message": "If the email is registered, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password_strength"`
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.authn.ResetPassword(c.Context(), req.Token, req.NewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}
