package api

import (
	"errors"

	"sigma/internal/account"
	"sigma/internal/apperror"
	"sigma/internal/auth"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createLodgeRequest struct {
	Name   string `json:"name" validate:"required"`
	Code   string `json:"code" validate:"required,lodge_code"`
	Number string `json:"number"`

	WebmasterUsername string `json:"webmaster_username" validate:"required"`
	WebmasterEmail    string `json:"webmaster_email" validate:"required,email"`
	WebmasterPassword string `json:"webmaster_password" validate:"required,password_strength"`

	SuperiorLodgeID *uuid.UUID `json:"superior_lodge_id"`
	Relationship    string     `json:"relationship" validate:"omitempty,oneof=jurisdictional federated subordinate"`
}

// CreateLodge provisions a lodge with its webmaster account. Super admin only.
func (h *Handler) CreateLodge(c *fiber.Ctx) error {
	var req createLodgeRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	param := account.CreateLodgeParam{
		Name:              req.Name,
		Code:              req.Code,
		Number:            req.Number,
		WebmasterUsername: req.WebmasterUsername,
		WebmasterEmail:    req.WebmasterEmail,
		WebmasterPassword: req.WebmasterPassword,
		Relationship:      model.HierarchyRelationship(req.Relationship),
	}
	if req.SuperiorLodgeID != nil {
		param.SuperiorLodgeID = util.Some(*req.SuperiorLodgeID)
	}

	result, err := h.accounts.CreateLodge(c.Context(), identity(c).AccountID(), param)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *Handler) GetLodge(c *fiber.Ctx) error {
	lodgeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.fail(c, apperror.BadRequest("invalid lodge id"))
	}

	if err := h.authorizeLodgeAccess(c, lodgeID); err != nil {
		return h.fail(c, err)
	}

	lodge, err := h.repo.GetLodgeByID(c.Context(), lodgeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.fail(c, apperror.NotFound("lodge not found"))
		}
		return h.fail(c, err)
	}
	return c.JSON(lodge)
}

// SuggestNextSession returns the predicted next session datetime for a lodge,
// or null when the lodge's schedule is not configured.
func (h *Handler) SuggestNextSession(c *fiber.Ctx) error {
	lodgeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.fail(c, apperror.BadRequest("invalid lodge id"))
	}

	if err := h.authorizeLodgeAccess(c, lodgeID); err != nil {
		return h.fail(c, err)
	}

	suggested, err := h.sessions.SuggestNext(c.Context(), lodgeID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"suggested_at": suggested})
}

// ListMembers returns the members of every lodge in the caller's scope.
func (h *Handler) ListMembers(c *fiber.Ctx) error {
	lodgeIDs, err := scopeLodgeIDs(c, identity(c))
	if err != nil {
		return h.fail(c, err)
	}

	members, err := h.repo.ListLodgeMembersByLodges(c.Context(), lodgeIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

// authorizeLodgeAccess checks that the target lodge is inside the caller's
// scope. Super admins pass unconditionally.
func (h *Handler) authorizeLodgeAccess(c *fiber.Ctx, lodgeID uuid.UUID) error {
	id := identity(c)
	if id.Profile == auth.ProfileSuperAdmin {
		return nil
	}
	for _, allowed := range id.LodgeIDs() {
		if allowed == lodgeID {
			return nil
		}
	}
	return apperror.Forbidden("lodge outside the caller's scope")
}
