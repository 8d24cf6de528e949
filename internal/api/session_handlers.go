package api

import (
	"errors"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/session"
	"sigma/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createSessionRequest struct {
	LodgeID  uuid.UUID `json:"lodge_id" validate:"required"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	Type     string    `json:"type" validate:"required,oneof=ordinary grand extraordinary"`
	Subtype  string    `json:"subtype"`
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.authorizeLodgeAccess(c, req.LodgeID); err != nil {
		return h.fail(c, err)
	}

	created, err := h.sessions.Create(c.Context(), session.CreateParam{
		LodgeID:  req.LodgeID,
		StartsAt: req.StartsAt,
		Type:     model.SessionType(req.Type),
		Subtype:  req.Subtype,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListSessions returns the sessions of every lodge in the caller's scope.
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	lodgeIDs, err := scopeLodgeIDs(c, identity(c))
	if err != nil {
		return h.fail(c, err)
	}

	sessions, err := h.repo.ListSessionsByLodges(c.Context(), lodgeIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	s, err := h.loadScopedSession(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s)
}

type updateSessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled in_progress held cancelled"`
}

func (h *Handler) UpdateSessionStatus(c *fiber.Ctx) error {
	s, err := h.loadScopedSession(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req updateSessionStatusRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	updated, err := h.sessions.UpdateStatus(c.Context(), s.ID, model.SessionStatus(req.Status))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) GetSessionRoster(c *fiber.Ctx) error {
	s, err := h.loadScopedSession(c)
	if err != nil {
		return h.fail(c, err)
	}

	roster, err := h.repo.ListAttendanceBySession(c.Context(), s.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"attendance": roster})
}

type recordAttendanceRequest struct {
	MemberID  *uuid.UUID `json:"member_id"`
	VisitorID *uuid.UUID `json:"visitor_id"`
	Status    string     `json:"status" validate:"required,oneof=present excused absent"`
}

func (h *Handler) RecordAttendance(c *fiber.Ctx) error {
	s, err := h.loadScopedSession(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req recordAttendanceRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	participant, err := model.NewParticipant(req.MemberID, req.VisitorID)
	if err != nil {
		return h.fail(c, apperror.BadRequest(err.Error()))
	}

	attendance, err := h.sessions.RecordAttendance(c.Context(), session.RecordAttendanceParam{
		SessionID:   s.ID,
		Participant: participant,
		Status:      model.AttendanceStatus(req.Status),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(attendance)
}

type admitVisitorRequest struct {
	Name            string     `json:"name" validate:"required"`
	Email           string     `json:"email" validate:"omitempty,email"`
	OriginLodgeID   *uuid.UUID `json:"origin_lodge_id"`
	OriginLodgeName string     `json:"origin_lodge_name"`
}

func (h *Handler) AdmitVisitor(c *fiber.Ctx) error {
	s, err := h.loadScopedSession(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req admitVisitorRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	param := session.AdmitVisitorParam{
		SessionID:       s.ID,
		Name:            req.Name,
		OriginLodgeName: req.OriginLodgeName,
	}
	if req.Email != "" {
		param.Email = util.Some(req.Email)
	}
	if req.OriginLodgeID != nil {
		param.OriginLodgeID = util.Some(*req.OriginLodgeID)
	}

	visitor, attendance, err := h.sessions.AdmitVisitor(c.Context(), param)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"visitor":    visitor,
		"attendance": attendance,
	})
}

func (h *Handler) RemoveVisitor(c *fiber.Ctx) error {
	visitorID, err := uuid.Parse(c.Params("visitorId"))
	if err != nil {
		return h.fail(c, apperror.BadRequest("invalid visitor id"))
	}

	if err := h.sessions.RemoveVisitor(c.Context(), visitorID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type checkinRequest struct {
	LodgeID uuid.UUID `json:"lodge_id" validate:"required"`
}

// Checkin records attendance from a scanned lodge QR code. Any authenticated
// member or visitor may call it; scope and window checks live in the manager.
func (h *Handler) Checkin(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.fail(c, apperror.BadRequest("invalid session id"))
	}

	var req checkinRequest
	if err := h.decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	attendance, err := h.sessions.CheckinViaCode(c.Context(), sessionID, req.LodgeID, identity(c), time.Now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(attendance)
}

// loadScopedSession parses the session id parameter, loads the session and
// verifies its lodge is inside the caller's scope.
func (h *Handler) loadScopedSession(c *fiber.Ctx) (model.Session, error) {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return model.Session{}, apperror.BadRequest("invalid session id")
	}

	s, err := h.repo.GetSessionByID(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, apperror.NotFound("session not found")
		}
		return model.Session{}, err
	}

	if err := h.authorizeLodgeAccess(c, s.LodgeID); err != nil {
		return model.Session{}, err
	}
	return s, nil
}
