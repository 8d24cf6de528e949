// Package session implements the session lifecycle: creation with roster
// seeding, the status state machine, attendance recording, time-windowed
// check-in and next-session suggestion.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/auth"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/util"

	"github.com/google/uuid"
)

// CheckinWindow bounds check-in around the session start, inclusive on both
// ends: [starts_at - CheckinWindow, starts_at + CheckinWindow].
const CheckinWindow = 2 * time.Hour

type Manager struct {
	repo   repository.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(repo repository.Repository, logger *slog.Logger) *Manager {
	return &Manager{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the manager's time source. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

type CreateParam struct {
	LodgeID  uuid.UUID
	StartsAt time.Time
	Type     model.SessionType
	Subtype  string
}

// Create validates the lodge, inserts the session as Scheduled and seeds one
// Absent attendance row per currently-active member of the lodge. Seeding is
// part of the same transaction as the insert: either the session and its full
// roster become visible, or nothing does.
func (m *Manager) Create(ctx context.Context, param CreateParam) (model.Session, error) {
	if !param.Type.Valid() {
		return model.Session{}, apperror.BadRequest(fmt.Sprintf("invalid session type %q", param.Type))
	}

	if _, err := m.repo.GetLodgeByID(ctx, param.LodgeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, apperror.NotFound(fmt.Sprintf("lodge %s not found", param.LodgeID))
		}
		return model.Session{}, fmt.Errorf("failed to load lodge: %w", err)
	}

	members, err := m.repo.ListActiveLodgeMembers(ctx, param.LodgeID)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to list active members: %w", err)
	}

	now := m.now()
	session := model.Session{
		ID:        uuid.New(),
		LodgeID:   param.LodgeID,
		StartsAt:  param.StartsAt,
		Type:      param.Type,
		Subtype:   param.Subtype,
		Status:    model.SessionScheduled,
		CreatedAt: now,
	}

	roster := make([]model.Attendance, 0, len(members))
	for _, member := range members {
		roster = append(roster, model.Attendance{
			ID:          uuid.New(),
			SessionID:   session.ID,
			Participant: model.MemberParticipant(member.ID),
			Status:      model.AttendanceAbsent,
			CreatedAt:   now,
		})
	}

	if err := m.repo.CreateSessionWithRoster(ctx, session, roster); err != nil {
		return model.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	m.logger.Info("session created",
		"session_id", session.ID, "lodge_id", session.LodgeID, "roster_size", len(roster))
	return session, nil
}

// UpdateStatus moves a session through its lifecycle. The target status must
// be one of the four enumerated values and the transition must be legal;
// Held and Cancelled are terminal.
func (m *Manager) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus) (model.Session, error) {
	if !status.Valid() {
		return model.Session{}, apperror.BadRequest(fmt.Sprintf("invalid session status %q", status))
	}

	session, err := m.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, apperror.NotFound("session not found")
		}
		return model.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	if !session.Status.CanTransitionTo(status) {
		return model.Session{}, apperror.BadRequest(
			fmt.Sprintf("illegal status transition %s -> %s", session.Status, status))
	}

	if err := m.repo.UpdateSessionStatus(ctx, sessionID, status); err != nil {
		return model.Session{}, fmt.Errorf("failed to update session status: %w", err)
	}
	session.Status = status
	return session, nil
}

type RecordAttendanceParam struct {
	SessionID   uuid.UUID
	Participant model.Participant
	Status      model.AttendanceStatus
}

// RecordAttendance creates a fresh attendance row for a participant. A row
// that already exists for the same (session, participant) pair is a conflict.
func (m *Manager) RecordAttendance(ctx context.Context, param RecordAttendanceParam) (model.Attendance, error) {
	if !param.Status.Valid() {
		return model.Attendance{}, apperror.BadRequest(fmt.Sprintf("invalid attendance status %q", param.Status))
	}

	if _, err := m.repo.GetSessionByID(ctx, param.SessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Attendance{}, apperror.NotFound("session not found")
		}
		return model.Attendance{}, fmt.Errorf("failed to load session: %w", err)
	}

	if err := m.validateParticipant(ctx, param.Participant); err != nil {
		return model.Attendance{}, err
	}

	// Best-effort duplicate check; the store's unique constraint is the
	// authoritative guard under concurrency.
	if _, err := m.repo.GetAttendance(ctx, param.SessionID, param.Participant); err == nil {
		return model.Attendance{}, apperror.Conflict("attendance already recorded for this session and participant")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Attendance{}, fmt.Errorf("failed to check existing attendance: %w", err)
	}

	now := m.now()
	attendance := model.Attendance{
		ID:          uuid.New(),
		SessionID:   param.SessionID,
		Participant: param.Participant,
		Status:      param.Status,
		CreatedAt:   now,
	}
	if param.Status == model.AttendancePresent {
		attendance.CheckInAt = util.Some(now)
	}

	if err := m.repo.CreateAttendance(ctx, attendance); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Attendance{}, apperror.Conflict("attendance already recorded for this session and participant")
		}
		return model.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}
	return attendance, nil
}

func (m *Manager) validateParticipant(ctx context.Context, participant model.Participant) error {
	var err error
	if participant.IsMember() {
		_, err = m.repo.GetLodgeMemberByID(ctx, participant.ID)
	} else {
		_, err = m.repo.GetVisitorByID(ctx, participant.ID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(fmt.Sprintf("%s %s not found", participant.Kind, participant.ID))
	}
	if err != nil {
		return fmt.Errorf("failed to load participant: %w", err)
	}
	return nil
}

type AdmitVisitorParam struct {
	SessionID       uuid.UUID
	Name            string
	Email           util.Optional[string]
	OriginLodgeID   util.Optional[uuid.UUID]
	OriginLodgeName string
}

// AdmitVisitor registers a visitor and marks them present on the session in
// one flow: the visitor record is created first, then an attendance row with
// Present status and the admission time as check-in.
func (m *Manager) AdmitVisitor(ctx context.Context, param AdmitVisitorParam) (model.Visitor, model.Attendance, error) {
	if _, err := m.repo.GetSessionByID(ctx, param.SessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Visitor{}, model.Attendance{}, apperror.NotFound("session not found")
		}
		return model.Visitor{}, model.Attendance{}, fmt.Errorf("failed to load session: %w", err)
	}

	now := m.now()
	visitor := model.Visitor{
		ID:              uuid.New(),
		Name:            param.Name,
		Email:           param.Email,
		OriginLodgeID:   param.OriginLodgeID,
		OriginLodgeName: param.OriginLodgeName,
		CreatedAt:       now,
	}
	if err := m.repo.CreateVisitor(ctx, visitor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Visitor{}, model.Attendance{}, apperror.Conflict("visitor email already registered")
		}
		return model.Visitor{}, model.Attendance{}, fmt.Errorf("failed to create visitor: %w", err)
	}

	attendance := model.Attendance{
		ID:          uuid.New(),
		SessionID:   param.SessionID,
		Participant: model.VisitorParticipant(visitor.ID),
		Status:      model.AttendancePresent,
		CheckInAt:   util.Some(now),
		CreatedAt:   now,
	}
	if err := m.repo.CreateAttendance(ctx, attendance); err != nil {
		return model.Visitor{}, model.Attendance{}, fmt.Errorf("failed to create visitor attendance: %w", err)
	}

	return visitor, attendance, nil
}

// RemoveVisitor deletes the visitor's attendance rows and then the visitor
// itself, in that order. Removing an unknown visitor is a no-op.
func (m *Manager) RemoveVisitor(ctx context.Context, visitorID uuid.UUID) error {
	if err := m.repo.DeleteVisitorWithAttendance(ctx, visitorID); err != nil {
		return fmt.Errorf("failed to remove visitor: %w", err)
	}
	return nil
}

// CheckinViaCode processes a QR-code check-in. The scanned code carries the
// lodge id; the bearer identity supplies the participant.
func (m *Manager) CheckinViaCode(ctx context.Context, sessionID, lodgeIDFromCode uuid.UUID, identity auth.Identity, now time.Time) (model.Attendance, error) {
	session, err := m.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Attendance{}, apperror.NotFound("session not found")
		}
		return model.Attendance{}, fmt.Errorf("failed to load session: %w", err)
	}

	if session.LodgeID != lodgeIDFromCode {
		return model.Attendance{}, apperror.BadRequest("session does not belong to the scanned lodge")
	}

	windowStart := session.StartsAt.Add(-CheckinWindow)
	windowEnd := session.StartsAt.Add(CheckinWindow)
	if now.Before(windowStart) || now.After(windowEnd) {
		return model.Attendance{}, apperror.BadRequest("check-in outside the permitted time window")
	}

	var participant model.Participant
	switch identity.Profile {
	case auth.ProfileLodgeMember:
		if identity.Lodge == nil || identity.Lodge.ID != session.LodgeID {
			return model.Attendance{}, apperror.Forbidden("member does not belong to this lodge")
		}
		participant = model.MemberParticipant(identity.Member.ID)
	case auth.ProfileVisitor:
		participant = model.VisitorParticipant(identity.Visitor.ID)
	default:
		return model.Attendance{}, apperror.Unauthenticated("profile not authorized for check-in")
	}

	// Members have a seeded Absent row from session creation; visitors
	// usually do not, so a missing row is created instead.
	existing, err := m.repo.GetAttendance(ctx, sessionID, participant)
	switch {
	case err == nil:
		existing.Status = model.AttendancePresent
		existing.CheckInAt = util.Some(now)
		if err := m.repo.UpdateAttendance(ctx, existing); err != nil {
			return model.Attendance{}, fmt.Errorf("failed to update attendance: %w", err)
		}
		m.logger.Info("check-in recorded", "session_id", sessionID, "participant", participant.String())
		return existing, nil
	case errors.Is(err, repository.ErrNotFound):
		attendance := model.Attendance{
			ID:          uuid.New(),
			SessionID:   sessionID,
			Participant: participant,
			Status:      model.AttendancePresent,
			CheckInAt:   util.Some(now),
			CreatedAt:   now,
		}
		if err := m.repo.CreateAttendance(ctx, attendance); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return model.Attendance{}, apperror.Conflict("attendance already recorded for this session and participant")
			}
			return model.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
		}
		m.logger.Info("check-in recorded", "session_id", sessionID, "participant", participant.String())
		return attendance, nil
	default:
		return model.Attendance{}, fmt.Errorf("failed to check existing attendance: %w", err)
	}
}
