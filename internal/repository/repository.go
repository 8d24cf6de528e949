// Package repository is the entity store: generic persistence for every
// domain entity, with uniqueness and referential constraints enforced by the
// relational schema.
package repository

import (
	"context"
	"errors"
	"time"

	"sigma/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("duplicate entity")
)

type Repository interface {
	HealthCheck(ctx context.Context) error

	// Accounts
	GetSuperAdminByID(ctx context.Context, id uuid.UUID) (model.SuperAdmin, error)
	GetSuperAdminByEmail(ctx context.Context, email string) (model.SuperAdmin, error)
	GetWebmasterByID(ctx context.Context, id uuid.UUID) (model.Webmaster, error)
	GetWebmasterByEmail(ctx context.Context, email string) (model.Webmaster, error)
	CreateWebmaster(ctx context.Context, webmaster model.Webmaster) error
	GetLodgeMemberByID(ctx context.Context, id uuid.UUID) (model.LodgeMember, error)
	GetLodgeMemberByEmail(ctx context.Context, email string) (model.LodgeMember, error)
	UpdateLodgeMemberPassword(ctx context.Context, memberID uuid.UUID, passwordHash string) error
	ListActiveLodgeMembers(ctx context.Context, lodgeID uuid.UUID) ([]model.LodgeMember, error)
	ListLodgeMembersByLodges(ctx context.Context, lodgeIDs []uuid.UUID) ([]model.LodgeMember, error)

	// Associations, roles and permissions
	GetAssociationForMember(ctx context.Context, associationID, memberID uuid.UUID) (model.Association, error)
	GetFirstAssociationForMember(ctx context.Context, memberID uuid.UUID) (model.Association, error)
	GetAssociationByMemberAndLodge(ctx context.Context, memberID, lodgeID uuid.UUID) (model.Association, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (model.Role, error)
	ListPermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error)

	// Lodges and hierarchy
	CreateLodge(ctx context.Context, lodge model.Lodge) error
	GetLodgeByID(ctx context.Context, id uuid.UUID) (model.Lodge, error)
	GetLodgeByCode(ctx context.Context, code string) (model.Lodge, error)
	CreateLodgeHierarchy(ctx context.Context, edge model.LodgeHierarchy) error
	ListSubordinateLodgeIDs(ctx context.Context, superiorLodgeID uuid.UUID) ([]uuid.UUID, error)

	// Sessions
	CreateSessionWithRoster(ctx context.Context, session model.Session, roster []model.Attendance) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (model.Session, error)
	ListSessionsByLodges(ctx context.Context, lodgeIDs []uuid.UUID) ([]model.Session, error)
	UpdateSessionStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus) error
	GetLastHeldSession(ctx context.Context, lodgeID uuid.UUID) (model.Session, error)

	// Attendance
	CreateAttendance(ctx context.Context, attendance model.Attendance) error
	GetAttendance(ctx context.Context, sessionID uuid.UUID, participant model.Participant) (model.Attendance, error)
	UpdateAttendance(ctx context.Context, attendance model.Attendance) error
	ListAttendanceBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Attendance, error)

	// Visitors
	CreateVisitor(ctx context.Context, visitor model.Visitor) error
	GetVisitorByID(ctx context.Context, id uuid.UUID) (model.Visitor, error)
	DeleteVisitorWithAttendance(ctx context.Context, id uuid.UUID) error

	// Password resets
	CreatePasswordReset(ctx context.Context, reset model.PasswordReset) error
	GetPasswordResetByToken(ctx context.Context, token string) (model.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	DeleteExpiredPasswordResets(ctx context.Context, before time.Time) (int64, error)

	// Audit
	CreateAuditEvent(ctx context.Context, actorID uuid.UUID, eventType string, eventData []byte) error
}
