package model

import (
	"time"

	"sigma/internal/util"

	"github.com/google/uuid"
)

// Periodicity is the recurrence cadence that governs next-session suggestions.
type Periodicity string

const (
	PeriodicityWeekly   Periodicity = "weekly"
	PeriodicityBiweekly Periodicity = "biweekly"
	PeriodicityMonthly  Periodicity = "monthly"
)

func (p Periodicity) Valid() bool {
	switch p {
	case PeriodicityWeekly, PeriodicityBiweekly, PeriodicityMonthly:
		return true
	}
	return false
}

// SessionType classifies a lodge session.
type SessionType string

const (
	SessionTypeOrdinary      SessionType = "ordinary"
	SessionTypeGrand         SessionType = "grand"
	SessionTypeExtraordinary SessionType = "extraordinary"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeOrdinary, SessionTypeGrand, SessionTypeExtraordinary:
		return true
	}
	return false
}

// SessionStatus is the lifecycle state of a session. Legal transitions:
// Scheduled -> InProgress -> Held, and Scheduled|InProgress -> Cancelled.
// Held and Cancelled are terminal.
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionHeld       SessionStatus = "held"
	SessionCancelled  SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionInProgress, SessionHeld, SessionCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionScheduled:
		return next == SessionInProgress || next == SessionCancelled
	case SessionInProgress:
		return next == SessionHeld || next == SessionCancelled
	default:
		return false
	}
}

// AttendanceStatus is a participant's presence state for one session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceExcused AttendanceStatus = "excused"
	AttendanceAbsent  AttendanceStatus = "absent"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceExcused, AttendanceAbsent:
		return true
	}
	return false
}

// HierarchyRelationship types a superior/subordinate lodge edge.
type HierarchyRelationship string

const (
	RelationshipJurisdictional HierarchyRelationship = "jurisdictional"
	RelationshipFederated      HierarchyRelationship = "federated"
	RelationshipSubordinate    HierarchyRelationship = "subordinate"
)

type SuperAdmin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Webmaster struct {
	ID           uuid.UUID `json:"id"`
	LodgeID      uuid.UUID `json:"lodge_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type LodgeMember struct {
	ID           uuid.UUID `json:"id"`
	LodgeID      uuid.UUID `json:"lodge_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Association binds a member to a role within a lodge. A member may hold
// associations to several lodges, each with its own role.
type Association struct {
	ID            uuid.UUID `json:"id"`
	LodgeMemberID uuid.UUID `json:"lodge_member_id"`
	LodgeID       uuid.UUID `json:"lodge_id"`
	RoleID        uuid.UUID `json:"role_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type Role struct {
	ID           uuid.UUID                `json:"id"`
	Name         string                   `json:"name"`
	LodgeClassID util.Optional[uuid.UUID] `json:"lodge_class_id"`
	// GrantsHierarchicalScope marks roles whose holders may read data of
	// subordinate lodges. Replaces matching on role display names.
	GrantsHierarchicalScope bool      `json:"grants_hierarchical_scope"`
	CreatedAt               time.Time `json:"created_at"`
}

type Permission struct {
	ID          uuid.UUID `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
}

type Lodge struct {
	ID           uuid.UUID                   `json:"id"`
	Name         string                      `json:"name"`
	Code         string                      `json:"code"`
	Number       string                      `json:"number"`
	LodgeClassID util.Optional[uuid.UUID]    `json:"lodge_class_id"`
	Active       bool                        `json:"active"`
	SessionDay   util.Optional[time.Weekday] `json:"session_day"`
	SessionTime  util.Optional[TimeOfDay]    `json:"session_time"`
	Periodicity  util.Optional[Periodicity]  `json:"periodicity"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// SessionScheduleConfigured reports whether the lodge has everything
// configured that next-session suggestion needs.
func (l Lodge) SessionScheduleConfigured() bool {
	return l.SessionDay.IsSet && l.SessionTime.IsSet && l.Periodicity.IsSet
}

type LodgeHierarchy struct {
	ID                 uuid.UUID             `json:"id"`
	SuperiorLodgeID    uuid.UUID             `json:"superior_lodge_id"`
	SubordinateLodgeID uuid.UUID             `json:"subordinate_lodge_id"`
	Relationship       HierarchyRelationship `json:"relationship"`
}

type Session struct {
	ID        uuid.UUID     `json:"id"`
	LodgeID   uuid.UUID     `json:"lodge_id"`
	StartsAt  time.Time     `json:"starts_at"`
	Type      SessionType   `json:"type"`
	Subtype   string        `json:"subtype"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type Attendance struct {
	ID          uuid.UUID                `json:"id"`
	SessionID   uuid.UUID                `json:"session_id"`
	Participant Participant              `json:"participant"`
	Status      AttendanceStatus         `json:"status"`
	CheckInAt   util.Optional[time.Time] `json:"check_in_at"`
	CreatedAt   time.Time                `json:"created_at"`
}

type Visitor struct {
	ID              uuid.UUID                `json:"id"`
	Name            string                   `json:"name"`
	Email           util.Optional[string]    `json:"email"`
	OriginLodgeID   util.Optional[uuid.UUID] `json:"origin_lodge_id"`
	OriginLodgeName string                   `json:"origin_lodge_name"`
	CreatedAt       time.Time                `json:"created_at"`
}

// ExternalLodge is a lodge outside the platform that visitors originate from.
type ExternalLodge struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Obedience string    `json:"obedience"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

type PasswordReset struct {
	ID            uuid.UUID                `json:"id"`
	Token         string                   `json:"-"`
	LodgeMemberID uuid.UUID                `json:"lodge_member_id"`
	ExpiresAt     time.Time                `json:"expires_at"`
	UsedAt        util.Optional[time.Time] `json:"used_at"`
	CreatedAt     time.Time                `json:"created_at"`
}
