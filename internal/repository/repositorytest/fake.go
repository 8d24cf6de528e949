// Package repositorytest provides an in-memory Repository for tests.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"sigma/internal/model"
	"sigma/internal/repository"

	"github.com/google/uuid"
)

// Fake is a thread-safe in-memory repository. Zero value is not usable;
// construct with New.
type Fake struct {
	mu sync.Mutex

	SuperAdmins    map[uuid.UUID]model.SuperAdmin
	Webmasters     map[uuid.UUID]model.Webmaster
	LodgeMembers   map[uuid.UUID]model.LodgeMember
	Associations   map[uuid.UUID]model.Association
	Roles          map[uuid.UUID]model.Role
	RolePerms      map[uuid.UUID][]model.Permission
	Lodges         map[uuid.UUID]model.Lodge
	Hierarchy      []model.LodgeHierarchy
	Sessions       map[uuid.UUID]model.Session
	Attendances    map[uuid.UUID]model.Attendance
	Visitors       map[uuid.UUID]model.Visitor
	PasswordResets map[uuid.UUID]model.PasswordReset
	AuditEvents    []string
}

var _ repository.Repository = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		SuperAdmins:    make(map[uuid.UUID]model.SuperAdmin),
		Webmasters:     make(map[uuid.UUID]model.Webmaster),
		LodgeMembers:   make(map[uuid.UUID]model.LodgeMember),
		Associations:   make(map[uuid.UUID]model.Association),
		Roles:          make(map[uuid.UUID]model.Role),
		RolePerms:      make(map[uuid.UUID][]model.Permission),
		Lodges:         make(map[uuid.UUID]model.Lodge),
		Sessions:       make(map[uuid.UUID]model.Session),
		Attendances:    make(map[uuid.UUID]model.Attendance),
		Visitors:       make(map[uuid.UUID]model.Visitor),
		PasswordResets: make(map[uuid.UUID]model.PasswordReset),
	}
}

func (f *Fake) HealthCheck(ctx context.Context) error { return nil }

func (f *Fake) GetSuperAdminByID(ctx context.Context, id uuid.UUID) (model.SuperAdmin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	admin, ok := f.SuperAdmins[id]
	if !ok {
		return model.SuperAdmin{}, repository.ErrNotFound
	}
	return admin, nil
}

func (f *Fake) GetSuperAdminByEmail(ctx context.Context, email string) (model.SuperAdmin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, admin := range f.SuperAdmins {
		if admin.Email == email {
			return admin, nil
		}
	}
	return model.SuperAdmin{}, repository.ErrNotFound
}

func (f *Fake) GetWebmasterByID(ctx context.Context, id uuid.UUID) (model.Webmaster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wm, ok := f.Webmasters[id]
	if !ok {
		return model.Webmaster{}, repository.ErrNotFound
	}
	return wm, nil
}

func (f *Fake) GetWebmasterByEmail(ctx context.Context, email string) (model.Webmaster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, wm := range f.Webmasters {
		if wm.Email == email {
			return wm, nil
		}
	}
	return model.Webmaster{}, repository.ErrNotFound
}

func (f *Fake) CreateWebmaster(ctx context.Context, webmaster model.Webmaster) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Webmasters {
		if existing.Email == webmaster.Email || existing.Username == webmaster.Username {
			return repository.ErrDuplicate
		}
	}
	f.Webmasters[webmaster.ID] = webmaster
	return nil
}

func (f *Fake) GetLodgeMemberByID(ctx context.Context, id uuid.UUID) (model.LodgeMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.LodgeMembers[id]
	if !ok {
		return model.LodgeMember{}, repository.ErrNotFound
	}
	return member, nil
}

func (f *Fake) GetLodgeMemberByEmail(ctx context.Context, email string) (model.LodgeMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, member := range f.LodgeMembers {
		if member.Email == email {
			return member, nil
		}
	}
	return model.LodgeMember{}, repository.ErrNotFound
}

func (f *Fake) UpdateLodgeMemberPassword(ctx context.Context, memberID uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.LodgeMembers[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	member.PasswordHash = passwordHash
	f.LodgeMembers[memberID] = member
	return nil
}

func (f *Fake) ListActiveLodgeMembers(ctx context.Context, lodgeID uuid.UUID) ([]model.LodgeMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []model.LodgeMember
	for _, member := range f.LodgeMembers {
		if member.LodgeID == lodgeID && member.Active {
			members = append(members, member)
		}
	}
	sortMembers(members)
	return members, nil
}

func (f *Fake) ListLodgeMembersByLodges(ctx context.Context, lodgeIDs []uuid.UUID) ([]model.LodgeMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(lodgeIDs))
	for _, id := range lodgeIDs {
		wanted[id] = true
	}
	var members []model.LodgeMember
	for _, member := range f.LodgeMembers {
		if wanted[member.LodgeID] {
			members = append(members, member)
		}
	}
	sortMembers(members)
	return members, nil
}

func sortMembers(members []model.LodgeMember) {
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
}

func (f *Fake) GetAssociationForMember(ctx context.Context, associationID, memberID uuid.UUID) (model.Association, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	assoc, ok := f.Associations[associationID]
	if !ok || assoc.LodgeMemberID != memberID {
		return model.Association{}, repository.ErrNotFound
	}
	return assoc, nil
}

func (f *Fake) GetFirstAssociationForMember(ctx context.Context, memberID uuid.UUID) (model.Association, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var candidates []model.Association
	for _, assoc := range f.Associations {
		if assoc.LodgeMemberID == memberID {
			candidates = append(candidates, assoc)
		}
	}
	if len(candidates) == 0 {
		return model.Association{}, repository.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAt.Before(candidates[j].CreatedAt) })
	return candidates[0], nil
}

func (f *Fake) GetAssociationByMemberAndLodge(ctx context.Context, memberID, lodgeID uuid.UUID) (model.Association, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, assoc := range f.Associations {
		if assoc.LodgeMemberID == memberID && assoc.LodgeID == lodgeID {
			return assoc, nil
		}
	}
	return model.Association{}, repository.ErrNotFound
}

func (f *Fake) GetRoleByID(ctx context.Context, id uuid.UUID) (model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.Roles[id]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return role, nil
}

func (f *Fake) ListPermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Permission(nil), f.RolePerms[roleID]...), nil
}

func (f *Fake) CreateLodge(ctx context.Context, lodge model.Lodge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Lodges {
		if existing.Code == lodge.Code {
			return repository.ErrDuplicate
		}
	}
	f.Lodges[lodge.ID] = lodge
	return nil
}

func (f *Fake) GetLodgeByID(ctx context.Context, id uuid.UUID) (model.Lodge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lodge, ok := f.Lodges[id]
	if !ok {
		return model.Lodge{}, repository.ErrNotFound
	}
	return lodge, nil
}

func (f *Fake) GetLodgeByCode(ctx context.Context, code string) (model.Lodge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lodge := range f.Lodges {
		if lodge.Code == code {
			return lodge, nil
		}
	}
	return model.Lodge{}, repository.ErrNotFound
}

func (f *Fake) CreateLodgeHierarchy(ctx context.Context, edge model.LodgeHierarchy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Hierarchy {
		if existing.SuperiorLodgeID == edge.SuperiorLodgeID && existing.SubordinateLodgeID == edge.SubordinateLodgeID {
			return repository.ErrDuplicate
		}
	}
	f.Hierarchy = append(f.Hierarchy, edge)
	return nil
}

func (f *Fake) ListSubordinateLodgeIDs(ctx context.Context, superiorLodgeID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, edge := range f.Hierarchy {
		if edge.SuperiorLodgeID == superiorLodgeID {
			ids = append(ids, edge.SubordinateLodgeID)
		}
	}
	return ids, nil
}

func (f *Fake) CreateSessionWithRoster(ctx context.Context, session model.Session, roster []model.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, attendance := range roster {
		if f.duplicateAttendanceLocked(attendance) {
			return repository.ErrDuplicate
		}
	}
	f.Sessions[session.ID] = session
	for _, attendance := range roster {
		f.Attendances[attendance.ID] = attendance
	}
	return nil
}

func (f *Fake) GetSessionByID(ctx context.Context, id uuid.UUID) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.Sessions[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return session, nil
}

func (f *Fake) ListSessionsByLodges(ctx context.Context, lodgeIDs []uuid.UUID) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(lodgeIDs))
	for _, id := range lodgeIDs {
		wanted[id] = true
	}
	var sessions []model.Session
	for _, session := range f.Sessions {
		if wanted[session.LodgeID] {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartsAt.After(sessions[j].StartsAt) })
	return sessions, nil
}

func (f *Fake) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.Sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Status = status
	f.Sessions[id] = session
	return nil
}

func (f *Fake) GetLastHeldSession(ctx context.Context, lodgeID uuid.UUID) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest model.Session
	found := false
	for _, session := range f.Sessions {
		if session.LodgeID != lodgeID || session.Status != model.SessionHeld {
			continue
		}
		if !found || session.StartsAt.After(latest.StartsAt) {
			latest = session
			found = true
		}
	}
	if !found {
		return model.Session{}, repository.ErrNotFound
	}
	return latest, nil
}

func (f *Fake) duplicateAttendanceLocked(attendance model.Attendance) bool {
	for _, existing := range f.Attendances {
		if existing.SessionID == attendance.SessionID && existing.Participant == attendance.Participant {
			return true
		}
	}
	return false
}

func (f *Fake) CreateAttendance(ctx context.Context, attendance model.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicateAttendanceLocked(attendance) {
		return repository.ErrDuplicate
	}
	f.Attendances[attendance.ID] = attendance
	return nil
}

func (f *Fake) GetAttendance(ctx context.Context, sessionID uuid.UUID, participant model.Participant) (model.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, attendance := range f.Attendances {
		if attendance.SessionID == sessionID && attendance.Participant == participant {
			return attendance, nil
		}
	}
	return model.Attendance{}, repository.ErrNotFound
}

func (f *Fake) UpdateAttendance(ctx context.Context, attendance model.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Attendances[attendance.ID]; !ok {
		return repository.ErrNotFound
	}
	f.Attendances[attendance.ID] = attendance
	return nil
}

func (f *Fake) ListAttendanceBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var attendances []model.Attendance
	for _, attendance := range f.Attendances {
		if attendance.SessionID == sessionID {
			attendances = append(attendances, attendance)
		}
	}
	sort.Slice(attendances, func(i, j int) bool {
		return attendances[i].CreatedAt.Before(attendances[j].CreatedAt)
	})
	return attendances, nil
}

func (f *Fake) CreateVisitor(ctx context.Context, visitor model.Visitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if visitor.Email.IsSet {
		for _, existing := range f.Visitors {
			if existing.Email.IsSet && existing.Email.Val == visitor.Email.Val {
				return repository.ErrDuplicate
			}
		}
	}
	f.Visitors[visitor.ID] = visitor
	return nil
}

func (f *Fake) GetVisitorByID(ctx context.Context, id uuid.UUID) (model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visitor, ok := f.Visitors[id]
	if !ok {
		return model.Visitor{}, repository.ErrNotFound
	}
	return visitor, nil
}

func (f *Fake) DeleteVisitorWithAttendance(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for attendanceID, attendance := range f.Attendances {
		if attendance.Participant.IsVisitor() && attendance.Participant.ID == id {
			delete(f.Attendances, attendanceID)
		}
	}
	delete(f.Visitors, id)
	return nil
}

func (f *Fake) CreatePasswordReset(ctx context.Context, reset model.PasswordReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PasswordResets[reset.ID] = reset
	return nil
}

func (f *Fake) GetPasswordResetByToken(ctx context.Context, token string) (model.PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reset := range f.PasswordResets {
		if reset.Token == token {
			return reset, nil
		}
	}
	return model.PasswordReset{}, repository.ErrNotFound
}

func (f *Fake) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reset, ok := f.PasswordResets[id]
	if !ok || reset.UsedAt.IsSet {
		return repository.ErrNotFound
	}
	reset.UsedAt.Val = usedAt
	reset.UsedAt.IsSet = true
	f.PasswordResets[id] = reset
	return nil
}

func (f *Fake) DeleteExpiredPasswordResets(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, reset := range f.PasswordResets {
		if reset.ExpiresAt.Before(before) {
			delete(f.PasswordResets, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *Fake) CreateAuditEvent(ctx context.Context, actorID uuid.UUID, eventType string, eventData []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuditEvents = append(f.AuditEvents, eventType)
	return nil
}
