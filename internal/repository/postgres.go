package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigma/internal/database"
	"sigma/internal/model"
	"sigma/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *database.Database
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *database.Database) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// translateError converts driver-level failures into the repository's
// sentinel errors.
func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

//
// Accounts
//

func (r *PostgresRepository) GetSuperAdminByID(ctx context.Context, id uuid.UUID) (model.SuperAdmin, error) {
	return r.getSuperAdmin(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetSuperAdminByEmail(ctx context.Context, email string) (model.SuperAdmin, error) {
	return r.getSuperAdmin(ctx, "email = $1", email)
}

func (r *PostgresRepository) getSuperAdmin(ctx context.Context, where string, arg any) (model.SuperAdmin, error) {
	var admin model.SuperAdmin
	query := "SELECT id, username, email, password_hash, active, created_at FROM tbl_super_admin WHERE " + where
	err := r.db.Pool.QueryRow(ctx, query, arg).
		Scan(&admin.ID, &admin.Username, &admin.Email, &admin.PasswordHash, &admin.Active, &admin.CreatedAt)
	if err != nil {
		return model.SuperAdmin{}, translateError(err)
	}
	return admin, nil
}

func (r *PostgresRepository) GetWebmasterByID(ctx context.Context, id uuid.UUID) (model.Webmaster, error) {
	return r.getWebmaster(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetWebmasterByEmail(ctx context.Context, email string) (model.Webmaster, error) {
	return r.getWebmaster(ctx, "email = $1", email)
}

func (r *PostgresRepository) getWebmaster(ctx context.Context, where string, arg any) (model.Webmaster, error) {
	var wm model.Webmaster
	query := "SELECT id, lodge_id, username, email, password_hash, active, created_at FROM tbl_webmaster WHERE " + where
	err := r.db.Pool.QueryRow(ctx, query, arg).
		Scan(&wm.ID, &wm.LodgeID, &wm.Username, &wm.Email, &wm.PasswordHash, &wm.Active, &wm.CreatedAt)
	if err != nil {
		return model.Webmaster{}, translateError(err)
	}
	return wm, nil
}

func (r *PostgresRepository) CreateWebmaster(ctx context.Context, webmaster model.Webmaster) error {
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO tbl_webmaster (id, lodge_id, username, email, password_hash, active, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		webmaster.ID, webmaster.LodgeID, webmaster.Username, webmaster.Email, webmaster.PasswordHash, webmaster.Active, webmaster.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create webmaster: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRepository) GetLodgeMemberByID(ctx context.Context, id uuid.UUID) (model.LodgeMember, error) {
	return r.getLodgeMember(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetLodgeMemberByEmail(ctx context.Context, email string) (model.LodgeMember, error) {
	return r.getLodgeMember(ctx, "email = $1", email)
}

func (r *PostgresRepository) getLodgeMember(ctx context.Context, where string, arg any) (model.LodgeMember, error) {
	var member model.LodgeMember
	query := "SELECT id, lodge_id, name, email, password_hash, active, created_at FROM tbl_lodge_member WHERE " + where
	err := r.db.Pool.QueryRow(ctx, query, arg).
		Scan(&member.ID, &member.LodgeID, &member.Name, &member.Email, &member.PasswordHash, &member.Active, &member.CreatedAt)
	if err != nil {
		return model.LodgeMember{}, translateError(err)
	}
	return member, nil
}

func (r *PostgresRepository) UpdateLodgeMemberPassword(ctx context.Context, memberID uuid.UUID, passwordHash string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE tbl_lodge_member SET password_hash = $1 WHERE id = $2", passwordHash, memberID)
	if err != nil {
		return fmt.Errorf("failed to update member password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListActiveLodgeMembers(ctx context.Context, lodgeID uuid.UUID) ([]model.LodgeMember, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, lodge_id, name, email, password_hash, active, created_at FROM tbl_lodge_member WHERE lodge_id = $1 AND active ORDER BY name",
		lodgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	defer rows.Close()
	return scanLodgeMembers(rows)
}

func (r *PostgresRepository) ListLodgeMembersByLodges(ctx context.Context, lodgeIDs []uuid.UUID) ([]model.LodgeMember, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, lodge_id, name, email, password_hash, active, created_at FROM tbl_lodge_member WHERE lodge_id = ANY($1) ORDER BY name",
		lodgeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list members by lodges: %w", err)
	}
	defer rows.Close()
	return scanLodgeMembers(rows)
}

func scanLodgeMembers(rows pgx.Rows) ([]model.LodgeMember, error) {
	var members []model.LodgeMember
	for rows.Next() {
		var member model.LodgeMember
		if err := rows.Scan(&member.ID, &member.LodgeID, &member.Name, &member.Email, &member.PasswordHash, &member.Active, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

//
// Associations, roles and permissions
//

func (r *PostgresRepository) GetAssociationForMember(ctx context.Context, associationID, memberID uuid.UUID) (model.Association, error) {
	return r.getAssociation(ctx, "id = $1 AND lodge_member_id = $2", associationID, memberID)
}

func (r *PostgresRepository) GetFirstAssociationForMember(ctx context.Context, memberID uuid.UUID) (model.Association, error) {
	return r.getAssociation(ctx, "lodge_member_id = $1 ORDER BY created_at LIMIT 1", memberID)
}

func (r *PostgresRepository) GetAssociationByMemberAndLodge(ctx context.Context, memberID, lodgeID uuid.UUID) (model.Association, error) {
	return r.getAssociation(ctx, "lodge_member_id = $1 AND lodge_id = $2", memberID, lodgeID)
}

func (r *PostgresRepository) getAssociation(ctx context.Context, where string, args ...any) (model.Association, error) {
	var assoc model.Association
	query := "SELECT id, lodge_member_id, lodge_id, role_id, created_at FROM tbl_association WHERE " + where
	err := r.db.Pool.QueryRow(ctx, query, args...).
		Scan(&assoc.ID, &assoc.LodgeMemberID, &assoc.LodgeID, &assoc.RoleID, &assoc.CreatedAt)
	if err != nil {
		return model.Association{}, translateError(err)
	}
	return assoc, nil
}

func (r *PostgresRepository) GetRoleByID(ctx context.Context, id uuid.UUID) (model.Role, error) {
	var role model.Role
	var classID *uuid.UUID
	err := r.db.Pool.QueryRow(ctx,
		"SELECT id, name, lodge_class_id, grants_hierarchical_scope, created_at FROM tbl_role WHERE id = $1", id).
		Scan(&role.ID, &role.Name, &classID, &role.GrantsHierarchicalScope, &role.CreatedAt)
	if err != nil {
		return model.Role{}, translateError(err)
	}
	if classID != nil {
		role.LodgeClassID = util.Some(*classID)
	}
	return role, nil
}

func (r *PostgresRepository) ListPermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]model.Permission, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT p.id, p.action, p.description
		FROM tbl_permission p
		JOIN tbl_role_permission rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.action`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	var permissions []model.Permission
	for rows.Next() {
		var perm model.Permission
		if err := rows.Scan(&perm.ID, &perm.Action, &perm.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, perm)
	}
	return permissions, rows.Err()
}

//
// Lodges and hierarchy
//

func (r *PostgresRepository) CreateLodge(ctx context.Context, lodge model.Lodge) error {
	var day *int16
	if lodge.SessionDay.IsSet {
		d := int16(lodge.SessionDay.Val)
		day = &d
	}
	var sessionTime *string
	if lodge.SessionTime.IsSet {
		s := lodge.SessionTime.Val.String()
		sessionTime = &s
	}
	var periodicity *string
	if lodge.Periodicity.IsSet {
		p := string(lodge.Periodicity.Val)
		periodicity = &p
	}
	var classID *uuid.UUID
	if lodge.LodgeClassID.IsSet {
		c := lodge.LodgeClassID.Val
		classID = &c
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO tbl_lodge (id, name, code, number, lodge_class_id, active, session_day, session_time, periodicity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lodge.ID, lodge.Name, lodge.Code, lodge.Number, classID, lodge.Active, day, sessionTime, periodicity, lodge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lodge: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRepository) GetLodgeByID(ctx context.Context, id uuid.UUID) (model.Lodge, error) {
	return r.getLodge(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetLodgeByCode(ctx context.Context, code string) (model.Lodge, error) {
	return r.getLodge(ctx, "code = $1", code)
}

func (r *PostgresRepository) getLodge(ctx context.Context, where string, arg any) (model.Lodge, error) {
	var lodge model.Lodge
	var classID *uuid.UUID
	var day *int16
	var sessionTime *string
	var periodicity *string

	query := "SELECT id, name, code, number, lodge_class_id, active, session_day, session_time, periodicity, created_at FROM tbl_lodge WHERE " + where
	err := r.db.Pool.QueryRow(ctx, query, arg).
		Scan(&lodge.ID, &lodge.Name, &lodge.Code, &lodge.Number, &classID, &lodge.Active, &day, &sessionTime, &periodicity, &lodge.CreatedAt)
	if err != nil {
		return model.Lodge{}, translateError(err)
	}

	if classID != nil {
		lodge.LodgeClassID = util.Some(*classID)
	}
	if day != nil {
		lodge.SessionDay = util.Some(time.Weekday(*day))
	}
	if sessionTime != nil {
		parsed, err := model.ParseTimeOfDay(*sessionTime)
		if err != nil {
			return model.Lodge{}, fmt.Errorf("corrupt session_time for lodge %s: %w", lodge.ID, err)
		}
		lodge.SessionTime = util.Some(parsed)
	}
	if periodicity != nil {
		lodge.Periodicity = util.Some(model.Periodicity(*periodicity))
	}
	return lodge, nil
}

func (r *PostgresRepository) CreateLodgeHierarchy(ctx context.Context, edge model.LodgeHierarchy) error {
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO tbl_lodge_hierarchy (id, superior_lodge_id, subordinate_lodge_id, relationship) VALUES ($1, $2, $3, $4)",
		edge.ID, edge.SuperiorLodgeID, edge.SubordinateLodgeID, edge.Relationship)
	if err != nil {
		return fmt.Errorf("failed to create lodge hierarchy: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRepository) ListSubordinateLodgeIDs(ctx context.Context, superiorLodgeID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT subordinate_lodge_id FROM tbl_lodge_hierarchy WHERE superior_lodge_id = $1", superiorLodgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subordinate lodges: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subordinate lodge id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

//
// Sessions
//

// CreateSessionWithRoster inserts the session and its seeded attendance rows
// in one transaction: if any roster insert fails the session is not visible.
func (r *PostgresRepository) CreateSessionWithRoster(ctx context.Context, session model.Session, roster []model.Attendance) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO tbl_session (id, lodge_id, starts_at, type, subtype, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			session.ID, session.LodgeID, session.StartsAt, session.Type, session.Subtype, session.Status, session.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		for _, attendance := range roster {
			if err := insertAttendance(ctx, tx, attendance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError(err)
	}
	return nil
}

func (r *PostgresRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (model.Session, error) {
	var session model.Session
	err := r.db.Pool.QueryRow(ctx,
		"SELECT id, lodge_id, starts_at, type, subtype, status, created_at FROM tbl_session WHERE id = $1", id).
		Scan(&session.ID, &session.LodgeID, &session.StartsAt, &session.Type, &session.Subtype, &session.Status, &session.CreatedAt)
	if err != nil {
		return model.Session{}, translateError(err)
	}
	return session, nil
}

func (r *PostgresRepository) ListSessionsByLodges(ctx context.Context, lodgeIDs []uuid.UUID) ([]model.Session, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, lodge_id, starts_at, type, subtype, status, created_at FROM tbl_session WHERE lodge_id = ANY($1) ORDER BY starts_at DESC",
		lodgeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var session model.Session
		if err := rows.Scan(&session.ID, &session.LodgeID, &session.StartsAt, &session.Type, &session.Subtype, &session.Status, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *PostgresRepository) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus) error {
	tag, err := r.db.Pool.Exec(ctx, "UPDATE tbl_session SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetLastHeldSession(ctx context.Context, lodgeID uuid.UUID) (model.Session, error) {
	var session model.Session
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, lodge_id, starts_at, type, subtype, status, created_at
		FROM tbl_session
		WHERE lodge_id = $1 AND status = $2
		ORDER BY starts_at DESC
		LIMIT 1`, lodgeID, model.SessionHeld).
		Scan(&session.ID, &session.LodgeID, &session.StartsAt, &session.Type, &session.Subtype, &session.Status, &session.CreatedAt)
	if err != nil {
		return model.Session{}, translateError(err)
	}
	return session, nil
}

//
// Attendance
//

func participantColumns(p model.Participant) (memberID, visitorID *uuid.UUID) {
	id := p.ID
	if p.IsMember() {
		return &id, nil
	}
	return nil, &id
}

func insertAttendance(ctx context.Context, tx pgx.Tx, attendance model.Attendance) error {
	memberID, visitorID := participantColumns(attendance.Participant)
	var checkInAt *time.Time
	if attendance.CheckInAt.IsSet {
		t := attendance.CheckInAt.Val
		checkInAt = &t
	}
	_, err := tx.Exec(ctx,
		"INSERT INTO tbl_attendance (id, session_id, member_id, visitor_id, status, check_in_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		attendance.ID, attendance.SessionID, memberID, visitorID, attendance.Status, checkInAt, attendance.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attendance: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateAttendance(ctx context.Context, attendance model.Attendance) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return insertAttendance(ctx, tx, attendance)
	})
	return translateError(err)
}

func (r *PostgresRepository) GetAttendance(ctx context.Context, sessionID uuid.UUID, participant model.Participant) (model.Attendance, error) {
	column := "member_id"
	if participant.IsVisitor() {
		column = "visitor_id"
	}
	query := "SELECT id, session_id, member_id, visitor_id, status, check_in_at, created_at FROM tbl_attendance WHERE session_id = $1 AND " + column + " = $2"

	row := r.db.Pool.QueryRow(ctx, query, sessionID, participant.ID)
	attendance, err := scanAttendance(row)
	if err != nil {
		return model.Attendance{}, translateError(err)
	}
	return attendance, nil
}

func (r *PostgresRepository) UpdateAttendance(ctx context.Context, attendance model.Attendance) error {
	var checkInAt *time.Time
	if attendance.CheckInAt.IsSet {
		t := attendance.CheckInAt.Val
		checkInAt = &t
	}
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE tbl_attendance SET status = $1, check_in_at = $2 WHERE id = $3",
		attendance.Status, checkInAt, attendance.ID)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListAttendanceBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Attendance, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, session_id, member_id, visitor_id, status, check_in_at, created_at FROM tbl_attendance WHERE session_id = $1 ORDER BY created_at",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var attendances []model.Attendance
	for rows.Next() {
		attendance, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		attendances = append(attendances, attendance)
	}
	return attendances, rows.Err()
}

func scanAttendance(row pgx.Row) (model.Attendance, error) {
	var attendance model.Attendance
	var memberID, visitorID *uuid.UUID
	var checkInAt *time.Time

	if err := row.Scan(&attendance.ID, &attendance.SessionID, &memberID, &visitorID, &attendance.Status, &checkInAt, &attendance.CreatedAt); err != nil {
		return model.Attendance{}, err
	}

	participant, err := model.NewParticipant(memberID, visitorID)
	if err != nil {
		return model.Attendance{}, fmt.Errorf("corrupt attendance row %s: %w", attendance.ID, err)
	}
	attendance.Participant = participant
	if checkInAt != nil {
		attendance.CheckInAt = util.Some(*checkInAt)
	}
	return attendance, nil
}

//
// Visitors
//

func (r *PostgresRepository) CreateVisitor(ctx context.Context, visitor model.Visitor) error {
	var email *string
	if visitor.Email.IsSet {
		e := visitor.Email.Val
		email = &e
	}
	var originLodgeID *uuid.UUID
	if visitor.OriginLodgeID.IsSet {
		id := visitor.OriginLodgeID.Val
		originLodgeID = &id
	}
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO tbl_visitor (id, name, email, origin_lodge_id, origin_lodge_name, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		visitor.ID, visitor.Name, email, originLodgeID, visitor.OriginLodgeName, visitor.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create visitor: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRepository) GetVisitorByID(ctx context.Context, id uuid.UUID) (model.Visitor, error) {
	var visitor model.Visitor
	var email *string
	var originLodgeID *uuid.UUID
	err := r.db.Pool.QueryRow(ctx,
		"SELECT id, name, email, origin_lodge_id, origin_lodge_name, created_at FROM tbl_visitor WHERE id = $1", id).
		Scan(&visitor.ID, &visitor.Name, &email, &originLodgeID, &visitor.OriginLodgeName, &visitor.CreatedAt)
	if err != nil {
		return model.Visitor{}, translateError(err)
	}
	if email != nil {
		visitor.Email = util.Some(*email)
	}
	if originLodgeID != nil {
		visitor.OriginLodgeID = util.Some(*originLodgeID)
	}
	return visitor, nil
}

// DeleteVisitorWithAttendance removes the visitor's attendance rows before
// the visitor record itself, in one transaction. Deleting an unknown visitor
// is a no-op.
func (r *PostgresRepository) DeleteVisitorWithAttendance(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM tbl_attendance WHERE visitor_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete visitor attendance: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM tbl_visitor WHERE id = $1", id); err != nil {
			return fmt.Errorf("failed to delete visitor: %w", err)
		}
		return nil
	})
}

//
// Password resets
//

func (r *PostgresRepository) CreatePasswordReset(ctx context.Context, reset model.PasswordReset) error {
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO tbl_password_reset (id, token, lodge_member_id, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)",
		reset.ID, reset.Token, reset.LodgeMemberID, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", translateError(err))
	}
	return nil
}

func (r *PostgresRepository) GetPasswordResetByToken(ctx context.Context, token string) (model.PasswordReset, error) {
	var reset model.PasswordReset
	var usedAt *time.Time
	err := r.db.Pool.QueryRow(ctx,
		"SELECT id, token, lodge_member_id, expires_at, used_at, created_at FROM tbl_password_reset WHERE token = $1", token).
		Scan(&reset.ID, &reset.Token, &reset.LodgeMemberID, &reset.ExpiresAt, &usedAt, &reset.CreatedAt)
	if err != nil {
		return model.PasswordReset{}, translateError(err)
	}
	if usedAt != nil {
		reset.UsedAt = util.Some(*usedAt)
	}
	return reset, nil
}

func (r *PostgresRepository) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE tbl_password_reset SET used_at = $1 WHERE id = $2 AND used_at IS NULL", usedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark password reset used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpiredPasswordResets(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM tbl_password_reset WHERE expires_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password resets: %w", err)
	}
	return tag.RowsAffected(), nil
}

//
// Audit
//

func (r *PostgresRepository) CreateAuditEvent(ctx context.Context, actorID uuid.UUID, eventType string, eventData []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO tbl_audit_event (id, actor_id, event_type, event_data) VALUES ($1, $2, $3, $4)",
		uuid.New(), actorID, eventType, eventData)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}
