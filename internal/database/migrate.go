package database

import (
	"context"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so the server can run
// them on every startup.
func (db *Database) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tbl_lodge_class (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			description VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_lodge (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			code VARCHAR(32) NOT NULL UNIQUE,
			number VARCHAR(32) NOT NULL DEFAULT '',
			lodge_class_id UUID REFERENCES tbl_lodge_class(id),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			session_day SMALLINT,
			session_time VARCHAR(5),
			periodicity VARCHAR(16),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_lodge_hierarchy (
			id UUID PRIMARY KEY,
			superior_lodge_id UUID NOT NULL REFERENCES tbl_lodge(id),
			subordinate_lodge_id UUID NOT NULL REFERENCES tbl_lodge(id),
			relationship VARCHAR(32) NOT NULL,
			UNIQUE (superior_lodge_id, subordinate_lodge_id)
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_super_admin (
			id UUID PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_webmaster (
			id UUID PRIMARY KEY,
			lodge_id UUID NOT NULL REFERENCES tbl_lodge(id),
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_lodge_member (
			id UUID PRIMARY KEY,
			lodge_id UUID NOT NULL REFERENCES tbl_lodge(id),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_role (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			lodge_class_id UUID REFERENCES tbl_lodge_class(id),
			grants_hierarchical_scope BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (name, lodge_class_id)
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_permission (
			id UUID PRIMARY KEY,
			action VARCHAR(255) NOT NULL UNIQUE,
			description VARCHAR(255) NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_role_permission (
			role_id UUID NOT NULL REFERENCES tbl_role(id) ON DELETE CASCADE,
			permission_id UUID NOT NULL REFERENCES tbl_permission(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, permission_id)
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_association (
			id UUID PRIMARY KEY,
			lodge_member_id UUID NOT NULL REFERENCES tbl_lodge_member(id) ON DELETE CASCADE,
			lodge_id UUID NOT NULL REFERENCES tbl_lodge(id),
			role_id UUID NOT NULL REFERENCES tbl_role(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (lodge_member_id, lodge_id)
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_external_lodge (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			obedience VARCHAR(255) NOT NULL DEFAULT '',
			city VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_visitor (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE,
			origin_lodge_id UUID REFERENCES tbl_external_lodge(id),
			origin_lodge_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_session (
			id UUID PRIMARY KEY,
			lodge_id UUID NOT NULL REFERENCES tbl_lodge(id),
			starts_at TIMESTAMPTZ NOT NULL,
			type VARCHAR(32) NOT NULL,
			subtype VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		// Exactly one of member_id/visitor_id is set; the partial unique
		// indexes are the authoritative guard against duplicate check-ins
		// racing past the application-level existence check.
		`CREATE TABLE IF NOT EXISTS tbl_attendance (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES tbl_session(id) ON DELETE CASCADE,
			member_id UUID REFERENCES tbl_lodge_member(id),
			visitor_id UUID REFERENCES tbl_visitor(id),
			status VARCHAR(16) NOT NULL,
			check_in_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((member_id IS NULL) <> (visitor_id IS NULL))
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_session_member
			ON tbl_attendance (session_id, member_id) WHERE member_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_session_visitor
			ON tbl_attendance (session_id, visitor_id) WHERE visitor_id IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS tbl_password_reset (
			id UUID PRIMARY KEY,
			token VARCHAR(255) NOT NULL UNIQUE,
			lodge_member_id UUID NOT NULL REFERENCES tbl_lodge_member(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_audit_event (
			id UUID PRIMARY KEY,
			actor_id UUID NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			event_data JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return nil
}
