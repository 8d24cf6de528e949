// Package audit records security-relevant events in the store.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sigma/internal/repository"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeSuperAdminLogin  EventType = "super_admin.login"
	EventTypeWebmasterLogin   EventType = "webmaster.login"
	EventTypeLodgeMemberLogin EventType = "lodge_member.login"
	EventTypeLodgeSelect      EventType = "lodge_member.lodge_select"
	EventTypeTokenRefresh     EventType = "token.refresh"
	EventTypePasswordForgot   EventType = "password.forgot"
	EventTypePasswordReset    EventType = "password.reset"
	EventTypeLodgeCreate      EventType = "lodge.create"
	EventTypeSessionCreate    EventType = "session.create"
	EventTypeSessionStatus    EventType = "session.status_change"
	EventTypeVisitorAdmit     EventType = "visitor.admit"
	EventTypeVisitorRemove    EventType = "visitor.remove"
	EventTypeCheckin          EventType = "attendance.checkin"
)

type Auditor struct {
	logger *slog.Logger
	repo   repository.Repository
}

func NewAuditor(logger *slog.Logger, repo repository.Repository) Auditor {
	return Auditor{logger: logger, repo: repo}
}

type LogEventParam struct {
	ActorID uuid.UUID
	Type    EventType
	Data    map[string]any
}

func (a *Auditor) LogEvent(ctx context.Context, params LogEventParam) error {
	data, err := json.Marshal(params.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event data: %w", err)
	}

	if err := a.repo.CreateAuditEvent(ctx, params.ActorID, string(params.Type), data); err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

// MustLogEvent logs the event and only reports failures to the logger. Used
// where auditing must not fail the surrounding operation.
func (a *Auditor) MustLogEvent(ctx context.Context, params LogEventParam) {
	if err := a.LogEvent(ctx, params); err != nil {
		a.logger.Error("audit event dropped", "type", params.Type, "error", err)
	}
}
