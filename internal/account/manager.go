package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/audit"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/util"

	"github.com/google/uuid"
)

// Manager provisions lodges and their administrative accounts.
type Manager struct {
	logger  *slog.Logger
	repo    repository.Repository
	auditor *audit.Auditor
	now     func() time.Time
}

func NewManager(logger *slog.Logger, repo repository.Repository, auditor *audit.Auditor) Manager {
	return Manager{logger: logger, repo: repo, auditor: auditor, now: time.Now}
}

type CreateLodgeParam struct {
	Name   string
	Code   string
	Number string

	WebmasterUsername string
	WebmasterEmail    string
	WebmasterPassword string

	// SuperiorLodgeID links the new lodge under an existing one; optional.
	SuperiorLodgeID util.Optional[uuid.UUID]
	Relationship    model.HierarchyRelationship
}

type CreateLodgeResult struct {
	Lodge     model.Lodge     `json:"lodge"`
	Webmaster model.Webmaster `json:"webmaster"`
}

// CreateLodge provisions a lodge together with its webmaster account and,
// when a superior lodge is given, the hierarchy edge linking the two.
func (m *Manager) CreateLodge(ctx context.Context, actorID uuid.UUID, param CreateLodgeParam) (CreateLodgeResult, error) {
	if param.SuperiorLodgeID.IsSet {
		if _, err := m.repo.GetLodgeByID(ctx, param.SuperiorLodgeID.Val); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return CreateLodgeResult{}, apperror.NotFound("superior lodge not found")
			}
			return CreateLodgeResult{}, fmt.Errorf("failed to load superior lodge: %w", err)
		}
	}

	now := m.now()
	lodge := model.Lodge{
		ID:        uuid.New(),
		Name:      param.Name,
		Code:      strings.ToUpper(param.Code),
		Number:    param.Number,
		Active:    true,
		CreatedAt: now,
	}
	if err := m.repo.CreateLodge(ctx, lodge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return CreateLodgeResult{}, apperror.Conflict("lodge code already in use")
		}
		return CreateLodgeResult{}, fmt.Errorf("failed to create lodge: %w", err)
	}

	passwordHash, err := HashPassword(param.WebmasterPassword)
	if err != nil {
		return CreateLodgeResult{}, err
	}
	webmaster := model.Webmaster{
		ID:           uuid.New(),
		LodgeID:      lodge.ID,
		Username:     param.WebmasterUsername,
		Email:        param.WebmasterEmail,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
	}
	if err := m.repo.CreateWebmaster(ctx, webmaster); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return CreateLodgeResult{}, apperror.Conflict("webmaster username or email already in use")
		}
		return CreateLodgeResult{}, fmt.Errorf("failed to create webmaster: %w", err)
	}

	if param.SuperiorLodgeID.IsSet {
		relationship := param.Relationship
		if relationship == "" {
			relationship = model.RelationshipSubordinate
		}
		edge := model.LodgeHierarchy{
			ID:                 uuid.New(),
			SuperiorLodgeID:    param.SuperiorLodgeID.Val,
			SubordinateLodgeID: lodge.ID,
			Relationship:       relationship,
		}
		if err := m.repo.CreateLodgeHierarchy(ctx, edge); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return CreateLodgeResult{}, fmt.Errorf("failed to create hierarchy edge: %w", err)
		}
	}

	m.auditor.MustLogEvent(ctx, audit.LogEventParam{
		ActorID: actorID,
		Type:    audit.EventTypeLodgeCreate,
		Data:    map[string]any{"lodge_id": lodge.ID, "code": lodge.Code},
	})
	m.logger.Info("lodge provisioned", "lodge_id", lodge.ID, "code", lodge.Code)

	return CreateLodgeResult{Lodge: lodge, Webmaster: webmaster}, nil
}
