package account_test

import (
	"context"
	"log/slog"
	"testing"

	"sigma/internal/account"
	"sigma/internal/apperror"
	"sigma/internal/audit"
	"sigma/internal/model"
	"sigma/internal/repository/repositorytest"
	"sigma/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(repo *repositorytest.Fake) account.Manager {
	logger := slog.New(slog.DiscardHandler)
	auditor := audit.NewAuditor(logger, repo)
	return account.NewManager(logger, repo, &auditor)
}

func TestCreateLodge_ProvisionsWebmaster(t *testing.T) {
	repo := repositorytest.New()
	manager := newManager(repo)
	actorID := uuid.New()

	result, err := manager.CreateLodge(context.Background(), actorID, account.CreateLodgeParam{
		Name:              "Acacia Lodge",
		Code:              "aca-001",
		Number:            "17",
		WebmasterUsername: "wm_acacia",
		WebmasterEmail:    "wm@acacia.example.com",
		WebmasterPassword: "initial password",
	})
	require.NoError(t, err)

	assert.Equal(t, "ACA-001", result.Lodge.Code)
	assert.True(t, result.Lodge.Active)
	assert.Equal(t, result.Lodge.ID, result.Webmaster.LodgeID)
	assert.NotEmpty(t, result.Webmaster.PasswordHash)
	assert.NotEqual(t, "initial password", result.Webmaster.PasswordHash)

	_, ok := repo.Lodges[result.Lodge.ID]
	assert.True(t, ok)
	_, ok = repo.Webmasters[result.Webmaster.ID]
	assert.True(t, ok)
	assert.Empty(t, repo.Hierarchy)
}

func TestCreateLodge_WithSuperior(t *testing.T) {
	repo := repositorytest.New()
	manager := newManager(repo)

	superior := model.Lodge{ID: uuid.New(), Name: "Grand Lodge", Code: "GRL-001", Active: true}
	repo.Lodges[superior.ID] = superior

	result, err := manager.CreateLodge(context.Background(), uuid.New(), account.CreateLodgeParam{
		Name:              "Acacia Lodge",
		Code:              "ACA-001",
		WebmasterUsername: "wm_acacia",
		WebmasterEmail:    "wm@acacia.example.com",
		WebmasterPassword: "initial password",
		SuperiorLodgeID:   util.Some(superior.ID),
		Relationship:      model.RelationshipJurisdictional,
	})
	require.NoError(t, err)

	require.Len(t, repo.Hierarchy, 1)
	edge := repo.Hierarchy[0]
	assert.Equal(t, superior.ID, edge.SuperiorLodgeID)
	assert.Equal(t, result.Lodge.ID, edge.SubordinateLodgeID)
	assert.Equal(t, model.RelationshipJurisdictional, edge.Relationship)
}

func TestCreateLodge_UnknownSuperior(t *testing.T) {
	repo := repositorytest.New()
	manager := newManager(repo)

	_, err := manager.CreateLodge(context.Background(), uuid.New(), account.CreateLodgeParam{
		Name:              "Acacia Lodge",
		Code:              "ACA-001",
		WebmasterUsername: "wm",
		WebmasterEmail:    "wm@example.com",
		WebmasterPassword: "pw",
		SuperiorLodgeID:   util.Some(uuid.New()),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCreateLodge_DuplicateCode(t *testing.T) {
	repo := repositorytest.New()
	manager := newManager(repo)

	existing := model.Lodge{ID: uuid.New(), Name: "Acacia Lodge", Code: "ACA-001", Active: true}
	repo.Lodges[existing.ID] = existing

	_, err := manager.CreateLodge(context.Background(), uuid.New(), account.CreateLodgeParam{
		Name:              "Impostor Lodge",
		Code:              "ACA-001",
		WebmasterUsername: "wm",
		WebmasterEmail:    "wm@example.com",
		WebmasterPassword: "pw",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}
