package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/auth"
	"sigma/internal/model"
	"sigma/internal/repository/repositorytest"
	"sigma/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	repo     *repositorytest.Fake
	codec    *token.Codec
	resolver *auth.Resolver

	lodge  model.Lodge
	admin  model.SuperAdmin
	wm     model.Webmaster
	member model.LodgeMember
	role   model.Role
	assoc  model.Association
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:  repositorytest.New(),
		codec: token.NewCodec(testSecret, time.Hour),
	}
	f.resolver = auth.NewResolver(f.repo, f.codec, slog.New(slog.DiscardHandler))

	f.lodge = model.Lodge{ID: uuid.New(), Name: "Acacia Lodge", Code: "ACA-001", Active: true}
	f.repo.Lodges[f.lodge.ID] = f.lodge

	f.admin = model.SuperAdmin{ID: uuid.New(), Username: "root", Email: "root@example.com", Active: true}
	f.repo.SuperAdmins[f.admin.ID] = f.admin

	f.wm = model.Webmaster{ID: uuid.New(), LodgeID: f.lodge.ID, Username: "webmaster_aca", Email: "wm@example.com", Active: true}
	f.repo.Webmasters[f.wm.ID] = f.wm

	f.member = model.LodgeMember{ID: uuid.New(), LodgeID: f.lodge.ID, Name: "John Doe", Email: "john@example.com", Active: true}
	f.repo.LodgeMembers[f.member.ID] = f.member

	f.role = model.Role{ID: uuid.New(), Name: "Secretary"}
	f.repo.Roles[f.role.ID] = f.role
	f.repo.RolePerms[f.role.ID] = []model.Permission{
		{ID: uuid.New(), Action: "read:lodge_members"},
		{ID: uuid.New(), Action: "read:sessions"},
	}

	f.assoc = model.Association{ID: uuid.New(), LodgeMemberID: f.member.ID, LodgeID: f.lodge.ID, RoleID: f.role.ID}
	f.repo.Associations[f.assoc.ID] = f.assoc

	return f
}

func (f *fixture) issue(t *testing.T, claims map[string]any) string {
	t.Helper()
	signed, err := f.codec.Issue(claims, 0)
	require.NoError(t, err)
	return signed
}

func (f *fixture) superAdminToken(t *testing.T) string {
	return f.issue(t, map[string]any{"profile": "super_admin", "superadmin_id": f.admin.ID.String()})
}

func (f *fixture) webmasterToken(t *testing.T) string {
	return f.issue(t, map[string]any{"profile": "webmaster", "webmaster_id": f.wm.ID.String()})
}

func (f *fixture) memberToken(t *testing.T) string {
	return f.issue(t, map[string]any{
		"profile":         "lodge_member",
		"lodge_member_id": f.member.ID.String(),
		"association_id":  f.assoc.ID.String(),
	})
}

func TestResolver_SuperAdmin(t *testing.T) {
	f := newFixture(t)

	identity, err := f.resolver.Resolve(context.Background(), f.superAdminToken(t))
	require.NoError(t, err)

	assert.Equal(t, auth.ProfileSuperAdmin, identity.Profile)
	assert.Equal(t, f.admin.ID, identity.SuperAdmin.ID)
	assert.Nil(t, identity.Lodge)
	assert.Equal(t, "SuperAdmin", identity.Role.Name)
}

func TestResolver_Webmaster(t *testing.T) {
	f := newFixture(t)

	identity, err := f.resolver.Resolve(context.Background(), f.webmasterToken(t))
	require.NoError(t, err)

	assert.Equal(t, auth.ProfileWebmaster, identity.Profile)
	require.NotNil(t, identity.Lodge)
	assert.Equal(t, f.lodge.ID, identity.Lodge.ID)
	assert.Equal(t, "Webmaster", identity.Role.Name)
}

func TestResolver_LodgeMember(t *testing.T) {
	f := newFixture(t)

	identity, err := f.resolver.Resolve(context.Background(), f.memberToken(t))
	require.NoError(t, err)

	assert.Equal(t, auth.ProfileLodgeMember, identity.Profile)
	require.NotNil(t, identity.Lodge)
	assert.Equal(t, f.lodge.ID, identity.Lodge.ID)
	require.NotNil(t, identity.Association)
	assert.Equal(t, f.assoc.ID, identity.Association.ID)
	assert.Equal(t, "Secretary", identity.Role.Name)
	assert.True(t, identity.Role.HasPermission("read:lodge_members"))
	assert.False(t, identity.Role.HasPermission("delete:lodge_members"))
}

func TestResolver_FailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage token", "not-a-token"},
		{"missing profile", f.issue(t, map[string]any{"superadmin_id": f.admin.ID.String()})},
		{"unknown profile", f.issue(t, map[string]any{"profile": "intruder", "superadmin_id": f.admin.ID.String()})},
		{"missing id claim", f.issue(t, map[string]any{"profile": "super_admin"})},
		{"non-uuid id claim", f.issue(t, map[string]any{"profile": "super_admin", "superadmin_id": "42"})},
		{"deleted super admin", f.issue(t, map[string]any{"profile": "super_admin", "superadmin_id": uuid.NewString()})},
		{"deleted member", f.issue(t, map[string]any{
			"profile": "lodge_member", "lodge_member_id": uuid.NewString(), "association_id": f.assoc.ID.String(),
		})},
		{"mismatched association", f.issue(t, map[string]any{
			"profile": "lodge_member", "lodge_member_id": f.member.ID.String(), "association_id": uuid.NewString(),
		})},
		{"member token without association claim", f.issue(t, map[string]any{
			"profile": "lodge_member", "lodge_member_id": f.member.ID.String(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(ctx, tt.token)
			require.Error(t, err)
			assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
		})
	}
}

func TestResolver_InactiveAccountsRejected(t *testing.T) {
	f := newFixture(t)

	inactive := f.member
	inactive.Active = false
	f.repo.LodgeMembers[f.member.ID] = inactive

	_, err := f.resolver.Resolve(context.Background(), f.memberToken(t))
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestResolver_WebmasterWithoutLodgeIsIntegrityFailure(t *testing.T) {
	f := newFixture(t)

	orphan := model.Webmaster{ID: uuid.New(), LodgeID: uuid.New(), Username: "orphan", Email: "orphan@example.com", Active: true}
	f.repo.Webmasters[orphan.ID] = orphan

	tokenString := f.issue(t, map[string]any{"profile": "webmaster", "webmaster_id": orphan.ID.String()})
	_, err := f.resolver.Resolve(context.Background(), tokenString)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

func TestResolver_ExpiredToken(t *testing.T) {
	f := newFixture(t)

	shortCodec := token.NewCodec(testSecret, 1*time.Nanosecond)
	expired, err := shortCodec.Issue(map[string]any{"profile": "super_admin", "superadmin_id": f.admin.ID.String()}, 1*time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = f.resolver.Resolve(context.Background(), expired)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}
