package auth_test

import (
	"context"
	"testing"

	"sigma/internal/apperror"
	"sigma/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, f *fixture, tokenString string) auth.Identity {
	t.Helper()
	identity, err := f.resolver.Resolve(context.Background(), tokenString)
	require.NoError(t, err)
	return identity
}

func TestAuthorize_ElevatedProfilesBypass(t *testing.T) {
	f := newFixture(t)

	requiredSets := [][]string{
		nil,
		{"read:lodge_members"},
		{"manage:roles", "delete:lodge_members", "something:unheard_of"},
	}

	admin := resolve(t, f, f.superAdminToken(t))
	webmaster := resolve(t, f, f.webmasterToken(t))

	for _, required := range requiredSets {
		assert.NoError(t, auth.Authorize(admin, required...))
		assert.NoError(t, auth.Authorize(webmaster, required...))
	}
}

func TestAuthorize_LodgeMember(t *testing.T) {
	f := newFixture(t)
	member := resolve(t, f, f.memberToken(t))

	tests := []struct {
		name     string
		required []string
		wantKind apperror.Kind
		ok       bool
	}{
		{name: "empty set", required: nil, ok: true},
		{name: "granted single", required: []string{"read:lodge_members"}, ok: true},
		{name: "granted pair", required: []string{"read:lodge_members", "read:sessions"}, ok: true},
		{name: "missing one", required: []string{"read:lodge_members", "manage:roles"}, wantKind: apperror.KindForbidden},
		{name: "missing all", required: []string{"manage:roles"}, wantKind: apperror.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Authorize(member, tt.required...)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
		})
	}
}

// Granting a superset never revokes a subset: if a member passes for P2 and
// P1 is contained in P2, it passes for P1 as well.
func TestAuthorize_Monotonicity(t *testing.T) {
	f := newFixture(t)
	member := resolve(t, f, f.memberToken(t))

	p2 := []string{"read:lodge_members", "read:sessions"}
	require.NoError(t, auth.Authorize(member, p2...))

	subsets := [][]string{
		{},
		{"read:lodge_members"},
		{"read:sessions"},
		p2,
	}
	for _, p1 := range subsets {
		assert.NoError(t, auth.Authorize(member, p1...))
	}
}

func TestAuthorize_UnknownProfileFailsClosed(t *testing.T) {
	err := auth.Authorize(auth.Identity{Profile: auth.Profile("intruder")}, "read:lodge_members")
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))

	err = auth.Authorize(auth.Identity{Profile: auth.ProfileVisitor})
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}
