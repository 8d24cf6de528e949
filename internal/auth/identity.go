// Package auth implements the trust boundary: bearer-token resolution into a
// typed identity, permission checks, and hierarchical scope expansion.
package auth

import (
	"context"
	"log/slog"

	"sigma/internal/apperror"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Profile discriminates the account kinds sharing one authorization surface.
type Profile string

const (
	ProfileSuperAdmin  Profile = "super_admin"
	ProfileWebmaster   Profile = "webmaster"
	ProfileLodgeMember Profile = "lodge_member"
	// ProfileVisitor is issued to registered visitors for session check-in
	// only; it carries no permissions.
	ProfileVisitor Profile = "visitor"
)

// RoleContext is the resolved authorization context of an identity. For
// SuperAdmin and Webmaster it is implicit (name only, unrestricted authority);
// for LodgeMember it is derived from the association's role.
type RoleContext struct {
	Name                    string
	GrantsHierarchicalScope bool
	Permissions             map[string]struct{}
}

// HasPermission reports exact-string set inclusion; no wildcards.
func (r RoleContext) HasPermission(action string) bool {
	_, ok := r.Permissions[action]
	return ok
}

// Identity is the result of resolving a bearer token. Exactly one of the
// profile-specific payloads is non-nil, matching Profile.
type Identity struct {
	Profile     Profile
	SuperAdmin  *model.SuperAdmin
	Webmaster   *model.Webmaster
	Member      *model.LodgeMember
	Visitor     *model.Visitor
	Lodge       *model.Lodge
	Association *model.Association
	Role        RoleContext

	// SubordinateLodgeIDs is populated by ExpandScope for identities whose
	// role grants cross-lodge authority; empty otherwise.
	SubordinateLodgeIDs []uuid.UUID
}

// AccountID returns the id of the underlying account.
func (id Identity) AccountID() uuid.UUID {
	switch id.Profile {
	case ProfileSuperAdmin:
		return id.SuperAdmin.ID
	case ProfileWebmaster:
		return id.Webmaster.ID
	case ProfileLodgeMember:
		return id.Member.ID
	case ProfileVisitor:
		return id.Visitor.ID
	}
	return uuid.Nil
}

// LodgeIDs returns every lodge id the identity may read: its own lodge plus
// any subordinate lodges granted by ExpandScope.
func (id Identity) LodgeIDs() []uuid.UUID {
	var ids []uuid.UUID
	if id.Lodge != nil {
		ids = append(ids, id.Lodge.ID)
	}
	return append(ids, id.SubordinateLodgeIDs...)
}

// Resolver turns bearer tokens into identities. It is read-only and
// side-effect-free; it is invoked once per request and never caches, so role
// or permission changes take effect immediately.
type Resolver struct {
	repo   repository.Repository
	codec  *token.Codec
	logger *slog.Logger
}

func NewResolver(repo repository.Repository, codec *token.Codec, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, codec: codec, logger: logger}
}

var errCredentials = apperror.Unauthenticated("could not validate credentials")

// Resolve verifies the token, dispatches on the profile claim and loads the
// full identity. Every failure mode — bad token, unknown profile, missing
// claim, missing or inactive account, broken relation — fails closed with
// Unauthenticated; there is no partial success.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (Identity, error) {
	claims, err := r.codec.Verify(tokenString)
	if err != nil {
		return Identity{}, errCredentials
	}

	profile, _ := claims["profile"].(string)
	switch Profile(profile) {
	case ProfileSuperAdmin:
		return r.resolveSuperAdmin(ctx, claims)
	case ProfileWebmaster:
		return r.resolveWebmaster(ctx, claims)
	case ProfileLodgeMember:
		return r.resolveLodgeMember(ctx, claims)
	case ProfileVisitor:
		return r.resolveVisitor(ctx, claims)
	default:
		return Identity{}, errCredentials
	}
}

func (r *Resolver) resolveSuperAdmin(ctx context.Context, claims jwt.MapClaims) (Identity, error) {
	id, ok := claimUUID(claims, "superadmin_id")
	if !ok {
		return Identity{}, errCredentials
	}
	admin, err := r.repo.GetSuperAdminByID(ctx, id)
	if err != nil || !admin.Active {
		return Identity{}, errCredentials
	}
	return Identity{
		Profile:    ProfileSuperAdmin,
		SuperAdmin: &admin,
		Role:       RoleContext{Name: "SuperAdmin"},
	}, nil
}

func (r *Resolver) resolveWebmaster(ctx context.Context, claims jwt.MapClaims) (Identity, error) {
	id, ok := claimUUID(claims, "webmaster_id")
	if !ok {
		return Identity{}, errCredentials
	}
	webmaster, err := r.repo.GetWebmasterByID(ctx, id)
	if err != nil || !webmaster.Active {
		return Identity{}, errCredentials
	}

	lodge, err := r.repo.GetLodgeByID(ctx, webmaster.LodgeID)
	if err != nil {
		// A webmaster always references a lodge; a missing one means the
		// referential state is corrupt, not that the caller lacks access.
		r.logger.Error("webmaster references missing lodge",
			"webmaster_id", webmaster.ID, "lodge_id", webmaster.LodgeID)
		return Identity{}, apperror.Wrap(apperror.KindInternal, "inconsistent webmaster account", err)
	}

	return Identity{
		Profile:   ProfileWebmaster,
		Webmaster: &webmaster,
		Lodge:     &lodge,
		Role:      RoleContext{Name: "Webmaster"},
	}, nil
}

func (r *Resolver) resolveLodgeMember(ctx context.Context, claims jwt.MapClaims) (Identity, error) {
	memberID, ok := claimUUID(claims, "lodge_member_id")
	if !ok {
		return Identity{}, errCredentials
	}
	associationID, ok := claimUUID(claims, "association_id")
	if !ok {
		return Identity{}, errCredentials
	}

	// Both claims must match the same association row.
	association, err := r.repo.GetAssociationForMember(ctx, associationID, memberID)
	if err != nil {
		return Identity{}, errCredentials
	}
	member, err := r.repo.GetLodgeMemberByID(ctx, memberID)
	if err != nil || !member.Active {
		return Identity{}, errCredentials
	}
	role, err := r.repo.GetRoleByID(ctx, association.RoleID)
	if err != nil {
		return Identity{}, errCredentials
	}
	permissions, err := r.repo.ListPermissionsForRole(ctx, role.ID)
	if err != nil {
		return Identity{}, errCredentials
	}
	lodge, err := r.repo.GetLodgeByID(ctx, association.LodgeID)
	if err != nil {
		return Identity{}, errCredentials
	}

	actions := make(map[string]struct{}, len(permissions))
	for _, permission := range permissions {
		actions[permission.Action] = struct{}{}
	}

	return Identity{
		Profile:     ProfileLodgeMember,
		Member:      &member,
		Lodge:       &lodge,
		Association: &association,
		Role: RoleContext{
			Name:                    role.Name,
			GrantsHierarchicalScope: role.GrantsHierarchicalScope,
			Permissions:             actions,
		},
	}, nil
}

func (r *Resolver) resolveVisitor(ctx context.Context, claims jwt.MapClaims) (Identity, error) {
	id, ok := claimUUID(claims, "visitor_id")
	if !ok {
		return Identity{}, errCredentials
	}
	visitor, err := r.repo.GetVisitorByID(ctx, id)
	if err != nil {
		return Identity{}, errCredentials
	}
	return Identity{
		Profile: ProfileVisitor,
		Visitor: &visitor,
		Role:    RoleContext{Name: "Visitor"},
	}, nil
}

func claimUUID(claims jwt.MapClaims, key string) (uuid.UUID, bool) {
	raw, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
