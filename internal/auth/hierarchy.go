package auth

import (
	"context"
	"fmt"

	"sigma/internal/repository"
)

// ExpandScope fills SubordinateLodgeIDs for identities whose role carries
// cross-lodge authority. It applies only after Authorize has succeeded.
// SuperAdmin and Webmaster get an empty set: their access is already
// unrestricted by other means. LodgeMember gets the lodges subordinate to its
// own when the role's GrantsHierarchicalScope capability is set, and an empty
// set otherwise.
func ExpandScope(ctx context.Context, repo repository.Repository, identity Identity) (Identity, error) {
	identity.SubordinateLodgeIDs = nil

	if identity.Profile != ProfileLodgeMember || !identity.Role.GrantsHierarchicalScope {
		return identity, nil
	}

	subordinates, err := repo.ListSubordinateLodgeIDs(ctx, identity.Lodge.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to expand hierarchical scope: %w", err)
	}
	identity.SubordinateLodgeIDs = subordinates
	return identity, nil
}
