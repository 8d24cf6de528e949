package auth

import (
	"fmt"

	"sigma/internal/apperror"
)

// Authorize allows or denies an identity against a statically declared
// permission set. SuperAdmin and Webmaster short-circuit: the former has
// global authority, the latter unrestricted authority within its own lodge.
// LodgeMember passes only when every required action is in its resolved
// permission set. The switch is exhaustive over the known profiles so a new
// profile cannot silently fall through to an allowed branch.
func Authorize(identity Identity, required ...string) error {
	switch identity.Profile {
	case ProfileSuperAdmin, ProfileWebmaster:
		return nil
	case ProfileLodgeMember:
		for _, action := range required {
			if !identity.Role.HasPermission(action) {
				return apperror.Forbidden(fmt.Sprintf("missing permission %q", action))
			}
		}
		return nil
	case ProfileVisitor:
		return apperror.Unauthenticated("visitors cannot access protected resources")
	default:
		return apperror.Unauthenticated("unknown profile")
	}
}
