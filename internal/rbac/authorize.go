package rbac

import (
	"fmt"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

// capabilities is the total role -> capability mapping. Every role has an
// entry for every capability.
var capabilities = map[Role]map[Capability]bool{
	RoleUser: {
		CapabilityRead:        true,
		CapabilityCreate:      false,
		CapabilityUpdate:      false,
		CapabilityDelete:      false,
		CapabilityManageUsers: false,
	},
	RoleAdmin: {
		CapabilityRead:        true,
		CapabilityCreate:      true,
		CapabilityUpdate:      true,
		CapabilityDelete:      false,
		CapabilityManageUsers: false,
	},
	RoleSuperAdmin: {
		CapabilityRead:        true,
		CapabilityCreate:      true,
		CapabilityUpdate:      true,
		CapabilityDelete:      true,
		CapabilityManageUsers: true,
	},
}

// Can reports whether the role grants the capability. Unknown roles grant
// nothing.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}

// Authorize checks that the role grants every listed capability. The
// Forbidden detail names the actor role and the first missing capability;
// acceptable for an internal tool, flagged as a hardening opportunity for
// public deployments.
func Authorize(role Role, caps ...Capability) error {
	for _, c := range caps {
		if !role.Can(c) {
			return fmt.Errorf("%w: role %s lacks %s capability", httpx.ErrForbidden, role, c)
		}
	}
	return nil
}

// GuardSelf rejects administrative mutations aimed at the acting user's own
// account, so a super admin cannot demote, deactivate or delete itself.
func GuardSelf(actorID, targetID int64) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot modify own account through user administration", httpx.ErrForbidden)
	}
	return nil
}
