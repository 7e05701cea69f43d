// Package rbac implements the role and capability model.
//
// Roles form a closed three-variant enum and every role maps to a defined
// answer for every capability, so there is no reachable "undefined role"
// state and no ad-hoc role-string comparison anywhere else in the codebase.
package rbac

import (
	"fmt"
	"time"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists all valid roles.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
}

// ParseRole converts a raw string into a Role.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, raw)
}

// Capability is the atomic unit of permission.
type Capability string

const (
	CapabilityRead        Capability = "read"
	CapabilityCreate      Capability = "create"
	CapabilityUpdate      Capability = "update"
	CapabilityDelete      Capability = "delete"
	CapabilityManageUsers Capability = "manage_users"
)

// Actor describes the authenticated user attached to a request context.
// The password hash never travels on it.
type Actor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
