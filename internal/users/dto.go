package users

import (
	"github.com/promodesk/promodesk/internal/rbac"
	"github.com/promodesk/promodesk/internal/shared"
)

// ListUsersRequest shapes a filtered, paginated user listing.
type ListUsersRequest struct {
	Page     int
	Limit    int
	Role     *rbac.Role
	IsActive *bool
	Search   *string
}

// ListUsersResponse is the paginated listing payload.
type ListUsersResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// SetStatusRequest sets the activation flag. A pointer distinguishes an
// explicit false from an absent field.
type SetStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// BulkRoleRequest assigns one role to many users at once.
type BulkRoleRequest struct {
	IDs  []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Role string  `json:"role" validate:"required"`
}

// BulkRoleResponse reports how many accounts changed.
type BulkRoleResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`
}

// Overview aggregates account counts by status.
type Overview struct {
	TotalUsers    int64 `json:"totalUsers"`
	ActiveUsers   int64 `json:"activeUsers"`
	InactiveUsers int64 `json:"inactiveUsers"`
}

// RoleCount is one row of the per-role breakdown.
type RoleCount struct {
	Role  rbac.Role `json:"role"`
	Count int64     `json:"count"`
}

// StatsResponse is the user statistics payload.
type StatsResponse struct {
	Overview  Overview    `json:"overview"`
	RoleStats []RoleCount `json:"roleStats"`
}
