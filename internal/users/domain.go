// Package users implements the super-admin user administration surface.
package users

import (
	"time"

	"github.com/promodesk/promodesk/internal/rbac"
)

// User represents an account as seen by user administration. The password
// hash never enters this package.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
