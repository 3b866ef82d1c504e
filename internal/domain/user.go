package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// IsPrivileged is the default role-capability predicate: admins and
// managers hold elevated rights on every task channel.
func IsPrivileged(role Role) bool {
	return role == RoleAdmin || role == RoleManager
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller as extracted from a verified
// token. It is supplied externally and never mutated by this core.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}
