package auth

import (
	"strings"
	"time"
)

// Role is the closed set of roles the application knows about.
type Role string

const (
	RoleEmployee      Role = "employee"
	RoleDivisionHead  Role = "division_head"
	RoleAdministrator Role = "administrator"
)

// ParseRole normalizes raw input into a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleEmployee:
		return RoleEmployee, true
	case RoleDivisionHead:
		return RoleDivisionHead, true
	case RoleAdministrator:
		return RoleAdministrator, true
	default:
		return "", false
	}
}

// User represents an employee account. Accounts are never physically deleted;
// access is withdrawn by clearing the Active flag.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role"`
	Department       string    `json:"department"`
	Active           bool      `json:"active"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TwoFactorSecret  string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
