package model

import (
	"fmt"
	"strings"

	"reseller-billing/internal/domain"
)

// Role is the authorization axis orthogonal to Tier.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
	RoleUser   Role = "user"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleViewer, RoleUser:
		return true
	}
	return false
}

// rank orders roles for HasRole. Unknown roles rank below everything.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleStaff:
		return 3
	case RoleViewer:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// HasRole reports whether r is at least minimum in the privilege hierarchy.
func HasRole(r, minimum Role) bool {
	if !r.Valid() || !minimum.Valid() {
		return false
	}
	return r.rank() >= minimum.rank()
}

// CanEdit is true only for admin and staff.
func CanEdit(r Role) bool { return r == RoleAdmin || r == RoleStaff }

// IsReadOnly is true only for viewer.
func IsReadOnly(r Role) bool { return r == RoleViewer }
