// Package rbac holds the static role and permission table.
package rbac

import "fmt"

// Role is one of the four hard-coded account roles.
type Role string

const (
	RoleStudent    Role = "student"
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists every role, lowest privilege first.
var Roles = []Role{RoleStudent, RoleStaff, RoleAdmin, RoleSuperAdmin}

// ParseRole returns the Role for s or an error for unknown strings.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleStaff, RoleAdmin, RoleSuperAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("rbac: unknown role %q", s)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// IsAdmin reports whether r is admin or super_admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Subordinates returns the roles directly managed by r.
func (r Role) Subordinates() []Role {
	switch r {
	case RoleSuperAdmin:
		return []Role{RoleAdmin, RoleStaff, RoleStudent}
	case RoleAdmin:
		return []Role{RoleStaff, RoleStudent}
	case RoleStaff:
		return []Role{RoleStudent}
	case RoleStudent:
		return nil
	default:
		return nil
	}
}

// Outranks reports whether other is one of r's subordinates.
func (r Role) Outranks(other Role) bool {
	for _, s := range r.Subordinates() {
		if s == other {
			return true
		}
	}
	return false
}
