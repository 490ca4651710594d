package domain

import "fmt"

// Role is the access level attached to a Profile
type Role string

const (
	RoleUnauthorized Role = "unauthorized" // Anonymous or explicitly demoted account
	RoleAuthorized   Role = "authorized"   // Regular customer
	RoleEditor       Role = "editor"       // May edit catalog entries
	RoleAdmin        Role = "admin"        // Full catalog and account management
)

// Roles lists every valid role
var Roles = []Role{RoleUnauthorized, RoleAuthorized, RoleEditor, RoleAdmin}

// ParseRole converts a raw string into a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the enumerated roles
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
