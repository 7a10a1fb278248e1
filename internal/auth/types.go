package auth

import "errors"

// Role represents an authorisation tier of an API token.
type Role string

const (
	// RoleViewer may read the inventory and drive the viewport: select a
	// device, resize the surface, subscribe to frames.
	RoleViewer Role = "viewer"

	// RoleEditor can do everything a viewer can plus create, edit and
	// delete devices.
	RoleEditor Role = "editor"

	// RoleAdmin has full control, including system metrics.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleEditor, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrEmptySubject = errors.New("empty subject")
	ErrForbidden    = errors.New("insufficient permissions")
)
