package models

// Role names stored on a user.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Role distinguishes customers from back-office operators.
type Role string

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}
