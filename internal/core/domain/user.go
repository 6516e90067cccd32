package domain

// Role is the single authorization attribute of a user. Every permission
// decision in the client derives from it.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	// RoleUnknown marks an unauthenticated or unrecognised actor.
	RoleUnknown Role = "unknown"
)

// ParseRole maps a server-provided role string to a Role. Anything outside
// the known set collapses to RoleUnknown rather than being trusted.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleDeveloper, RoleUser:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// User models an account as returned by the tracker API.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}
