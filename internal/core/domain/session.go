package domain

// Session is the authenticated identity held by the client. The token is
// opaque to everything except the session store, which inspects its expiry
// claim when rehydrating from disk.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Role returns the session's role, or RoleUnknown for a nil session, so
// callers can feed it straight into the authorization policy.
func (s *Session) Role() Role {
	if s == nil {
		return RoleUnknown
	}
	return s.User.Role
}
