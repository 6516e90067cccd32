package ports

import "github.com/taskboard/tracker-core/internal/core/domain"

// SessionState is the read side of the session exposed to the gateway and
// the entity stores. Token is attached to every request; Epoch increments on
// every login, logout and invalidation so in-flight completions can detect
// that the session they were issued under is gone; Invalidate is the 401
// hook that forces a logout.
type SessionState interface {
	Token() string
	Epoch() uint64
	Invalidate()
}

// StoredSession is the single persisted slot: token and last-known profile,
// written and cleared together.
type StoredSession struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// CredentialStore is the local-storage equivalent: one slot, atomic
// replace, idempotent clear. Load returns (nil, nil) when the slot is empty.
type CredentialStore interface {
	Load() (*StoredSession, error)
	Save(s StoredSession) error
	Clear() error
}
