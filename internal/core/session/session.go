// Package session owns the authenticated identity: login, rehydration from
// the persisted slot, logout, and the forced invalidation a 401 triggers.
// It is the single persistence boundary for the token and cached profile.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/ports"
)

// Event tells subscribers why the session changed.
type Event int

const (
	EventLoggedIn Event = iota
	EventLoggedOut
	// EventExpired is an involuntary logout caused by a rejected token.
	EventExpired
)

// Store holds the current session and persists it across restarts. It
// implements ports.SessionState for the gateway and the entity stores.
type Store struct {
	gateway ports.Gateway
	slot    ports.CredentialStore
	log     zerolog.Logger

	mu        sync.Mutex
	current   *domain.Session
	listeners []func(Event)

	epoch atomic.Uint64
}

// New wires a session store over the gateway and the persisted slot.
func New(gateway ports.Gateway, slot ports.CredentialStore, log zerolog.Logger) *Store {
	return &Store{gateway: gateway, slot: slot, log: log.With().Str("component", "session").Logger()}
}

// Login authenticates against the server and persists the session. A 401 or
// 422 from the server comes back as domain.ErrInvalidCredentials so forms
// can distinguish rejected credentials from an unreachable host.
func (s *Store) Login(ctx context.Context, creds ports.Credentials) (*domain.Session, error) {
	result, err := s.gateway.Login(ctx, creds)
	if err != nil {
		switch ports.KindOf(err) {
		case ports.KindUnauthorized, ports.KindValidation:
			return nil, domain.ErrInvalidCredentials
		default:
			return nil, err
		}
	}

	sess := &domain.Session{User: result.User, Token: result.Token}
	s.mu.Lock()
	s.current = sess
	s.epoch.Add(1)
	s.mu.Unlock()

	if err := s.slot.Save(ports.StoredSession{User: sess.User, Token: sess.Token}); err != nil {
		// A session that cannot be persisted still works for this process.
		s.log.Warn().Err(err).Msg("failed to persist session")
	}
	s.log.Info().Str("username", sess.User.Username).Str("role", string(sess.User.Role)).Msg("logged in")
	s.emit(EventLoggedIn)
	return sess, nil
}

// Restore rehydrates the session from the persisted slot at startup. A
// missing, malformed or expired token clears the slot and yields nil; it
// never returns an error.
func (s *Store) Restore() *domain.Session {
	stored, err := s.slot.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("unreadable session slot, clearing")
		_ = s.slot.Clear()
		return nil
	}
	if stored == nil || stored.Token == "" {
		return nil
	}
	if !tokenUsable(stored.Token) {
		s.log.Info().Msg("persisted token malformed or expired, clearing")
		_ = s.slot.Clear()
		return nil
	}

	sess := &domain.Session{User: stored.User, Token: stored.Token}
	s.mu.Lock()
	s.current = sess
	s.epoch.Add(1)
	s.mu.Unlock()
	s.log.Info().Str("username", sess.User.Username).Msg("session restored")
	return sess
}

// Logout clears the in-memory session and the persisted slot synchronously.
// Idempotent: logging out while logged out is a no-op.
func (s *Store) Logout() {
	if !s.clear() {
		return
	}
	s.log.Info().Msg("logged out")
	s.emit(EventLoggedOut)
}

// Invalidate is the 401 hook called by the gateway. Like Logout, but
// subscribers are told the session expired rather than ended voluntarily.
func (s *Store) Invalidate() {
	if !s.clear() {
		return
	}
	s.log.Warn().Msg("session invalidated by server")
	s.emit(EventExpired)
}

// clear removes session state and reports whether there was one to remove.
func (s *Store) clear() bool {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.epoch.Add(1)
	s.mu.Unlock()

	if err := s.slot.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear session slot")
	}
	return had
}

// SetUser replaces the cached profile after a successful profile update,
// keeping the persisted slot in sync. No-op when logged out.
func (s *Store) SetUser(u domain.User) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	updated := &domain.Session{User: u, Token: s.current.Token}
	s.current = updated
	s.mu.Unlock()

	if err := s.slot.Save(ports.StoredSession{User: updated.User, Token: updated.Token}); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist updated profile")
	}
}

// Current returns the active session, or nil when logged out.
func (s *Store) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Role returns the active role, RoleUnknown when logged out.
func (s *Store) Role() domain.Role {
	return s.Current().Role()
}

// Token implements ports.SessionState.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Epoch implements ports.SessionState. It increments on every login, logout
// and invalidation, letting in-flight completions detect the session they
// were issued under is gone.
func (s *Store) Epoch() uint64 {
	return s.epoch.Load()
}

// Subscribe registers fn for session lifecycle events.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), len(s.listeners))
	copy(fns, s.listeners)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// tokenUsable checks the token parses as a JWT and has not expired. The
// client does not hold the signing secret, so the signature is not (and
// cannot be) verified here; the server remains the authority.
func tokenUsable(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp != nil && exp.Before(time.Now()) {
		return false
	}
	return true
}

// IsAuthErr reports whether err represents rejected credentials, as opposed
// to a transport failure.
func IsAuthErr(err error) bool {
	return errors.Is(err, domain.ErrInvalidCredentials)
}
