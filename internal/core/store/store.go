// Package store holds the authoritative local cache for one entity
// collection. It owns fetch coalescing, optimistic mutations with rollback,
// per-id mutation ordering, the stale-response guard, and the tagged
// placeholder fallback for offline reads.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/taskboard/tracker-core/internal/core/ports"
	"github.com/taskboard/tracker-core/internal/metrics"
)

// Status is the fetch state of the collection.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

// ErrStaleResult reports that a remote result arrived after the session it
// was issued under ended, or after a newer refresh superseded it. The store
// was left untouched.
var ErrStaleResult = errors.New("stale result discarded")

// ErrNotCached reports a mutation against an id absent from the local cache.
var ErrNotCached = errors.New("entity not in local cache")

// Store is a concurrency-safe cache of one entity collection, keyed by id
// with insertion order preserved for consumers that render lists.
type Store[T any] struct {
	name    string
	remote  ports.Remote[T]
	id      func(T) int64
	setID   func(*T, int64)
	session ports.SessionState
	log     zerolog.Logger

	placeholder []T

	mu         sync.Mutex
	items      map[int64]T
	order      []int64
	status     Status
	lastErr    error
	seeded     bool
	version    uint64
	refreshSeq uint64
	pending    map[int64]*opQueue[T]
	nextTemp   int64
	listeners  []func()

	flight singleflight.Group
}

// Option configures a Store at construction.
type Option[T any] func(*Store[T])

// WithPlaceholder provides the tagged offline dataset seeded when a refresh
// fails with a network error and the store is empty.
func WithPlaceholder[T any](items []T) Option[T] {
	return func(s *Store[T]) { s.placeholder = items }
}

// WithSession attaches the session state whose epoch guards in-flight
// completions against applying after logout.
func WithSession[T any](sess ports.SessionState) Option[T] {
	return func(s *Store[T]) { s.session = sess }
}

// New creates a store for one collection. id extracts an item's key; setID
// stamps the temporary key onto optimistic drafts.
func New[T any](name string, remote ports.Remote[T], id func(T) int64, setID func(*T, int64), log zerolog.Logger, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		name:    name,
		remote:  remote,
		id:      id,
		setID:   setID,
		log:     log.With().Str("store", name).Logger(),
		items:   make(map[int64]T),
		pending: make(map[int64]*opQueue[T]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the cache with server state. Concurrent calls coalesce
// into a single network request; every joined caller observes the same
// outcome. A caller whose ctx ends stops waiting, but the shared request
// runs to completion for the others.
func (s *Store[T]) Refresh(ctx context.Context) error {
	ch := s.flight.DoChan("refresh", func() (any, error) {
		return nil, s.refreshOnce(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Store[T]) refreshOnce(ctx context.Context) error {
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	epoch := s.epochLocked()
	s.status = StatusLoading
	s.mu.Unlock()
	s.notify()

	items, err := s.remote.List(ctx)

	s.mu.Lock()
	if s.epochLocked() != epoch || seq != s.refreshSeq {
		s.mu.Unlock()
		s.log.Debug().Msg("refresh result superseded, discarding")
		return ErrStaleResult
	}
	if err != nil {
		s.status = StatusError
		s.lastErr = err
		if ports.KindOf(err) == ports.KindNetwork && len(s.items) == 0 && len(s.placeholder) > 0 {
			s.seedPlaceholderLocked()
			metrics.PlaceholderFallbacksTotal.WithLabelValues(s.name).Inc()
			s.log.Warn().Err(err).Msg("remote unreachable, serving placeholder data")
		}
		s.version++
		s.mu.Unlock()
		s.notify()
		return err
	}

	// A successful refresh always fully replaces the cache. Placeholder data
	// is evicted wholesale, never merged.
	s.items = make(map[int64]T, len(items))
	s.order = s.order[:0]
	for _, it := range items {
		id := s.id(it)
		s.items[id] = it
		s.order = append(s.order, id)
	}
	s.seeded = false
	s.status = StatusIdle
	s.lastErr = nil
	s.version++
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store[T]) seedPlaceholderLocked() {
	s.items = make(map[int64]T, len(s.placeholder))
	s.order = s.order[:0]
	for _, it := range s.placeholder {
		id := s.id(it)
		s.items[id] = it
		s.order = append(s.order, id)
	}
	s.seeded = true
}

// CreateOptimistic inserts draft under a negative temporary id, fires the
// remote create, and reconciles the temp entry with the server-assigned id
// in place. On failure the temp entry is removed entirely. The returned
// channel settles exactly once.
func (s *Store[T]) CreateOptimistic(ctx context.Context, draft T) (int64, <-chan error) {
	// The temp id is fresh, so no queue can exist for it yet and the insert
	// can happen synchronously: the caller sees the entry as soon as this
	// returns.
	s.mu.Lock()
	s.nextTemp--
	temp := s.nextTemp
	epoch := s.epochLocked()
	item := draft
	s.setID(&item, temp)
	s.items[temp] = item
	s.order = append(s.order, temp)
	s.version++
	s.mu.Unlock()
	s.notify()

	res := make(chan error, 1)
	m := &mutation[T]{ctx: ctx, op: "create", result: res}
	m.run = func(ctx context.Context, id int64) (int64, error) {
		created, err := s.remote.Create(ctx, draft)

		s.mu.Lock()
		if s.epochLocked() != epoch {
			s.removeLocked(id)
			s.version++
			s.mu.Unlock()
			s.notify()
			return 0, ErrStaleResult
		}
		if err != nil {
			s.removeLocked(id)
			s.version++
			s.mu.Unlock()
			s.notify()
			metrics.RollbacksTotal.WithLabelValues(s.name, "create").Inc()
			s.log.Debug().Err(err).Int64("temp_id", id).Msg("create rolled back")
			return 0, err
		}
		realID := s.id(*created)
		s.swapLocked(id, realID, *created)
		s.version++
		s.mu.Unlock()
		s.notify()
		return realID, nil
	}
	s.enqueue(temp, m)
	return temp, res
}

// UpdateOptimistic applies patch immediately and reconciles against the
// remote response, restoring the previous value on failure.
func (s *Store[T]) UpdateOptimistic(ctx context.Context, id int64, patch func(T) T) <-chan error {
	return s.mutate(ctx, id, "update", patch, func(ctx context.Context, id int64, next T) (*T, error) {
		return s.remote.Update(ctx, id, next)
	})
}

// DeleteOptimistic removes the item immediately and re-inserts it at its
// prior logical position if the remote delete fails.
func (s *Store[T]) DeleteOptimistic(ctx context.Context, id int64) <-chan error {
	res := make(chan error, 1)
	m := &mutation[T]{ctx: ctx, op: "delete", result: res}
	m.run = func(ctx context.Context, id int64) (int64, error) {
		s.mu.Lock()
		prev, ok := s.items[id]
		if !ok {
			s.mu.Unlock()
			return 0, ErrNotCached
		}
		epoch := s.epochLocked()
		idx := s.indexLocked(id)
		s.removeLocked(id)
		s.version++
		s.mu.Unlock()
		s.notify()

		err := s.remote.Delete(ctx, id)

		s.mu.Lock()
		if s.epochLocked() != epoch {
			s.mu.Unlock()
			return 0, ErrStaleResult
		}
		// A 404 means the server already forgot it; the local removal stands.
		if err != nil && ports.KindOf(err) != ports.KindNotFound {
			s.insertAtLocked(idx, id, prev)
			s.version++
			s.mu.Unlock()
			s.notify()
			metrics.RollbacksTotal.WithLabelValues(s.name, "delete").Inc()
			s.log.Debug().Err(err).Int64("id", id).Msg("delete rolled back")
			return 0, err
		}
		s.mu.Unlock()
		return 0, nil
	}
	s.enqueue(id, m)
	return res
}

// mutate is the shared optimistic-write path for update-shaped operations.
// commit receives the id current at execution time, which may differ from
// the submission id when queued behind a create that swapped its temp id.
func (s *Store[T]) mutate(ctx context.Context, id int64, op string, patch func(T) T, commit func(context.Context, int64, T) (*T, error)) <-chan error {
	res := make(chan error, 1)
	m := &mutation[T]{ctx: ctx, op: op, result: res}
	m.run = func(ctx context.Context, id int64) (int64, error) {
		s.mu.Lock()
		prev, ok := s.items[id]
		if !ok {
			s.mu.Unlock()
			return 0, ErrNotCached
		}
		epoch := s.epochLocked()
		next := patch(prev)
		s.items[id] = next
		s.version++
		s.mu.Unlock()
		s.notify()

		applied, err := commit(ctx, id, next)

		s.mu.Lock()
		if s.epochLocked() != epoch {
			s.mu.Unlock()
			return 0, ErrStaleResult
		}
		if err != nil {
			if ports.KindOf(err) == ports.KindNotFound {
				s.removeLocked(id)
			} else if _, still := s.items[id]; still {
				s.items[id] = prev
			}
			s.version++
			s.mu.Unlock()
			s.notify()
			metrics.RollbacksTotal.WithLabelValues(s.name, op).Inc()
			s.log.Debug().Err(err).Int64("id", id).Str("op", op).Msg("mutation rolled back")
			return 0, err
		}
		if _, still := s.items[id]; still {
			s.items[id] = *applied
			s.version++
		}
		s.mu.Unlock()
		s.notify()
		return 0, nil
	}
	s.enqueue(id, m)
	return res
}

// Reset drops all cached state. Called when the session ends so no stale
// collection outlives its owner.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.items = make(map[int64]T)
	s.order = nil
	s.status = StatusIdle
	s.lastErr = nil
	s.seeded = false
	s.version++
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns the items in insertion order.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Get returns the cached item for id.
func (s *Store[T]) Get(id int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	return item, ok
}

// Len returns the number of cached items.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Status returns the fetch state and, for StatusError, the failure.
func (s *Store[T]) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.lastErr
}

// Seeded reports whether the cache currently holds placeholder data.
func (s *Store[T]) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// Version increases on every observable change. The dashboard aggregator
// memoizes on it.
func (s *Store[T]) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// PendingIDs lists ids with an in-flight or queued mutation.
func (s *Store[T]) PendingIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.pending))
	for id := range s.pending {
		out = append(out, id)
	}
	return out
}

// OnChange registers fn to run after every observable state change.
func (s *Store[T]) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store[T]) notify() {
	s.mu.Lock()
	fns := make([]func(), len(s.listeners))
	copy(fns, s.listeners)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Store[T]) epochLocked() uint64 {
	if s.session == nil {
		return 0
	}
	return s.session.Epoch()
}

func (s *Store[T]) indexLocked(id int64) int {
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *Store[T]) removeLocked(id int64) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	if i := s.indexLocked(id); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

// insertAtLocked restores item at its prior logical position. An idx out of
// range (the collection shrank meanwhile) appends instead.
func (s *Store[T]) insertAtLocked(idx int, id int64, item T) {
	s.items[id] = item
	if idx < 0 || idx > len(s.order) {
		idx = len(s.order)
	}
	s.order = append(s.order, 0)
	copy(s.order[idx+1:], s.order[idx:])
	s.order[idx] = id
}

// swapLocked replaces the temp entry with the server-assigned one without
// disturbing its position. If a refresh evicted the temp entry meanwhile,
// the reconciled item is appended so it is not lost.
func (s *Store[T]) swapLocked(tempID, realID int64, item T) {
	if _, ok := s.items[tempID]; !ok {
		if _, exists := s.items[realID]; !exists {
			s.items[realID] = item
			s.order = append(s.order, realID)
		}
		return
	}
	delete(s.items, tempID)
	s.items[realID] = item
	if i := s.indexLocked(tempID); i >= 0 {
		s.order[i] = realID
	} else {
		s.order = append(s.order, realID)
	}
}
