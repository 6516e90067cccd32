package store

import "context"

// mutation is one optimistic write. run applies the local change, commits it
// remotely and reconciles; it returns the id the entity ended up under (for
// create, the server-assigned one) so the queue can follow the rename.
type mutation[T any] struct {
	ctx    context.Context
	op     string
	run    func(ctx context.Context, id int64) (newID int64, err error)
	result chan error
}

// opQueue serialises mutations per id: at most one in flight, the rest
// applied in submission order after the previous one settles. This is what
// prevents a double-clicked assign-then-delete from interleaving.
type opQueue[T any] struct {
	id  int64
	ops []*mutation[T]
}

func (s *Store[T]) enqueue(id int64, m *mutation[T]) {
	s.mu.Lock()
	q, ok := s.pending[id]
	if !ok {
		q = &opQueue[T]{id: id}
		s.pending[id] = q
	}
	q.ops = append(q.ops, m)
	first := len(q.ops) == 1
	s.mu.Unlock()

	if first {
		go s.drain(q)
	}
}

// drain processes q front to back. It runs in its own goroutine; exactly one
// drain exists per queue at a time.
func (s *Store[T]) drain(q *opQueue[T]) {
	for {
		s.mu.Lock()
		if len(q.ops) == 0 {
			delete(s.pending, q.id)
			s.mu.Unlock()
			return
		}
		m := q.ops[0]
		id := q.id
		s.mu.Unlock()

		newID, err := m.run(m.ctx, id)
		m.result <- err

		s.mu.Lock()
		q.ops = q.ops[1:]
		if newID != 0 && newID != q.id {
			// A create settled and the temp id became a server id. Queued
			// followers must target the server id from now on.
			delete(s.pending, q.id)
			q.id = newID
			if _, taken := s.pending[newID]; !taken {
				s.pending[newID] = q
			} else {
				s.log.Warn().Int64("id", newID).Msg("mutation queue collision after id swap")
			}
		}
		if len(q.ops) == 0 {
			delete(s.pending, q.id)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}
