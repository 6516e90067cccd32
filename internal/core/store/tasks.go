package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/ports"
)

// AssignFunc commits an assignment remotely and returns the server-confirmed
// assignee id. Implemented by the gateway's POST /tasks/:id/assign call.
type AssignFunc func(ctx context.Context, taskID, userID int64) (int64, error)

// TaskStore extends the generic store with the assignment mutation, which
// runs through the same per-id queue as updates and deletes so a rapid
// assign-then-delete on one task never interleaves.
type TaskStore struct {
	*Store[domain.Task]
	assign AssignFunc
}

// NewTaskStore builds the task collection store.
func NewTaskStore(remote ports.Remote[domain.Task], assign AssignFunc, log zerolog.Logger, opts ...Option[domain.Task]) *TaskStore {
	base := New("tasks", remote,
		func(t domain.Task) int64 { return t.ID },
		func(t *domain.Task, id int64) { t.ID = id },
		log, opts...)
	return &TaskStore{Store: base, assign: assign}
}

// AssignOptimistic sets the assignee locally and reconciles with the server,
// rolling back on failure. The server confirms the assignment instead of
// echoing the task, so the patched task is kept and only the confirmed
// assignee id is taken from the response.
func (ts *TaskStore) AssignOptimistic(ctx context.Context, taskID, userID int64) <-chan error {
	return ts.mutate(ctx, taskID, "assign",
		func(t domain.Task) domain.Task {
			t.AssigneeID = &userID
			return t
		},
		func(ctx context.Context, id int64, next domain.Task) (*domain.Task, error) {
			confirmed, err := ts.assign(ctx, id, userID)
			if err != nil {
				return nil, err
			}
			next.AssigneeID = &confirmed
			return &next, nil
		})
}
