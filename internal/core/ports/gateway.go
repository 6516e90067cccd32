package ports

import (
	"context"

	"github.com/taskboard/tracker-core/internal/core/domain"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterInput is the unauthenticated registration payload.
type RegisterInput struct {
	Username string      `json:"username" validate:"required,min=3"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     domain.Role `json:"role" validate:"required,oneof=admin manager developer user"`
}

// ProfileInput updates the authenticated user's own profile.
type ProfileInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
}

// LoginResult is what a successful login yields: the bearer token plus the
// server's view of the user. The server response is the sole source of role.
type LoginResult struct {
	Token string
	User  domain.User
}

// Remote is the per-collection transport surface the entity store drives.
// Every method either succeeds or returns a *RemoteError; implementations
// never panic across this boundary and honour ctx cancellation.
type Remote[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) (*T, error)
	Update(ctx context.Context, id int64, item T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Gateway is the full REST surface the client consumes. It owns transport
// and error normalisation only; no business logic lives behind it.
type Gateway interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, input ProfileInput) (*domain.User, error)

	Users() Remote[domain.User]
	Projects() Remote[domain.Project]
	Tasks() Remote[domain.Task]

	// AssignTask sets the task's assignee. The server confirms the
	// assignment rather than echoing the task; the confirmed assignee id is
	// returned.
	AssignTask(ctx context.Context, taskID, userID int64) (int64, error)
}
