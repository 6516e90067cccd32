// Package tracker is the intent facade: every UI action flows through here,
// where it is gated by the authorization policy, validated against the data
// model, and only then applied optimistically to the entity stores. This is
// the single consolidation point for checks that used to drift per page.
package tracker

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/taskboard/tracker-core/internal/core/dashboard"
	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/policy"
	"github.com/taskboard/tracker-core/internal/core/ports"
	"github.com/taskboard/tracker-core/internal/core/session"
	"github.com/taskboard/tracker-core/internal/core/store"
)

// Options tunes client construction.
type Options struct {
	// OfflineFallback enables the tagged placeholder datasets on
	// network-failed reads.
	OfflineFallback bool
}

// Client composes the session, the policy, the three entity stores and the
// dashboard aggregator behind one API.
type Client struct {
	gateway  ports.Gateway
	session  *session.Store
	projects *store.Store[domain.Project]
	tasks    *store.TaskStore
	users    *store.Store[domain.User]
	dash     *dashboard.Aggregator
	validate *validator.Validate
	log      zerolog.Logger
}

// New wires a client over an already-bound gateway and session store. On
// logout or session expiry every store is reset so no collection outlives
// its owner.
func New(gw ports.Gateway, sess *session.Store, log zerolog.Logger, opts Options) *Client {
	pOpts := []store.Option[domain.Project]{store.WithSession[domain.Project](sess)}
	tOpts := []store.Option[domain.Task]{store.WithSession[domain.Task](sess)}
	uOpts := []store.Option[domain.User]{store.WithSession[domain.User](sess)}
	if opts.OfflineFallback {
		pOpts = append(pOpts, store.WithPlaceholder(placeholderProjects()))
		tOpts = append(tOpts, store.WithPlaceholder(placeholderTasks()))
		uOpts = append(uOpts, store.WithPlaceholder(placeholderUsers()))
	}

	projects := store.New("projects", gw.Projects(),
		func(p domain.Project) int64 { return p.ID },
		func(p *domain.Project, id int64) { p.ID = id },
		log, pOpts...)
	users := store.New("users", gw.Users(),
		func(u domain.User) int64 { return u.ID },
		func(u *domain.User, id int64) { u.ID = id },
		log, uOpts...)
	tasks := store.NewTaskStore(gw.Tasks(), gw.AssignTask, log, tOpts...)

	c := &Client{
		gateway:  gw,
		session:  sess,
		projects: projects,
		tasks:    tasks,
		users:    users,
		dash:     dashboard.New(projects, tasks),
		validate: validator.New(),
		log:      log.With().Str("component", "tracker").Logger(),
	}

	sess.Subscribe(func(ev session.Event) {
		if ev == session.EventLoggedOut || ev == session.EventExpired {
			projects.Reset()
			tasks.Reset()
			users.Reset()
		}
	})
	return c
}

// Session exposes the session store for login/logout/subscription.
func (c *Client) Session() *session.Store { return c.session }

// Projects exposes the project collection store (read side).
func (c *Client) Projects() *store.Store[domain.Project] { return c.projects }

// Tasks exposes the task collection store (read side).
func (c *Client) Tasks() *store.TaskStore { return c.tasks }

// Users exposes the user collection store (read side).
func (c *Client) Users() *store.Store[domain.User] { return c.users }

// Can reports whether the current session's role may perform action. The
// same table gates menus and mutations.
func (c *Client) Can(action policy.Action) bool {
	return policy.Can(c.session.Role(), action)
}

func (c *Client) gate(action policy.Action) error {
	if !c.Can(action) {
		c.log.Debug().Str("action", string(action)).Str("role", string(c.session.Role())).Msg("intent denied")
		return domain.ErrForbidden
	}
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────

// RefreshProjects pulls the project collection. Requires authentication.
func (c *Client) RefreshProjects(ctx context.Context) error {
	if c.session.Current() == nil {
		return domain.ErrNotAuthenticated
	}
	return c.projects.Refresh(ctx)
}

// RefreshTasks pulls the task collection. Requires authentication.
func (c *Client) RefreshTasks(ctx context.Context) error {
	if c.session.Current() == nil {
		return domain.ErrNotAuthenticated
	}
	return c.tasks.Refresh(ctx)
}

// RefreshUsers pulls the user collection. Admin-gated in practice.
func (c *Client) RefreshUsers(ctx context.Context) error {
	if err := c.gate(policy.ActionViewUsers); err != nil {
		return err
	}
	return c.users.Refresh(ctx)
}

// Summary returns the derived dashboard view for the current caches.
func (c *Client) Summary() dashboard.Summary {
	return c.dash.Summary()
}

// AdminSummary adds the user count visible only to admin dashboards.
func (c *Client) AdminSummary() (dashboard.Summary, int, error) {
	if err := c.gate(policy.ActionViewAdminStats); err != nil {
		return dashboard.Summary{}, 0, err
	}
	return c.dash.Summary(), c.users.Len(), nil
}

// ── Project intents ──────────────────────────────────────────────────────

// CreateProject validates the draft (including the end-after-start
// invariant the server does not enforce) and applies it optimistically.
func (c *Client) CreateProject(ctx context.Context, d ProjectDraft) (int64, <-chan error, error) {
	if err := c.gate(policy.ActionCreateProject); err != nil {
		return 0, nil, err
	}
	if err := c.checkStruct(d); err != nil {
		return 0, nil, err
	}
	p := d.project()
	if err := p.ValidateDates(); err != nil {
		return 0, nil, fieldErr("end_date", err)
	}
	p.OwnerID = c.ownerID()
	temp, res := c.projects.CreateOptimistic(ctx, p)
	return temp, res, nil
}

// UpdateProject patches an existing project optimistically.
func (c *Client) UpdateProject(ctx context.Context, id int64, d ProjectDraft) (<-chan error, error) {
	if err := c.gate(policy.ActionEditProject); err != nil {
		return nil, err
	}
	if err := c.checkStruct(d); err != nil {
		return nil, err
	}
	if err := d.project().ValidateDates(); err != nil {
		return nil, fieldErr("end_date", err)
	}
	res := c.projects.UpdateOptimistic(ctx, id, func(prev domain.Project) domain.Project {
		prev.Name = d.Name
		prev.Description = d.Description
		prev.StartDate = d.StartDate
		prev.EndDate = d.EndDate
		return prev
	})
	return res, nil
}

// DeleteProject removes a project. Gated as a project edit.
func (c *Client) DeleteProject(ctx context.Context, id int64) (<-chan error, error) {
	if err := c.gate(policy.ActionEditProject); err != nil {
		return nil, err
	}
	return c.projects.DeleteOptimistic(ctx, id), nil
}

// ── Task intents ─────────────────────────────────────────────────────────

// CreateTask validates the draft and its references against the local
// caches before any network traffic, per the referential invariants.
func (c *Client) CreateTask(ctx context.Context, d TaskDraft) (int64, <-chan error, error) {
	if err := c.gate(policy.ActionCreateTask); err != nil {
		return 0, nil, err
	}
	if err := c.checkStruct(d); err != nil {
		return 0, nil, err
	}
	if err := c.checkTaskRefs(d.ProjectID, d.AssigneeID); err != nil {
		return 0, nil, err
	}
	temp, res := c.tasks.CreateOptimistic(ctx, d.task())
	return temp, res, nil
}

// UpdateTask patches a task. Any authenticated role may move status; field
// changes ride the same path.
func (c *Client) UpdateTask(ctx context.Context, id int64, d TaskDraft) (<-chan error, error) {
	if c.session.Current() == nil {
		return nil, domain.ErrNotAuthenticated
	}
	if err := c.checkStruct(d); err != nil {
		return nil, err
	}
	if err := c.checkTaskRefs(d.ProjectID, d.AssigneeID); err != nil {
		return nil, err
	}
	res := c.tasks.UpdateOptimistic(ctx, id, func(prev domain.Task) domain.Task {
		next := d.task()
		next.ID = prev.ID
		return next
	})
	return res, nil
}

// AssignTask sets the assignee through the per-id mutation queue.
func (c *Client) AssignTask(ctx context.Context, taskID, userID int64) (<-chan error, error) {
	if err := c.gate(policy.ActionAssignTask); err != nil {
		return nil, err
	}
	if err := c.checkAssignee(&userID); err != nil {
		return nil, err
	}
	return c.tasks.AssignOptimistic(ctx, taskID, userID), nil
}

// DeleteTask removes a task optimistically.
func (c *Client) DeleteTask(ctx context.Context, id int64) (<-chan error, error) {
	if err := c.gate(policy.ActionDeleteTask); err != nil {
		return nil, err
	}
	return c.tasks.DeleteOptimistic(ctx, id), nil
}

// ── Account intents ──────────────────────────────────────────────────────

// Login checks the credentials' shape locally, then authenticates through
// the session store. Malformed input never reaches the network.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (*domain.Session, error) {
	if err := c.checkStruct(creds); err != nil {
		return nil, err
	}
	return c.session.Login(ctx, creds)
}

// Register creates an account. Public: no session required.
func (c *Client) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	if err := c.checkStruct(input); err != nil {
		return nil, err
	}
	return c.gateway.Register(ctx, input)
}

// Profile fetches the authenticated user's server-side profile.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	if c.session.Current() == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return c.gateway.CurrentUser(ctx)
}

// UpdateProfile updates username/email and refreshes the cached profile in
// the persisted slot.
func (c *Client) UpdateProfile(ctx context.Context, input ports.ProfileInput) (*domain.User, error) {
	if c.session.Current() == nil {
		return nil, domain.ErrNotAuthenticated
	}
	if err := c.checkStruct(input); err != nil {
		return nil, err
	}
	user, err := c.gateway.UpdateProfile(ctx, input)
	if err != nil {
		return nil, err
	}
	c.session.SetUser(*user)
	return user, nil
}

// ── Referential checks ───────────────────────────────────────────────────

func (c *Client) checkTaskRefs(projectID int64, assigneeID *int64) error {
	if _, ok := c.projects.Get(projectID); !ok {
		return fieldErr("project_id", domain.ErrUnknownProject)
	}
	return c.checkAssignee(assigneeID)
}

// checkAssignee verifies the reference when the user cache has content.
// Roles that may not list users run with an empty cache; for them the
// server stays the authority.
func (c *Client) checkAssignee(assigneeID *int64) error {
	if assigneeID == nil || c.users.Len() == 0 {
		return nil
	}
	if _, ok := c.users.Get(*assigneeID); !ok {
		return fieldErr("assignee_id", domain.ErrUnknownAssignee)
	}
	return nil
}

func (c *Client) ownerID() int64 {
	if s := c.session.Current(); s != nil {
		return s.User.ID
	}
	return 0
}
