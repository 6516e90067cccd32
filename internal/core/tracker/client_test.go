package tracker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/policy"
	"github.com/taskboard/tracker-core/internal/core/ports"
	"github.com/taskboard/tracker-core/internal/core/session"
	"github.com/taskboard/tracker-core/pkg/logger"
)

// ---------------------------------------------------------------------------
// Stub gateway with countable collection remotes
// ---------------------------------------------------------------------------

type countingRemote[T any] struct {
	items       []T
	listErr     error
	createCalls atomic.Int32
	nextID      int64
	withID      func(T, int64) T
}

func (r *countingRemote[T]) List(_ context.Context) ([]T, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *countingRemote[T]) Create(_ context.Context, item T) (*T, error) {
	r.createCalls.Add(1)
	r.nextID++
	created := r.withID(item, r.nextID)
	return &created, nil
}

func (r *countingRemote[T]) Update(_ context.Context, _ int64, item T) (*T, error) {
	return &item, nil
}

func (r *countingRemote[T]) Delete(_ context.Context, _ int64) error { return nil }

type stubGateway struct {
	role       domain.Role
	loginCalls atomic.Int32
	users      *countingRemote[domain.User]
	projects   *countingRemote[domain.Project]
	tasks      *countingRemote[domain.Task]
}

func newStubGateway(role domain.Role) *stubGateway {
	return &stubGateway{
		role: role,
		users: &countingRemote[domain.User]{
			items:  []domain.User{{ID: 1, Username: "admin", Role: domain.RoleAdmin}, {ID: 2, Username: "alice", Role: domain.RoleDeveloper}},
			nextID: 100,
			withID: func(u domain.User, id int64) domain.User { u.ID = id; return u },
		},
		projects: &countingRemote[domain.Project]{
			items:  []domain.Project{{ID: 1, Name: "Tracker"}},
			nextID: 100,
			withID: func(p domain.Project, id int64) domain.Project { p.ID = id; return p },
		},
		tasks: &countingRemote[domain.Task]{
			nextID: 100,
			withID: func(t domain.Task, id int64) domain.Task { t.ID = id; return t },
		},
	}
}

func (g *stubGateway) Login(_ context.Context, _ ports.Credentials) (*ports.LoginResult, error) {
	g.loginCalls.Add(1)
	return &ports.LoginResult{Token: "tok", User: domain.User{ID: 9, Username: "tester", Role: g.role}}, nil
}

func (g *stubGateway) Register(_ context.Context, input ports.RegisterInput) (*domain.User, error) {
	return &domain.User{ID: 50, Username: input.Username, Email: input.Email, Role: input.Role}, nil
}

func (g *stubGateway) CurrentUser(_ context.Context) (*domain.User, error) {
	return &domain.User{ID: 9, Username: "tester", Role: g.role}, nil
}

func (g *stubGateway) UpdateProfile(_ context.Context, input ports.ProfileInput) (*domain.User, error) {
	return &domain.User{ID: 9, Username: input.Username, Email: input.Email, Role: g.role}, nil
}

func (g *stubGateway) Users() ports.Remote[domain.User]       { return g.users }
func (g *stubGateway) Projects() ports.Remote[domain.Project] { return g.projects }
func (g *stubGateway) Tasks() ports.Remote[domain.Task]       { return g.tasks }

func (g *stubGateway) AssignTask(_ context.Context, _, userID int64) (int64, error) {
	return userID, nil
}

type memSlot struct{ stored *ports.StoredSession }

func (m *memSlot) Load() (*ports.StoredSession, error) { return m.stored, nil }
func (m *memSlot) Save(s ports.StoredSession) error    { m.stored = &s; return nil }
func (m *memSlot) Clear() error                        { m.stored = nil; return nil }

// loggedInClient builds a client with an authenticated session of the given
// role.
func loggedInClient(t *testing.T, role domain.Role) (*Client, *stubGateway) {
	t.Helper()
	gw := newStubGateway(role)
	log := logger.New(logger.Options{Level: "error"})
	sess := session.New(gw, &memSlot{}, log)
	c := New(gw, sess, log, Options{})

	_, err := sess.Login(context.Background(), ports.Credentials{Email: "t@example.com", Password: "pw"})
	require.NoError(t, err)
	return c, gw
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("mutation did not settle in time")
		return nil
	}
}

// ---------------------------------------------------------------------------
// Authorization gating
// ---------------------------------------------------------------------------

func TestRefreshUsersGatedByRole(t *testing.T) {
	dev, _ := loggedInClient(t, domain.RoleDeveloper)
	assert.ErrorIs(t, dev.RefreshUsers(context.Background()), domain.ErrForbidden)

	admin, _ := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, admin.RefreshUsers(context.Background()))
	assert.Equal(t, 2, admin.Users().Len())
}

func TestCreateProjectDeniedForDeveloper(t *testing.T) {
	dev, gw := loggedInClient(t, domain.RoleDeveloper)
	_, _, err := dev.CreateProject(context.Background(), ProjectDraft{Name: "nope"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, gw.projects.createCalls.Load())
}

func TestCanMatchesGating(t *testing.T) {
	dev, _ := loggedInClient(t, domain.RoleDeveloper)
	assert.True(t, dev.Can(policy.ActionCreateTask))
	assert.False(t, dev.Can(policy.ActionCreateProject))
	assert.False(t, dev.Can(policy.ActionManageUsers))
}

func TestAdminSummaryGated(t *testing.T) {
	dev, _ := loggedInClient(t, domain.RoleDeveloper)
	_, _, err := dev.AdminSummary()
	assert.ErrorIs(t, err, domain.ErrForbidden)

	admin, _ := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, admin.RefreshUsers(context.Background()))
	_, userCount, err := admin.AdminSummary()
	require.NoError(t, err)
	assert.Equal(t, 2, userCount)
}

func TestRefreshRequiresAuthentication(t *testing.T) {
	gw := newStubGateway(domain.RoleAdmin)
	log := logger.New(logger.Options{Level: "error"})
	sess := session.New(gw, &memSlot{}, log)
	c := New(gw, sess, log, Options{})

	assert.ErrorIs(t, c.RefreshProjects(context.Background()), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, c.RefreshTasks(context.Background()), domain.ErrNotAuthenticated)
}

// ---------------------------------------------------------------------------
// Referential and field validation
// ---------------------------------------------------------------------------

func TestCreateTaskUnknownProjectRejectedBeforeNetwork(t *testing.T) {
	c, gw := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, c.RefreshProjects(context.Background()))
	before := c.Tasks().Snapshot()

	_, _, err := c.CreateTask(context.Background(), TaskDraft{Title: "orphan", ProjectID: 999})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownProject)
	assert.Equal(t, ports.KindValidation, ports.KindOf(err))
	assert.Contains(t, ports.FieldsOf(err), "project_id")

	assert.Zero(t, gw.tasks.createCalls.Load(), "no network call may be made")
	assert.Equal(t, before, c.Tasks().Snapshot(), "store must be unchanged")
}

func TestCreateTaskHappyPath(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, c.RefreshProjects(context.Background()))

	temp, res, err := c.CreateTask(context.Background(), TaskDraft{Title: "real", ProjectID: 1})
	require.NoError(t, err)
	assert.Negative(t, temp)
	require.NoError(t, await(t, res))

	got, ok := c.Tasks().Get(101)
	require.True(t, ok)
	assert.Equal(t, "real", got.Title)
	assert.Equal(t, domain.StatusTodo, got.Status, "unset status defaults to todo")
}

func TestCreateTaskMissingTitle(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, c.RefreshProjects(context.Background()))

	_, _, err := c.CreateTask(context.Background(), TaskDraft{ProjectID: 1})
	require.Error(t, err)
	assert.Equal(t, ports.KindValidation, ports.KindOf(err))
	assert.Contains(t, ports.FieldsOf(err), "title")
}

func TestCreateTaskUnknownAssigneeRejectedWhenUsersCached(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, c.RefreshProjects(context.Background()))
	require.NoError(t, c.RefreshUsers(context.Background()))

	ghost := int64(777)
	_, _, err := c.CreateTask(context.Background(), TaskDraft{Title: "t", ProjectID: 1, AssigneeID: &ghost})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownAssignee)
	assert.Contains(t, ports.FieldsOf(err), "assignee_id")
}

func TestCreateProjectDateRangeInvariant(t *testing.T) {
	c, gw := loggedInClient(t, domain.RoleManager)

	_, _, err := c.CreateProject(context.Background(), ProjectDraft{
		Name:      "backwards",
		StartDate: "2025-06-30",
		EndDate:   "2025-01-01",
	})
	require.Error(t, err)
	assert.Equal(t, ports.KindValidation, ports.KindOf(err))
	assert.Contains(t, ports.FieldsOf(err), "end_date")
	assert.Zero(t, gw.projects.createCalls.Load())
}

func TestCreateProjectStampsOwner(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleManager)

	_, res, err := c.CreateProject(context.Background(), ProjectDraft{
		Name:      "ok",
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	})
	require.NoError(t, err)
	require.NoError(t, await(t, res))

	got, ok := c.Projects().Get(101)
	require.True(t, ok)
	assert.Equal(t, int64(9), got.OwnerID)
}

// ---------------------------------------------------------------------------
// Assignment and deletion
// ---------------------------------------------------------------------------

func TestAssignTaskFlow(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleManager)
	require.NoError(t, c.RefreshProjects(context.Background()))

	_, res, err := c.CreateTask(context.Background(), TaskDraft{Title: "assignable", ProjectID: 1})
	require.NoError(t, err)
	require.NoError(t, await(t, res))

	assignRes, err := c.AssignTask(context.Background(), 101, 2)
	require.NoError(t, err)
	require.NoError(t, await(t, assignRes))

	got, _ := c.Tasks().Get(101)
	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, int64(2), *got.AssigneeID)
	assert.Equal(t, "assignable", got.Title)
	assert.Equal(t, int64(1), got.ProjectID)
}

func TestAssignTaskDeniedForPlainUser(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleUser)
	_, err := c.AssignTask(context.Background(), 1, 2)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDeleteTaskDeniedForDeveloper(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleDeveloper)
	_, err := c.DeleteTask(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ---------------------------------------------------------------------------
// Session lifecycle wiring
// ---------------------------------------------------------------------------

func TestLogoutResetsAllStores(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleAdmin)
	require.NoError(t, c.RefreshProjects(context.Background()))
	require.NoError(t, c.RefreshUsers(context.Background()))
	require.NotZero(t, c.Projects().Len())

	c.Session().Logout()

	assert.Zero(t, c.Projects().Len())
	assert.Zero(t, c.Tasks().Len())
	assert.Zero(t, c.Users().Len())
}

func TestLoginValidatesCredentialsBeforeNetwork(t *testing.T) {
	gw := newStubGateway(domain.RoleUser)
	log := logger.New(logger.Options{Level: "error"})
	sess := session.New(gw, &memSlot{}, log)
	c := New(gw, sess, log, Options{})

	_, err := c.Login(context.Background(), ports.Credentials{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, ports.KindValidation, ports.KindOf(err))
	fields := ports.FieldsOf(err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Zero(t, gw.loginCalls.Load(), "malformed credentials must not reach the gateway")

	_, err = c.Login(context.Background(), ports.Credentials{Email: "t@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), gw.loginCalls.Load())
	assert.NotNil(t, c.Session().Current())
}

func TestRegisterValidatesInput(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleAdmin)

	_, err := c.Register(context.Background(), ports.RegisterInput{Username: "x", Email: "bad", Password: "short", Role: "ghost"})
	require.Error(t, err)
	fields := ports.FieldsOf(err)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "role")

	user, err := c.Register(context.Background(), ports.RegisterInput{
		Username: "newbie", Email: "new@example.com", Password: "secret1", Role: domain.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "newbie", user.Username)
}

func TestUpdateProfileRefreshesCachedUser(t *testing.T) {
	c, _ := loggedInClient(t, domain.RoleDeveloper)

	user, err := c.UpdateProfile(context.Background(), ports.ProfileInput{Username: "renamed", Email: "r@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Username)
	assert.Equal(t, "renamed", c.Session().Current().User.Username)
}

// Placeholder fallback is surfaced through the facade too.
func TestOfflineFallbackThroughFacade(t *testing.T) {
	gw := newStubGateway(domain.RoleAdmin)
	gw.tasks.listErr = ports.NetworkErr(errors.New("unreachable"))
	log := logger.New(logger.Options{Level: "error"})
	sess := session.New(gw, &memSlot{}, log)
	c := New(gw, sess, log, Options{OfflineFallback: true})

	_, err := sess.Login(context.Background(), ports.Credentials{Email: "t@example.com", Password: "pw"})
	require.NoError(t, err)

	require.Error(t, c.RefreshTasks(context.Background()))
	assert.True(t, c.Tasks().Seeded())
	assert.NotZero(t, c.Tasks().Len())

	s := c.Summary()
	assert.Equal(t, c.Tasks().Len(), s.TotalTasks)
}
