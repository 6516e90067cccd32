// Package policy is the single authoritative permission table. Navigation
// visibility and mutation gating both consult Can, so they cannot drift
// apart the way scattered per-page role checks do.
package policy

import "github.com/taskboard/tracker-core/internal/core/domain"

// Action names a user intent that requires authorization.
type Action string

const (
	ActionViewUsers        Action = "users.view"
	ActionManageUsers      Action = "users.manage"
	ActionCreateProject    Action = "projects.create"
	ActionEditProject      Action = "projects.edit"
	ActionCreateTask       Action = "tasks.create"
	ActionAssignTask       Action = "tasks.assign"
	ActionDeleteTask       Action = "tasks.delete"
	ActionViewAdminStats   Action = "dashboard.admin_stats"
	ActionViewPublicRoutes Action = "routes.public"
)

// allActions is the closed action set; Can denies anything outside it.
var allActions = []Action{
	ActionViewUsers,
	ActionManageUsers,
	ActionCreateProject,
	ActionEditProject,
	ActionCreateTask,
	ActionAssignTask,
	ActionDeleteTask,
	ActionViewAdminStats,
	ActionViewPublicRoutes,
}

// rules grants non-admin roles their explicit actions. Admin is absent on
// purpose: it is granted everything by the override in Can.
var rules = map[domain.Role][]Action{
	domain.RoleManager: {
		ActionCreateProject,
		ActionEditProject,
		ActionCreateTask,
		ActionAssignTask,
		ActionDeleteTask,
		ActionViewPublicRoutes,
	},
	domain.RoleDeveloper: {
		ActionCreateTask,
		ActionViewPublicRoutes,
	},
	domain.RoleUser: {
		ActionViewPublicRoutes,
	},
	domain.RoleUnknown: {
		ActionViewPublicRoutes,
	},
}

// Can reports whether role may perform action. Admin is allowed every
// defined action regardless of the explicit table.
func Can(role domain.Role, action Action) bool {
	if !defined(action) {
		return false
	}
	if role == domain.RoleAdmin {
		return true
	}
	for _, a := range rules[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Allowed returns the full action set granted to role, for menu rendering.
func Allowed(role domain.Role) []Action {
	if role == domain.RoleAdmin {
		out := make([]Action, len(allActions))
		copy(out, allActions)
		return out
	}
	out := make([]Action, len(rules[role]))
	copy(out, rules[role])
	return out
}

// Actions returns the closed set of defined actions.
func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

func defined(action Action) bool {
	for _, a := range allActions {
		if a == action {
			return true
		}
	}
	return false
}
