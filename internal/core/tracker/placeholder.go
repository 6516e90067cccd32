package tracker

import "github.com/taskboard/tracker-core/internal/core/domain"

// Placeholder datasets shown when the remote is unreachable and a store is
// empty. Ids are negative sentinels so no placeholder entry can ever be
// mistaken for (or collide with) a server-assigned one; a successful refresh
// replaces them wholesale.

func placeholderUsers() []domain.User {
	return []domain.User{
		{ID: -1, Username: "admin", Email: "admin@company.com", Role: domain.RoleAdmin, IsActive: true},
		{ID: -2, Username: "alice_dev", Email: "alice@company.com", Role: domain.RoleDeveloper, IsActive: true},
		{ID: -3, Username: "bob_designer", Email: "bob@company.com", Role: domain.RoleDeveloper, IsActive: true},
		{ID: -4, Username: "charlie_backend", Email: "charlie@company.com", Role: domain.RoleDeveloper, IsActive: true},
	}
}

func placeholderProjects() []domain.Project {
	return []domain.Project{
		{ID: -1, Name: "Project Management Tool", Description: "Internal tracker rollout", OwnerID: -1},
		{ID: -2, Name: "Mobile App Development", Description: "Companion app for field teams", OwnerID: -1},
		{ID: -3, Name: "Website Redesign", Description: "Marketing site refresh", OwnerID: -1},
	}
}

func placeholderTasks() []domain.Task {
	due := func(d string) *string { return &d }
	assignee := func(id int64) *int64 { return &id }
	return []domain.Task{
		{ID: -1, Title: "Design Dashboard UI", Description: "Create wireframes and mockups for the admin dashboard", ProjectID: -1, AssigneeID: assignee(-2), Status: domain.StatusInProgress, DueDate: due("2025-11-02")},
		{ID: -2, Title: "Setup Database Schema", Description: "Create tables for users, projects, and tasks", ProjectID: -1, AssigneeID: assignee(-3), Status: domain.StatusDone, DueDate: due("2025-10-28")},
		{ID: -3, Title: "Write API Documentation", Description: "Document all REST endpoints with examples", ProjectID: -2, AssigneeID: assignee(-2), Status: domain.StatusTodo, DueDate: due("2025-11-05")},
		{ID: -4, Title: "Implement Authentication", Description: "Add JWT-based authentication system", ProjectID: -1, AssigneeID: assignee(-4), Status: domain.StatusInProgress, DueDate: due("2025-11-01")},
		{ID: -5, Title: "User Testing", Description: "Conduct usability tests with beta users", ProjectID: -2, AssigneeID: assignee(-3), Status: domain.StatusTodo, DueDate: due("2025-11-10")},
	}
}
