package domain

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusBlocked    TaskStatus = "blocked"
)

// ParseStatus normalises a server status string, accepting the legacy
// aliases some deployments still emit. Unrecognised values become todo.
func ParseStatus(s string) TaskStatus {
	switch s {
	case "todo", "pending":
		return StatusTodo
	case "in_progress", "in-progress":
		return StatusInProgress
	case "done", "completed":
		return StatusDone
	case "blocked":
		return StatusBlocked
	default:
		return StatusTodo
	}
}

// Task is a unit of work inside a project. AssigneeID and DueDate are
// optional; ProjectID is required and must reference a known project.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	ProjectID   int64      `json:"project_id"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueDate     *string    `json:"due_date"`
}
