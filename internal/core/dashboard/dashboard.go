// Package dashboard derives counts and rates from store snapshots. It owns
// no state of its own: the last computed summary is memoized purely for
// efficiency and is invalidated by the stores' version counters.
package dashboard

import (
	"sort"
	"sync"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/store"
)

// RecentLimit is how many latest-created tasks a summary carries.
const RecentLimit = 5

// Summary is the derived dashboard view.
type Summary struct {
	TotalProjects  int
	TotalTasks     int
	ByStatus       map[domain.TaskStatus]int
	CompletionRate float64
	Recent         []domain.Task
}

// Summarize computes a Summary from raw snapshots. Pure: no I/O, no hidden
// state, same input always yields the same output.
func Summarize(projects []domain.Project, tasks []domain.Task) Summary {
	byStatus := map[domain.TaskStatus]int{
		domain.StatusTodo:       0,
		domain.StatusInProgress: 0,
		domain.StatusDone:       0,
		domain.StatusBlocked:    0,
	}
	for _, t := range tasks {
		byStatus[t.Status]++
	}

	rate := 0.0
	if len(tasks) > 0 {
		rate = float64(byStatus[domain.StatusDone]) / float64(len(tasks))
	}

	recent := make([]domain.Task, len(tasks))
	copy(recent, tasks)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].ID > recent[j].ID })
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}

	return Summary{
		TotalProjects:  len(projects),
		TotalTasks:     len(tasks),
		ByStatus:       byStatus,
		CompletionRate: rate,
		Recent:         recent,
	}
}

// Aggregator recomputes the summary whenever the subscribed stores change.
type Aggregator struct {
	projects *store.Store[domain.Project]
	tasks    *store.TaskStore

	mu       sync.Mutex
	lastPVer uint64
	lastTVer uint64
	cached   *Summary
}

// New builds an aggregator over the two stores feeding the dashboard.
func New(projects *store.Store[domain.Project], tasks *store.TaskStore) *Aggregator {
	return &Aggregator{projects: projects, tasks: tasks}
}

// Summary returns the current derived view, recomputing only when either
// store's version moved since the last call.
func (a *Aggregator) Summary() Summary {
	pv, tv := a.projects.Version(), a.tasks.Version()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached != nil && a.lastPVer == pv && a.lastTVer == tv {
		return *a.cached
	}

	s := Summarize(a.projects.Snapshot(), a.tasks.Snapshot())
	a.lastPVer, a.lastTVer = pv, tv
	a.cached = &s
	return s
}
