package search

import "sync"

// Registry is a thread-safe store of tasks keyed by id. Tasks are never
// evicted; the tool is process-lifetime-bounded and task volume is low.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register inserts the task under its id and returns it for chaining.
func (r *Registry) Register(task *Task) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = task
	return task
}

// Get returns the task for the given id, or nil when unknown.
func (r *Registry) Get(id string) *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

// RequestCancel signals cancellation on the task with the given id.
// It returns false when the id is unknown.
func (r *Registry) RequestCancel(id string) bool {
	task := r.Get(id)
	if task == nil {
		return false
	}
	task.RequestCancel()
	return true
}

// Snapshots returns a snapshot of every registered task.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Snapshot())
	}
	return out
}
