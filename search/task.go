package search

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a search task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// ErrTaskInterrupted is the control signal raised when a task has been
// cancelled from outside the worker. It is not a real failure.
var ErrTaskInterrupted = errors.New("task interrupted")

// Task is a single batch-search execution. Status transitions go
// pending -> running -> one of completed/failed/cancelled; a terminal
// status never changes afterwards.
type Task struct {
	mu          sync.Mutex
	id          string
	status      TaskStatus
	err         string
	startedAt   *time.Time
	completedAt *time.Time
	cancelled   bool
	logger      *log.Logger
}

// Snapshot is a point-in-time view of a task for status polling.
type Snapshot struct {
	TaskID      string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewTask creates a pending task with a fresh id.
func NewTask(logger *log.Logger) *Task {
	if logger == nil {
		logger = log.Default()
	}
	return &Task{
		id:     uuid.NewString(),
		status: StatusPending,
		logger: logger,
	}
}

// ID returns the task identifier.
func (t *Task) ID() string {
	return t.id
}

// Status returns the current lifecycle state.
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// MarkRunning moves the task from pending to running and stamps started_at.
func (t *Task) MarkRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return
	}
	t.status = StatusRunning
	now := time.Now()
	t.startedAt = &now
}

// MarkCompleted moves the task to completed.
func (t *Task) MarkCompleted() {
	t.finish(StatusCompleted, "")
}

// MarkFailed moves the task to failed and records the error description.
func (t *Task) MarkFailed(err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	t.finish(StatusFailed, msg)
}

// MarkCancelled moves the task to cancelled.
func (t *Task) MarkCancelled() {
	t.finish(StatusCancelled, "")
}

func (t *Task) finish(status TaskStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isTerminalLocked() {
		return
	}
	t.status = status
	t.err = errMsg
	now := time.Now()
	t.completedAt = &now
}

func (t *Task) isTerminalLocked() bool {
	switch t.status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the task reached a final state.
func (t *Task) Terminal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isTerminalLocked()
}

// RequestCancel sets the cooperative cancel flag. The first call logs a
// warning; repeated calls are no-ops.
func (t *Task) RequestCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.logger.Printf("WARNING: task %s has been interrupted by user", t.id)
}

// IsCancelled reports whether cancellation has been requested.
func (t *Task) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Snapshot returns a copy of the task state safe to share with callers.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		TaskID:      t.id,
		Status:      t.status,
		Error:       t.err,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
	}
}

// CheckInterrupted returns ErrTaskInterrupted when cancellation has been
// requested on the given task. A nil task never signals, so the batch
// runner can execute standalone without a controller attached.
func CheckInterrupted(t *Task) error {
	if t != nil && t.IsCancelled() {
		return ErrTaskInterrupted
	}
	return nil
}
