package search

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLifecycle(t *testing.T) {
	task := NewTask(nil)

	require.NotEmpty(t, task.ID())
	assert.Equal(t, StatusPending, task.Status())
	assert.False(t, task.Terminal())

	task.MarkRunning()
	assert.Equal(t, StatusRunning, task.Status())

	snap := task.Snapshot()
	require.NotNil(t, snap.StartedAt)
	assert.Nil(t, snap.CompletedAt)

	task.MarkCompleted()
	assert.Equal(t, StatusCompleted, task.Status())
	assert.True(t, task.Terminal())

	snap = task.Snapshot()
	require.NotNil(t, snap.CompletedAt)
	assert.False(t, snap.CompletedAt.Before(*snap.StartedAt))
}

func TestTaskTerminalStateNeverChanges(t *testing.T) {
	task := NewTask(nil)
	task.MarkRunning()
	task.MarkCancelled()

	task.MarkCompleted()
	assert.Equal(t, StatusCancelled, task.Status())

	task.MarkFailed(errors.New("boom"))
	assert.Equal(t, StatusCancelled, task.Status())
	assert.Empty(t, task.Snapshot().Error)
}

func TestTaskMarkRunningOnlyFromPending(t *testing.T) {
	task := NewTask(nil)
	task.MarkRunning()
	first := task.Snapshot().StartedAt

	task.MarkRunning()
	assert.Equal(t, first, task.Snapshot().StartedAt)
}

func TestTaskFailedRecordsError(t *testing.T) {
	task := NewTask(nil)
	task.MarkRunning()
	task.MarkFailed(errors.New("letter page unreachable"))

	snap := task.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "letter page unreachable", snap.Error)
}

func TestTaskCancelFlag(t *testing.T) {
	task := NewTask(nil)
	assert.False(t, task.IsCancelled())
	assert.NoError(t, CheckInterrupted(task))

	task.RequestCancel()
	assert.True(t, task.IsCancelled())
	assert.ErrorIs(t, CheckInterrupted(task), ErrTaskInterrupted)

	// idempotent
	task.RequestCancel()
	assert.True(t, task.IsCancelled())
}

func TestCheckInterruptedNilTask(t *testing.T) {
	assert.NoError(t, CheckInterrupted(nil))
}

func TestTaskConcurrentAccess(t *testing.T) {
	task := NewTask(nil)
	task.MarkRunning()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			task.RequestCancel()
		}()
		go func() {
			defer wg.Done()
			_ = task.Snapshot()
			_ = task.IsCancelled()
		}()
	}
	wg.Wait()

	assert.True(t, task.IsCancelled())
}
