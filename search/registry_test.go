package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	task := NewTask(nil)

	returned := registry.Register(task)
	assert.Same(t, task, returned)
	assert.Same(t, task, registry.Get(task.ID()))
	assert.Nil(t, registry.Get("unknown-id"))
}

func TestRegistryRequestCancel(t *testing.T) {
	registry := NewRegistry()
	task := registry.Register(NewTask(nil))

	assert.False(t, registry.RequestCancel("unknown-id"))
	assert.True(t, registry.RequestCancel(task.ID()))
	assert.True(t, task.IsCancelled())
}

func TestRegistrySnapshots(t *testing.T) {
	registry := NewRegistry()
	assert.Empty(t, registry.Snapshots())

	a := registry.Register(NewTask(nil))
	b := registry.Register(NewTask(nil))
	b.MarkRunning()

	snaps := registry.Snapshots()
	require.Len(t, snaps, 2)

	byID := make(map[string]Snapshot, 2)
	for _, snap := range snaps {
		byID[snap.TaskID] = snap
	}
	assert.Equal(t, StatusPending, byID[a.ID()].Status)
	assert.Equal(t, StatusRunning, byID[b.ID()].Status)
}
