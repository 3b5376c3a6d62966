package search

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adr-fetch/config"
	"github.com/adr-fetch/scrapers"
)

func newTestService(t *testing.T, factory scrapers.PilotFactory) (*Service, string, string) {
	t.Helper()
	downloadDir := t.TempDir()
	resourceDir := t.TempDir()
	store := config.NewStore(t.TempDir(), log.New(os.Stdout, "[TEST] ", log.LstdFlags))
	svc := NewService(store, downloadDir, resourceDir, 2, factory, nil)
	return svc, downloadDir, resourceDir
}

func waitTerminal(t *testing.T, svc *Service, id string) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		var ok bool
		snap, ok = svc.TaskStatus(id)
		if !ok {
			return false
		}
		switch snap.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestServiceSearchFromText(t *testing.T) {
	pilot := &fakePilot{}
	svc, _, _ := newTestService(t, pilot.factory())
	defer svc.Shutdown()

	task := svc.StartSearchFromText("Aspirin, ibuprofen,, ASPIRIN")
	snap := waitTerminal(t, svc, task.ID())

	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, []string{"aspirin", "ibuprofen"}, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}

func TestServiceSearchFromFile(t *testing.T) {
	pilot := &fakePilot{}
	svc, _, resourceDir := newTestService(t, pilot.factory())
	defer svc.Shutdown()

	path := filepath.Join(resourceDir, DrugsFileName)
	require.NoError(t, os.WriteFile(path, []byte("ibuprofen\naspirin\n"), 0644))

	task := svc.StartSearchFromFile()
	snap := waitTerminal(t, svc, task.ID())

	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, []string{"aspirin", "ibuprofen"}, pilot.fetched)
}

func TestServiceEmptyInputCancels(t *testing.T) {
	var created atomic.Int32
	factory := func(*scrapers.PilotConfig, *log.Logger) (scrapers.Pilot, error) {
		created.Add(1)
		return &fakePilot{}, nil
	}
	svc, _, _ := newTestService(t, factory)
	defer svc.Shutdown()

	// no query and no drugs file resolves to nothing to search
	task := svc.StartSearchFromText("")
	snap := waitTerminal(t, svc, task.ID())

	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, int32(0), created.Load(), "no browser should be started for an empty batch")
}

func TestServicePilotInitializeFailure(t *testing.T) {
	pilot := &fakePilot{initErr: errors.New("chrome not found")}
	svc, _, _ := newTestService(t, pilot.factory())
	defer svc.Shutdown()

	task := svc.StartSearchFromText("aspirin")
	snap := waitTerminal(t, svc, task.ID())

	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "failed to start browser")
	assert.Equal(t, 1, pilot.closeCount)
}

func TestServiceStopTask(t *testing.T) {
	block := make(chan struct{})
	pilot := &fakePilot{}
	pilot.onFetch = func(string) { <-block }
	svc, _, _ := newTestService(t, pilot.factory())
	defer svc.Shutdown()

	task := svc.StartSearchFromText("aspirin, ibuprofen")

	require.Eventually(t, func() bool {
		snap, _ := svc.TaskStatus(task.ID())
		return snap.Status == StatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, svc.StopTask("unknown-id"))
	assert.True(t, svc.StopTask(task.ID()))
	close(block)

	snap := waitTerminal(t, svc, task.ID())
	assert.Equal(t, StatusCancelled, snap.Status)
}

func TestServiceTaskStatusUnknown(t *testing.T) {
	svc, _, _ := newTestService(t, (&fakePilot{}).factory())
	defer svc.Shutdown()

	_, ok := svc.TaskStatus("unknown-id")
	assert.False(t, ok)
}

func TestServiceRemovesStaleDownloads(t *testing.T) {
	pilot := &fakePilot{}
	svc, downloadDir, _ := newTestService(t, pilot.factory())
	defer svc.Shutdown()

	stale := filepath.Join(downloadDir, "aspirin.xlsx")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	task := svc.StartSearchFromText("ibuprofen")
	waitTerminal(t, svc, task.ID())

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
