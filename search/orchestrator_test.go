package search

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adr-fetch/scrapers"
)

// fakePilot records the browser interactions of a batch run.
type fakePilot struct {
	mu         sync.Mutex
	letters    []string
	fetched    []string
	letterErr  map[string]error
	fetchErr   map[string]error
	onFetch    func(name string)
	initErr    error
	closeCount int
}

func (f *fakePilot) Initialize() error {
	return f.initErr
}

func (f *fakePilot) OpenLetterPage(letter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.letterErr[letter]; err != nil {
		return err
	}
	f.letters = append(f.letters, letter)
	return nil
}

func (f *fakePilot) FetchDrug(name string) (string, error) {
	f.mu.Lock()
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[name]; err != nil {
		return "", err
	}
	f.fetched = append(f.fetched, name)
	return name + ".xlsx", nil
}

func (f *fakePilot) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

func (f *fakePilot) factory() scrapers.PilotFactory {
	return func(*scrapers.PilotConfig, *log.Logger) (scrapers.Pilot, error) {
		return f, nil
	}
}

func TestRunBatchCompletes(t *testing.T) {
	pilot := &fakePilot{}
	task := NewTask(nil)
	grouped := GroupByLetter([]string{"ibuprofen", "aspirin", "abacavir"})

	RunBatch(grouped, pilot, task, nil)

	assert.Equal(t, StatusCompleted, task.Status())
	assert.Equal(t, []string{"a", "i"}, pilot.letters)
	assert.Equal(t, []string{"abacavir", "aspirin", "ibuprofen"}, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}

func TestRunBatchEmptyTargets(t *testing.T) {
	pilot := &fakePilot{}
	task := NewTask(nil)

	RunBatch(nil, pilot, task, nil)

	assert.Equal(t, StatusCancelled, task.Status())
	assert.Empty(t, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}

func TestRunBatchPerItemIsolation(t *testing.T) {
	pilot := &fakePilot{
		fetchErr: map[string]error{"aspirin": errors.New("element not found")},
	}
	task := NewTask(nil)
	grouped := GroupByLetter([]string{"abacavir", "aspirin", "atenolol"})

	RunBatch(grouped, pilot, task, nil)

	// the middle drug fails, the batch still completes
	assert.Equal(t, StatusCompleted, task.Status())
	assert.Equal(t, []string{"abacavir", "atenolol"}, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}

func TestRunBatchLetterPageFailureIsFatal(t *testing.T) {
	pilot := &fakePilot{
		letterErr: map[string]error{"a": errors.New("timeout")},
	}
	task := NewTask(nil)
	grouped := GroupByLetter([]string{"aspirin", "ibuprofen"})

	RunBatch(grouped, pilot, task, nil)

	snap := task.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, `letter page "a" unreachable`)
	// nothing after the fatal group is attempted
	assert.Empty(t, pilot.letters)
	assert.Empty(t, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}

func TestRunBatchCancellationPrecedence(t *testing.T) {
	task := NewTask(nil)
	pilot := &fakePilot{}
	pilot.onFetch = func(name string) {
		if name == "aspirin" {
			task.RequestCancel()
		}
	}
	grouped := GroupByLetter([]string{"abacavir", "aspirin", "atenolol", "ibuprofen"})

	RunBatch(grouped, pilot, task, nil)

	// the in-flight item finishes, nothing beyond it starts
	assert.Equal(t, StatusCancelled, task.Status())
	assert.Equal(t, []string{"abacavir", "aspirin"}, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}

func TestRunBatchCancellationBeatsLaterErrors(t *testing.T) {
	task := NewTask(nil)
	pilot := &fakePilot{
		fetchErr: map[string]error{"abacavir": fmt.Errorf("wrapped: %w", ErrTaskInterrupted)},
	}
	grouped := GroupByLetter([]string{"abacavir", "aspirin"})

	RunBatch(grouped, pilot, task, nil)

	// an interrupt surfacing through the pilot ends the batch as cancelled
	assert.Equal(t, StatusCancelled, task.Status())
	assert.Equal(t, 1, pilot.closeCount)
}

func TestRunBatchCancelledBeforeStart(t *testing.T) {
	task := NewTask(nil)
	task.RequestCancel()
	pilot := &fakePilot{}
	grouped := GroupByLetter([]string{"aspirin"})

	RunBatch(grouped, pilot, task, nil)

	require.Equal(t, StatusCancelled, task.Status())
	assert.Empty(t, pilot.fetched)
	assert.Equal(t, 1, pilot.closeCount)
}
