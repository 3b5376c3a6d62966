package search

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adr-fetch/config"
	"github.com/adr-fetch/scrapers"
)

// DrugsFileName is the fallback identifier list, one drug per line.
const DrugsFileName = "drugs_to_search.txt"

// Service submits batch searches onto a bounded worker pool and exposes
// the registry for status polling and cancellation.
type Service struct {
	store        *config.Store
	registry     *Registry
	pilotFactory scrapers.PilotFactory
	logger       *log.Logger
	downloadDir  string
	resourceDir  string
	sem          chan struct{}
	wg           sync.WaitGroup
}

// NewService creates a service running at most maxWorkers concurrent
// batches. Each batch gets its own session download directory, so
// concurrent tasks never race on the generic export artifact.
func NewService(store *config.Store, downloadDir, resourceDir string, maxWorkers int, factory scrapers.PilotFactory, logger *log.Logger) *Service {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if factory == nil {
		factory = scrapers.NewEMAPilot
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:        store,
		registry:     NewRegistry(),
		pilotFactory: factory,
		logger:       logger,
		downloadDir:  downloadDir,
		resourceDir:  resourceDir,
		sem:          make(chan struct{}, maxWorkers),
	}
}

// Registry exposes the task registry for diagnostic listing.
func (s *Service) Registry() *Registry {
	return s.registry
}

// StartSearchFromFile submits a batch sourced from the drugs file.
func (s *Service) StartSearchFromFile() *Task {
	s.logger.Println("Starting search from file")
	return s.submit(nil)
}

// StartSearchFromText submits a batch parsed from a free-form query. The
// query is remembered in the configuration for UI recall.
func (s *Service) StartSearchFromText(query string) *Task {
	s.logger.Println("Starting search from text box")
	s.store.RememberQuery(query)
	return s.submit(ParseDrugList(query))
}

// StopTask requests cancellation of a task by id. False for unknown ids.
func (s *Service) StopTask(id string) bool {
	stopped := s.registry.RequestCancel(id)
	if stopped {
		s.logger.Printf("Interrupt requested for task [%s]", id)
	}
	return stopped
}

// TaskStatus returns a snapshot for the given id; ok is false when the
// id is unknown.
func (s *Service) TaskStatus(id string) (Snapshot, bool) {
	task := s.registry.Get(id)
	if task == nil {
		return Snapshot{TaskID: id}, false
	}
	return task.Snapshot(), true
}

// Shutdown interrupts every live task and waits for workers to drain.
func (s *Service) Shutdown() {
	for _, snap := range s.registry.Snapshots() {
		if snap.Status == StatusPending || snap.Status == StatusRunning {
			s.registry.RequestCancel(snap.TaskID)
		}
	}
	s.wg.Wait()
}

func (s *Service) submit(drugs []string) *Task {
	task := s.registry.Register(NewTask(s.logger))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		s.execute(drugs, task)
	}()
	return task
}

func (s *Service) execute(drugs []string, task *Task) {
	settings := s.store.Get()

	task.MarkRunning()
	removeStaleDownloads(s.downloadDir, s.logger)

	targets := drugs
	if len(targets) == 0 {
		fromFile, err := ReadDrugsFile(filepath.Join(s.resourceDir, DrugsFileName))
		if err != nil {
			s.logger.Printf("ERROR: drugs source file missing: %v", err)
		}
		targets = fromFile
	}
	grouped := GroupByLetter(targets)
	if len(grouped) == 0 {
		s.logger.Println("WARNING: no drug targets provided, aborting search")
		task.MarkCancelled()
		return
	}

	sessionDir := filepath.Join(s.downloadDir, time.Now().Format("20060102_150405")+"_"+task.ID()[:8])
	pilot, err := s.pilotFactory(&scrapers.PilotConfig{
		DownloadPath: sessionDir,
		Headless:     settings.Headless,
		IgnoreSSL:    settings.IgnoreSSL,
		WaitTime:     settings.Wait(),
	}, s.logger)
	if err != nil {
		s.logger.Printf("ERROR: failed to create browser pilot: %v", err)
		task.MarkFailed(fmt.Errorf("failed to create browser pilot: %w", err))
		return
	}

	if err := pilot.Initialize(); err != nil {
		s.logger.Printf("ERROR: failed to start browser: %v", err)
		task.MarkFailed(fmt.Errorf("failed to start browser: %w", err))
		if closeErr := pilot.Close(); closeErr != nil {
			s.logger.Printf("Warning: failed to close browser: %v", closeErr)
		}
		return
	}

	RunBatch(grouped, pilot, task, s.logger)
}

// CheckDriver reports whether a Chrome/Chromium binary is reachable for
// chromedp to drive.
func (s *Service) CheckDriver() (string, error) {
	candidates := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			msg := fmt.Sprintf("Chrome is installed: %s", path)
			s.logger.Println(msg)
			return msg, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium binary found in PATH")
}

// removeStaleDownloads deletes leftover Excel reports from earlier runs
// directly under the base download directory.
func removeStaleDownloads(dir string, logger *log.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xlsx") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Printf("Warning: could not remove stale file %s: %v", path, err)
		}
	}
}
