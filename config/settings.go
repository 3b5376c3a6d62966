package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Settings is the full enumerated configuration of the tool. The JSON
// keys match the preset files written by earlier versions.
type Settings struct {
	Headless       bool    `json:"headless"`
	IgnoreSSL      bool    `json:"ignore_SSL"`
	WaitTime       float64 `json:"wait_time"`
	TextDrugInputs string  `json:"text_drug_inputs"`
}

// DefaultSettings returns the startup configuration.
func DefaultSettings() Settings {
	return Settings{
		Headless:  false,
		IgnoreSSL: false,
		WaitTime:  5.0,
	}
}

// Wait returns the element wait time as a duration.
func (s Settings) Wait() time.Duration {
	return time.Duration(s.WaitTime * float64(time.Second))
}

// Store guards the live settings and persists named presets as JSON
// files. A copy is handed out on every read, so a batch already in
// flight never observes later updates.
type Store struct {
	mu        sync.Mutex
	settings  Settings
	configDir string
	logger    *log.Logger
}

// NewStore creates a store persisting presets under configDir.
func NewStore(configDir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		settings:  DefaultSettings(),
		configDir: configDir,
		logger:    logger,
	}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Set replaces the current settings.
func (s *Store) Set(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// RememberQuery stores the last text query so it can be restored in the UI.
func (s *Store) RememberQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.TextDrugInputs = query
}

// Save writes the current settings as a named preset. Empty names fall
// back to "default_config".
func (s *Store) Save(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "default_config"
	}

	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	if err := os.MkdirAll(s.configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	path := filepath.Join(s.configDir, name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write configuration: %w", err)
	}

	s.logger.Printf("Configuration [%s] has been saved", name)
	return name, nil
}

// Load replaces the current settings with a named preset.
func (s *Store) Load(name string) (Settings, error) {
	path := filepath.Join(s.configDir, strings.TrimSuffix(name, ".json")+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.logger.Printf("Loaded configuration [%s]", name)
	return settings, nil
}

// Available lists the saved preset names.
func (s *Store) Available() []string {
	entries, err := os.ReadDir(s.configDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
