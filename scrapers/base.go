package scrapers

import (
	"context"
	"log"
	"time"
)

// PilotConfig holds common configuration for browser pilots.
type PilotConfig struct {
	DownloadPath string
	Headless     bool
	IgnoreSSL    bool
	WaitTime     time.Duration
}

// Pilot drives a browser session against the target site. One pilot owns
// one browser for the duration of a single batch; pilots are never shared
// across concurrent tasks.
type Pilot interface {
	// Initialize starts the browser and prepares the download directory.
	Initialize() error
	// OpenLetterPage navigates to the search page and opens the substance
	// table for the given initial letter.
	OpenLetterPage(letter string) error
	// FetchDrug opens the drug's detail view in a new tab, triggers the
	// Excel export, waits for the artifact to land on disk and renames it
	// after the drug. It returns the path of the renamed file.
	FetchDrug(name string) (string, error)
	// Close releases the browser. Safe to call more than once.
	Close() error
}

// PilotFactory creates a pilot for one batch. Swappable in tests.
type PilotFactory func(config *PilotConfig, logger *log.Logger) (Pilot, error)

// BasePilot provides the chromedp contexts shared by pilot implementations.
type BasePilot struct {
	Ctx          context.Context
	Cancel       context.CancelFunc
	AllocCancel  context.CancelFunc
	Config       *PilotConfig
	Logger       *log.Logger
	DownloadPath string
}
