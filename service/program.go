package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/kardianos/service"

	"github.com/adr-fetch/config"
	"github.com/adr-fetch/search"
	"github.com/adr-fetch/server"
	"github.com/adr-fetch/updater"
)

// Program implements service.Interface and runs the HTTP API as an
// OS-managed service.
type Program struct {
	Logger       *log.Logger
	Port         string
	DownloadPath string
	ResourcePath string
	ConfigPath   string
	Headless     bool
	MaxWorkers   int
	Version      string

	// Auto-update settings
	AutoUpdate     bool
	UpdateInterval string

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	svc     *search.Service
	updater *updater.Updater
	logFile *os.File
}

// Start is called when the service starts
func (p *Program) Start(s service.Service) error {
	svcLogger, _ := s.Logger(nil)

	if err := p.setupFileLogger(); err != nil {
		if svcLogger != nil {
			svcLogger.Error("Failed to setup file logger: " + err.Error())
		}
	}

	if svcLogger != nil {
		svcLogger.Info("Service starting...")
	}
	if p.Logger != nil {
		p.Logger.Printf("Service Start() called, port=%s", p.Port)
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	// Start the main service loop
	go p.run()

	return nil
}

// Stop is called when the service stops
func (p *Program) Stop(s service.Service) error {
	if p.Logger != nil {
		p.Logger.Println("Service stopping...")
	}
	p.cancel()

	// Interrupt live search tasks and drain the worker pool
	if p.svc != nil {
		p.svc.Shutdown()
	}

	p.wg.Wait()
	p.Logger.Println("Service stopped")

	if p.logFile != nil {
		p.logFile.Close()
	}

	return nil
}

// setupFileLogger sets up file logging for the service
func (p *Program) setupFileLogger() error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logDir := filepath.Join(filepath.Dir(exePath), "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log dir %s: %w", logDir, err)
	}

	logFile := filepath.Join(logDir, "adr-fetch.log")
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}

	p.logFile = f
	mw := io.MultiWriter(os.Stdout, f)
	p.Logger = log.New(mw, "[ADR-FETCH] ", log.LstdFlags)
	return nil
}

// run is the main service loop
func (p *Program) run() {
	p.wg.Add(1)
	defer p.wg.Done()

	if p.Logger == nil {
		if p.logFile != nil {
			p.Logger = log.New(p.logFile, "[ADR-FETCH] ", log.LstdFlags)
		} else {
			p.Logger = log.New(os.Stderr, "[ADR-FETCH] ", log.LstdFlags)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			if p.Logger != nil {
				p.Logger.Printf("run() panic recovered: %v", r)
			}
		}
	}()

	// Resolve paths relative to the executable when running under an SCM
	p.DownloadPath = p.absoluteToExe(p.DownloadPath)
	p.ResourcePath = p.absoluteToExe(p.ResourcePath)
	p.ConfigPath = p.absoluteToExe(p.ConfigPath)

	if err := os.MkdirAll(p.DownloadPath, 0755); err != nil {
		p.Logger.Printf("Failed to create download directory: %v", err)
	}

	// Start auto-update if enabled
	if p.AutoUpdate {
		p.startAutoUpdate()
	}

	p.runHTTPServer()
}

func (p *Program) absoluteToExe(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	exePath, _ := os.Executable()
	return filepath.Join(filepath.Dir(exePath), path)
}

// startAutoUpdate initializes and starts the auto-updater
func (p *Program) startAutoUpdate() {
	cfg := updater.DefaultConfig(p.Version)
	if p.UpdateInterval != "" {
		if interval, err := updater.ParseDuration(p.UpdateInterval); err == nil {
			cfg.CheckInterval = interval
		}
	}

	p.updater = updater.New(cfg, p.Logger)

	// Check for updates at startup (non-blocking)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Logger.Printf("Auto-update startup check panic recovered: %v", r)
			}
		}()
		if updated, err := p.updater.CheckAndUpdate(p.ctx); err != nil {
			p.Logger.Printf("Startup update check failed: %v", err)
		} else if updated {
			p.Logger.Println("Update applied, service will restart...")
			if err := updater.RestartService(ServiceName, p.Logger); err != nil {
				p.Logger.Printf("Failed to restart service: %v", err)
			}
		}
	}()

	// Start periodic update checks
	p.updater.StartPeriodicCheck(p.ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				p.Logger.Printf("Auto-update periodic check panic recovered: %v", r)
			}
		}()
		p.Logger.Println("Update available, applying...")
		if _, err := p.updater.CheckAndUpdate(p.ctx); err != nil {
			p.Logger.Printf("Failed to apply update: %v", err)
			return
		}
		p.Logger.Println("Update applied, restarting service...")
		if err := updater.RestartService(ServiceName, p.Logger); err != nil {
			p.Logger.Printf("Failed to restart service: %v", err)
		}
	})
}

// runHTTPServer wires the search service and serves the HTTP API
func (p *Program) runHTTPServer() {
	store := config.NewStore(p.ConfigPath, p.Logger)
	store.Set(config.Settings{
		Headless:  p.Headless,
		IgnoreSSL: false,
		WaitTime:  config.DefaultSettings().WaitTime,
	})

	p.svc = search.NewService(store, p.DownloadPath, p.ResourcePath, p.MaxWorkers, nil, p.Logger)

	srv := server.New(p.svc, store, p.Logger)

	p.Logger.Printf("Download path: %s", p.DownloadPath)
	p.Logger.Printf("Headless mode: %v", p.Headless)
	p.Logger.Printf("Version: %s", p.Version)

	if err := srv.Run(p.ctx, p.Port); err != nil {
		p.Logger.Printf("HTTP server stopped: %v", err)
	}
}
