package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adr-fetch/config"
	"github.com/adr-fetch/scrapers"
	"github.com/adr-fetch/search"
	"github.com/adr-fetch/server"
	"github.com/adr-fetch/service"
)

const Version = "1.0.0"

func main() {
	// Command line flags
	drugsFlag := flag.String("drugs", "", "Drug names, comma separated (e.g. aspirin,ibuprofen)")
	serveMode := flag.Bool("serve", false, "Run as HTTP server")
	port := flag.String("port", "8080", "HTTP server port")
	downloadPath := flag.String("download", "./downloads", "Download directory")
	resourcePath := flag.String("resources", "./resources", "Resource directory (drugs_to_search.txt)")
	configPath := flag.String("configs", "./configs", "Configuration preset directory")
	headless := flag.Bool("headless", true, "Run browser in headless mode")
	ignoreSSL := flag.Bool("ignore-ssl", false, "Ignore SSL certificate errors")
	waitTime := flag.Float64("wait-time", 5.0, "Element wait time in seconds")
	maxWorkers := flag.Int("workers", 2, "Maximum concurrent search batches")
	serviceCmd := flag.String("service", "", "Service command: install|uninstall|start|stop|restart|status|run")
	autoUpdate := flag.Bool("auto-update", false, "Enable automatic updates")
	updateInterval := flag.String("update-interval", "1h", "Update check interval (e.g. 1h, 30m)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("adr-fetch version %s\n", Version)
		return
	}

	logger := log.New(os.Stdout, "[ADR-FETCH] ", log.LstdFlags)

	// Service management mode
	if *serviceCmd != "" {
		prg := &service.Program{
			Logger:         logger,
			Port:           *port,
			DownloadPath:   *downloadPath,
			ResourcePath:   *resourcePath,
			ConfigPath:     *configPath,
			Headless:       *headless,
			MaxWorkers:     *maxWorkers,
			Version:        Version,
			AutoUpdate:     *autoUpdate,
			UpdateInterval: *updateInterval,
		}
		if err := service.RunServiceCommand(*serviceCmd, prg, logger); err != nil {
			log.Fatalf("Service command failed: %v", err)
		}
		return
	}

	settings := config.Settings{
		Headless:  *headless,
		IgnoreSSL: *ignoreSSL,
		WaitTime:  *waitTime,
	}

	// HTTP server mode
	if *serveMode {
		runServer(logger, *port, *downloadPath, *resourcePath, *configPath, *maxWorkers, settings)
		return
	}

	// CLI mode: run one batch synchronously
	runCLIMode(logger, *drugsFlag, *downloadPath, *resourcePath, settings)
}

// runServer wires the search service and serves the HTTP API until
// interrupted.
func runServer(logger *log.Logger, port, downloadPath, resourcePath, configPath string, maxWorkers int, settings config.Settings) {
	store := config.NewStore(configPath, logger)
	store.Set(settings)

	svc := search.NewService(store, downloadPath, resourcePath, maxWorkers, nil, logger)
	srv := server.New(svc, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("Download path: %s", downloadPath)
	logger.Printf("Headless mode: %v", settings.Headless)

	if err := srv.Run(ctx, port); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}

	logger.Println("Shutting down, interrupting live tasks...")
	svc.Shutdown()
}

// runCLIMode runs a single batch in the foreground
func runCLIMode(logger *log.Logger, drugsFlag, downloadPath, resourcePath string, settings config.Settings) {
	var targets []string
	drugsFile := filepath.Join(resourcePath, search.DrugsFileName)
	if drugsFlag != "" {
		targets = search.ParseDrugList(drugsFlag)
	} else {
		fromFile, err := search.ReadDrugsFile(drugsFile)
		if err != nil {
			log.Fatal("Usage: adr-fetch -drugs=aspirin,ibuprofen\n" +
				"Or put one drug per line in " + drugsFile + "\n" +
				"Or run as HTTP server: adr-fetch -serve -port=8080")
		}
		targets = fromFile
	}

	grouped := search.GroupByLetter(targets)
	logger.Printf("Found %d drug(s) to process", grouped.Total())

	sessionDir := filepath.Join(downloadPath, time.Now().Format("20060102_150405"))
	pilot, err := scrapers.NewEMAPilot(&scrapers.PilotConfig{
		DownloadPath: sessionDir,
		Headless:     settings.Headless,
		IgnoreSSL:    settings.IgnoreSSL,
		WaitTime:     settings.Wait(),
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create browser pilot: %v", err)
	}

	task := search.NewTask(logger)
	if err := pilot.Initialize(); err != nil {
		pilot.Close()
		log.Fatalf("Failed to start browser: %v", err)
	}

	search.RunBatch(grouped, pilot, task, logger)

	snapshot := task.Snapshot()
	logger.Printf("=== Batch finished with status: %s ===", snapshot.Status)
	if snapshot.Status == search.StatusFailed {
		log.Fatalf("Batch failed: %s", snapshot.Error)
	}
	logger.Printf("Excel reports saved to: %s", sessionDir)
}
