package scrapers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// EMA ADR reports site. The export dashboard always writes the generic
// DAP.xlsx artifact, which gets renamed per drug after each download.
const (
	searchURL           = "https://www.adrreports.eu/en/search_subst.html"
	exportArtifact      = "DAP.xlsx"
	downloadPollEvery   = 500 * time.Millisecond
	downloadWaitTimeout = 90 * time.Second
)

// Export menu controls on the drug detail dashboard.
const (
	exportMenuXPath  = `//*[@id="uberBar_dashboardpageoptions_image"]`
	exportExcelXPath = `//*[@id="idPageExportToExcel"]/table/tbody/tr/td[2]`
	exportSheetXPath = `//*[@id="idDashboardExportToExcelMenu"]/table/tbody/tr[1]/td[1]/a[2]/table/tbody/tr/td[2]`
)

// EMAPilot drives the EMA adverse-drug-reaction report site with chromedp.
type EMAPilot struct {
	BasePilot
}

// NewEMAPilot creates a pilot for one batch.
func NewEMAPilot(config *PilotConfig, logger *log.Logger) (Pilot, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[EMA-PILOT] ", log.LstdFlags)
	}

	return &EMAPilot{
		BasePilot: BasePilot{
			Config: config,
			Logger: logger,
		},
	}, nil
}

// Initialize sets up the chromedp browser and the download directory.
func (s *EMAPilot) Initialize() error {
	s.Logger.Println("Initializing browser...")

	if err := os.MkdirAll(s.Config.DownloadPath, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	absDownloadPath, err := filepath.Abs(s.Config.DownloadPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	s.DownloadPath = absDownloadPath

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.Config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if s.Config.IgnoreSSL {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	if s.Config.Headless {
		s.Logger.Println("Running in HEADLESS mode")
	} else {
		s.Logger.Println("Running in VISIBLE mode")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(s.Logger.Printf))

	s.Ctx = ctx
	s.Cancel = cancel
	s.AllocCancel = allocCancel

	// Allow downloads for the whole browser so exports from new tabs keep
	// their original filename (the rename step depends on DAP.xlsx).
	if err := chromedp.Run(s.Ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(absDownloadPath).
			WithEventsEnabled(true),
	); err != nil {
		return fmt.Errorf("failed to set download behavior: %w", err)
	}

	chromedp.ListenBrowser(s.Ctx, func(ev interface{}) {
		if e, ok := ev.(*browser.EventDownloadProgress); ok && e.State == browser.DownloadProgressStateCompleted {
			s.Logger.Printf("Download completed: %s", e.GUID)
		}
	})

	chromedp.ListenTarget(s.Ctx, func(ev interface{}) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			s.Logger.Printf("Dialog: %s", e.Message)
			go chromedp.Run(s.Ctx, page.HandleJavaScriptDialog(true))
		}
	})

	s.Logger.Printf("Browser initialized. Download path: %s", absDownloadPath)
	return nil
}

// OpenLetterPage loads the substance search page and opens the table for
// the given initial letter.
func (s *EMAPilot) OpenLetterPage(letter string) error {
	s.Logger.Printf("Opening substance table for letter %q", letter)

	letterSelector := fmt.Sprintf(`a[onclick="showSubstanceTable('%s')"]`, strings.ToLower(letter))

	ctx, cancel := context.WithTimeout(s.Ctx, s.Config.WaitTime)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body"),
		chromedp.WaitVisible(letterSelector, chromedp.ByQuery),
		chromedp.Click(letterSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to open letter page %q: %w", letter, err)
	}
	return nil
}

// FetchDrug opens the drug's dashboard in a new tab, exports it to Excel,
// waits for the artifact and renames it after the drug.
func (s *EMAPilot) FetchDrug(name string) (string, error) {
	// Substance links are rendered upper-case on the letter page.
	linkXPath := fmt.Sprintf(`//a[contains(text(), "%s")]`, strings.ToUpper(name))

	// The detail dashboard opens in a new tab.
	targetCh := chromedp.WaitNewTarget(s.Ctx, func(info *target.Info) bool {
		return info.URL != "" && info.Type == "page"
	})

	clickCtx, clickCancel := context.WithTimeout(s.Ctx, s.Config.WaitTime)
	defer clickCancel()
	if err := chromedp.Run(clickCtx,
		chromedp.WaitVisible(linkXPath, chromedp.BySearch),
		chromedp.Click(linkXPath, chromedp.BySearch),
	); err != nil {
		return "", fmt.Errorf("failed to open detail view: %w", err)
	}

	var targetID target.ID
	select {
	case targetID = <-targetCh:
	case <-time.After(s.Config.WaitTime):
		return "", fmt.Errorf("timed out waiting for detail tab")
	}

	tabCtx, tabCancel := chromedp.NewContext(s.Ctx, chromedp.WithTargetID(targetID))
	defer tabCancel()

	if err := s.exportToExcel(tabCtx); err != nil {
		s.closeTab(tabCtx)
		return "", err
	}

	artifactPath, err := s.waitForArtifact()
	if err != nil {
		s.closeTab(tabCtx)
		return "", err
	}

	// Return focus to the letter page before the next drug.
	s.closeTab(tabCtx)

	renamed := filepath.Join(s.DownloadPath, name+".xlsx")
	if err := os.Rename(artifactPath, renamed); err != nil {
		return "", fmt.Errorf("failed to rename artifact: %w", err)
	}
	s.Logger.Printf("Downloaded: %s", renamed)
	return renamed, nil
}

// exportToExcel walks the dashboard's export menu in the detail tab.
func (s *EMAPilot) exportToExcel(tabCtx context.Context) error {
	ctx, cancel := context.WithTimeout(tabCtx, s.Config.WaitTime)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.WaitReady("body"),
		chromedp.WaitVisible(exportMenuXPath, chromedp.BySearch),
		chromedp.Click(exportMenuXPath, chromedp.BySearch),
		chromedp.WaitVisible(exportExcelXPath, chromedp.BySearch),
		chromedp.Click(exportExcelXPath, chromedp.BySearch),
		chromedp.WaitVisible(exportSheetXPath, chromedp.BySearch),
		chromedp.Click(exportSheetXPath, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("failed to trigger export: %w", err)
	}
	return nil
}

// waitForArtifact polls the download directory until the generic export
// artifact appears. The site names every export DAP.xlsx.
func (s *EMAPilot) waitForArtifact() (string, error) {
	deadline := time.Now().Add(downloadWaitTimeout)
	for {
		entries, err := os.ReadDir(s.DownloadPath)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				name := entry.Name()
				if strings.Contains(name, "DAP") && !strings.HasSuffix(name, ".crdownload") {
					return filepath.Join(s.DownloadPath, name), nil
				}
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("download timeout")
		}
		time.Sleep(downloadPollEvery)
	}
}

func (s *EMAPilot) closeTab(tabCtx context.Context) {
	ctx, cancel := context.WithTimeout(tabCtx, s.Config.WaitTime)
	defer cancel()
	if err := chromedp.Run(ctx, page.Close()); err != nil {
		s.Logger.Printf("Warning: failed to close detail tab: %v", err)
	}
}

// Close cleans up resources.
func (s *EMAPilot) Close() error {
	if s.Cancel != nil {
		s.Cancel()
		s.Cancel = nil
	}
	if s.AllocCancel != nil {
		s.AllocCancel()
		s.AllocCancel = nil
	}
	return nil
}
