package kipris

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/models"
)

// Results page selectors
const (
	selDetailSearch   = "#btnOpenSearchDetail"
	selIPCInput       = "input#sd01_g05_text_01.f-control"
	selSearchButton   = "button.btn-search[onclick='doDetailSearch()']"
	selStatistics     = "button.btn-statistics[onclick='openResultStatis()']"
	selExcelDownload  = "a.btn-excel[href^='javascript:excelDownloadByStatis']"
	downloadPollDelay = 500 * time.Millisecond
)

// fetchResult is what one browser session produced: a downloaded workbook,
// the statistics page HTML, or both
type fetchResult struct {
	WorkbookPath string
	HTML         string
}

type fetcher interface {
	fetch(ctx context.Context, expression, dir string) (*fetchResult, error)
}

// Collector downloads KIPRIS classification statistics for an IPC search
// expression and aggregates them per year
type Collector struct {
	config  common.KiprisConfig
	fetcher fetcher
	logger  arbor.ILogger
}

// NewCollector creates a browser backed collector
func NewCollector(config common.KiprisConfig, logger arbor.ILogger) *Collector {
	return &Collector{
		config:  config,
		fetcher: &browserFetcher{config: config, logger: logger},
		logger:  logger,
	}
}

// Collect runs one search. Every call uses its own download directory, removed afterwards.
func (c *Collector) Collect(ctx context.Context, expression string) (*models.YearAggregates, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("IPC search expression is empty")
	}

	dir := filepath.Join(c.config.DownloadDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to clean download dir")
		}
	}()

	timeout := common.ParseDuration(c.config.Timeout, 2*time.Minute)
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := c.fetcher.fetch(fetchCtx, expression, dir)
	if err != nil && (result == nil || result.HTML == "") {
		return nil, fmt.Errorf("KIPRIS statistics download failed (IPC=%s): %w", expression, err)
	}

	if result.WorkbookPath != "" {
		aggregates, parseErr := ParseWorkbook(result.WorkbookPath)
		if parseErr == nil {
			c.logger.Info().Str("expression", expression).Dur("elapsed", time.Since(start)).Msg("Patent statistics collected from workbook")
			return aggregates, nil
		}
		c.logger.Warn().Err(parseErr).Str("path", result.WorkbookPath).Msg("Workbook unreadable, using statistics page")
	} else if err != nil {
		c.logger.Warn().Err(err).Str("expression", expression).Msg("Workbook download failed, using statistics page")
	}

	if result.HTML == "" {
		return nil, fmt.Errorf("KIPRIS returned no statistics for IPC=%s", expression)
	}
	aggregates, err := ParseStatisticsHTML(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse statistics page (IPC=%s): %w", expression, err)
	}
	c.logger.Info().Str("expression", expression).Dur("elapsed", time.Since(start)).Msg("Patent statistics collected from page")
	return aggregates, nil
}

// browserFetcher drives KIPRIS detail search with chromedp
type browserFetcher struct {
	config common.KiprisConfig
	logger arbor.ILogger
}

func (f *browserFetcher) fetch(ctx context.Context, expression, dir string) (*fetchResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.config.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if f.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	f.logger.Debug().Str("expression", expression).Str("dir", absDir).Msg("Opening KIPRIS")

	err = chromedp.Run(browserCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(absDir).
			WithEventsEnabled(true),
		chromedp.Navigate(f.config.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		clickVisible(selDetailSearch),
		chromedp.WaitVisible(selIPCInput, chromedp.ByQuery),
		chromedp.SetValue(selIPCInput, expression, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(
			`(function(){var el=document.querySelector(%q);el.dispatchEvent(new Event('input',{bubbles:true}));return true;})()`,
			selIPCInput), nil),
		clickVisible(selSearchButton),
		clickVisible(selStatistics),
		chromedp.WaitVisible(selExcelDownload, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("search steps: %w", err)
	}

	result := &fetchResult{}
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("body", &result.HTML, chromedp.ByQuery)); err != nil {
		f.logger.Debug().Err(err).Msg("Could not capture statistics page")
	}

	if err := chromedp.Run(browserCtx, clickVisible(selExcelDownload)); err != nil {
		return result, fmt.Errorf("excel download click: %w", err)
	}

	path, err := waitForWorkbook(ctx, absDir)
	if err != nil {
		return result, err
	}
	result.WorkbookPath = path
	return result, nil
}

// clickVisible scrolls the element into view before clicking it
func clickVisible(sel string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible),
	}
}

// waitForWorkbook polls dir until a finished .xlsx file appears
func waitForWorkbook(ctx context.Context, dir string) (string, error) {
	ticker := time.NewTicker(downloadPollDelay)
	defer ticker.Stop()

	for {
		if path, ok := findWorkbook(dir); ok {
			return path, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for workbook download: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func findWorkbook(dir string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}
