package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
	"github.com/ternarybob/bizassess/internal/pipeline"
	"github.com/ternarybob/bizassess/internal/services/kipris"
	"github.com/ternarybob/bizassess/internal/services/llm"
	"github.com/ternarybob/bizassess/internal/services/pdf"
	"github.com/ternarybob/bizassess/internal/services/retrieval"
	"github.com/ternarybob/bizassess/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Generation
	GeminiService *llm.GeminiService
	Generator     *generation.Generator
	CacheManager  *generation.CacheManager

	// Retrieval
	VectorStore      *retrieval.PGVectorStore
	RetrievalService *retrieval.Service

	// Report pipeline
	Catalog      *models.Catalog
	Orchestrator *pipeline.Orchestrator
	Storage      interfaces.ReportStorage
	Exporter     *pdf.Exporter
}

// RunSummary describes a finished report run
type RunSummary struct {
	RunID     string
	Company   string
	Items     int
	Failed    int
	Locations []string
	Markdown  string // path of the markdown report, empty when not exported
	PDF       string // path of the PDF report, empty when not exported
	Elapsed   time.Duration
}

// New initializes the application with all dependencies
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: config,
		Logger: logger,
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initPipeline(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	logger.Info().
		Str("storage", config.Storage.Type).
		Int("items", app.Catalog.Len()).
		Msg("Application initialized")

	return app, nil
}

// initServices creates the external collaborators: Gemini, pgvector and report storage
func (a *App) initServices() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error

	a.GeminiService, err = llm.NewGeminiService(ctx, a.Config.Gemini, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create gemini service: %w", err)
	}

	a.VectorStore, err = retrieval.NewPGVectorStore(ctx, a.Config.Retrieval, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	a.RetrievalService = retrieval.NewService(a.GeminiService, a.VectorStore)

	a.Storage, err = storage.NewReportStorage(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create report storage: %w", err)
	}

	a.Exporter = pdf.NewExporter(a.Config.Report.PDFFont, a.Logger)

	return nil
}

// initPipeline wires the catalog, generator, handlers and orchestrator
func (a *App) initPipeline() error {
	var err error

	if a.Config.Catalog.Path != "" {
		a.Catalog, err = models.LoadCatalog(a.Config.Catalog.Path)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		a.Logger.Info().Str("path", a.Config.Catalog.Path).Int("items", a.Catalog.Len()).Msg("Catalog loaded")
	} else {
		a.Catalog = models.DefaultCatalog()
	}

	gen := a.Config.Generation
	a.CacheManager = generation.NewCacheManager(a.GeminiService, generation.CachedContextSystemInstruction, a.Logger)
	a.Generator = generation.NewGenerator(a.GeminiService, a.CacheManager, generation.Config{
		ContextModel:  a.Config.Gemini.ContextModel,
		PromptVersion: gen.PromptVersion,
		MaxRetry:      gen.MaxRetry,
		TemplateDelay: common.ParseDuration(gen.TemplateRetryDelay, generation.DefaultTemplateRetryDelay),
		DirectDelay:   common.ParseDuration(gen.DirectRetryDelay, generation.DefaultDirectRetryDelay),
		Fallback: generation.MarketFallback{
			MaxLevel:  gen.MarketMaxLevel,
			PrefixLen: gen.BaseMarketPrefix,
			Logger:    a.Logger,
		},
	}, a.Logger)

	collector := kipris.NewCollector(a.Config.Kipris, a.Logger)
	ipc := pipeline.NewIPCStatistics(a.Generator, collector, a.Logger)

	dispatcher, err := pipeline.NewDispatcher(pipeline.NewHandlers(a.Generator, ipc))
	if err != nil {
		return err
	}

	a.Orchestrator = pipeline.NewOrchestrator(
		a.Catalog,
		a.RetrievalService,
		dispatcher,
		pdf.NewInspector(a.Logger),
		pipeline.OrchestratorConfig{
			DefaultSource: gen.DefaultSource,
			RetrievalK:    gen.RetrievalK,
		},
		a.Logger,
	)

	return nil
}

// RunReport generates, stores and exports one report using the [report] settings
func (a *App) RunReport(ctx context.Context) (*RunSummary, error) {
	report := a.Config.Report

	overrides, err := pipeline.ParseOverrides(report.Sources)
	if err != nil {
		return nil, err
	}
	itemRange, err := pipeline.ParseRange(report.Range)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	summary := &RunSummary{
		RunID:   common.NewRunID(),
		Company: report.Company,
	}

	outcomes, err := a.Orchestrator.Generate(ctx, pipeline.RunRequest{
		Subject:      report.Company,
		Overrides:    overrides,
		BusinessPlan: report.BusinessPlan,
		Range:        itemRange,
	})
	if err != nil {
		return nil, err
	}

	summary.Items = len(outcomes)
	for _, outcome := range outcomes {
		if outcome.Error {
			summary.Failed++
		}
	}

	// Storage failures are reported but do not stop the exports
	summary.Locations, err = pipeline.SaveReport(ctx, a.Storage, report.Company, summary.RunID, outcomes)
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", summary.RunID).Msg("Some report items were not saved")
	}

	if report.ExportMarkdown || report.ExportPDF {
		if exportErr := a.export(summary, outcomes); exportErr != nil {
			return summary, exportErr
		}
	}

	summary.Elapsed = time.Since(started)
	a.Logger.Info().
		Str("run_id", summary.RunID).
		Str("company", summary.Company).
		Int("items", summary.Items).
		Int("failed", summary.Failed).
		Str("markdown", summary.Markdown).
		Str("pdf", summary.PDF).
		Dur("elapsed", summary.Elapsed).
		Msg("Report run complete")

	return summary, err
}

func (a *App) export(summary *RunSummary, outcomes map[int]models.ReportOutcome) error {
	dir := a.Config.Storage.ReportsDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	markdown := pipeline.RenderMarkdown(summary.Company, outcomes)
	base := filepath.Join(dir, common.SanitizeFilename(summary.Company)+"_report")

	if a.Config.Report.ExportMarkdown {
		summary.Markdown = base + ".md"
		if err := os.WriteFile(summary.Markdown, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write markdown report: %w", err)
		}
	}

	if a.Config.Report.ExportPDF {
		summary.PDF = base + ".pdf"
		title := "Business Assessment - " + summary.Company
		if err := a.Exporter.Export(markdown, title, summary.PDF); err != nil {
			return fmt.Errorf("failed to export pdf report: %w", err)
		}
	}

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close report storage")
		}
	}

	if a.VectorStore != nil {
		if err := a.VectorStore.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close vector store")
		}
	}

	if a.GeminiService != nil {
		if err := a.GeminiService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close gemini service")
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
