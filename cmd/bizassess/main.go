package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/app"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/services/scheduler"
)

// stringList is a custom flag type that allows repeated flags
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

const reportJobName = "business-assessment"

var (
	// Command-line flags
	configFiles  stringList // Multiple -config flags supported
	sources      stringList // Repeated -source <id>=<strategy>
	company      = flag.String("company", "", "Subject company (overrides config)")
	businessPlan = flag.String("business-plan", "", "Business plan PDF (overrides config)")
	itemRange    = flag.String("range", "", "Inclusive item range, e.g. 2-4 (overrides config)")
	exportPDF    = flag.Bool("pdf", false, "Export the assembled report as PDF")
	schedule     = flag.String("schedule", "", "Cron expression with seconds; runs the report on a schedule instead of once")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Var(&sources, "source", "Per-item source override <id>=<strategy> (repeatable)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("BizAssess version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("bizassess.toml"); err == nil {
			configFiles = append(configFiles, "bizassess.toml")
		} else if _, err := os.Stat("deployments/local/bizassess.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/bizassess.toml")
		}
	}

	// 1. Load configuration (defaults -> file1 -> file2 -> ... -> env)
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, common.ReportFlags{
		Company:      *company,
		BusinessPlan: *businessPlan,
		Range:        *itemRange,
		Sources:      sources,
		ExportPDF:    *exportPDF,
		Schedule:     *schedule,
	})

	// 3. Initialize logger with final configuration
	logger := common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("company", config.Report.Company).
		Str("business_plan", config.Report.BusinessPlan).
		Str("range", config.Report.Range).
		Strs("sources", config.Report.Sources).
		Msg("Resolved configuration")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var code int
	if config.Report.Schedule == "" {
		code = runOnce(ctx, application, logger)
	} else {
		code = runScheduled(ctx, application, config.Report.Schedule, logger)
	}

	stop()
	shutdown(application, code, logger)
}

// closer is the part of the application released on exit
type closer interface {
	Close() error
}

// exit is replaced in tests
var exit = os.Exit

// shutdown closes the application before leaving with a non-zero code, so
// storage is flushed on failed runs too
func shutdown(application closer, code int, logger arbor.ILogger) {
	if err := application.Close(); err != nil {
		logger.Warn().Err(err).Msg("Application close failed")
	}
	if code != 0 {
		exit(code)
	}
}

// runOnce generates one report and returns the process exit code
func runOnce(ctx context.Context, application *app.App, logger arbor.ILogger) int {
	summary, err := application.RunReport(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Report run failed")
		if summary == nil {
			return 1
		}
	}
	if summary.Failed > 0 {
		logger.Warn().Int("failed", summary.Failed).Int("items", summary.Items).Msg("Report completed with failed items")
	}
	return 0
}

// runScheduled registers the report as a cron job and blocks until interrupted
func runScheduled(ctx context.Context, application *app.App, expr string, logger arbor.ILogger) int {
	sched := scheduler.NewService(logger)

	err := sched.RegisterJob(reportJobName, expr, func(jobCtx context.Context) error {
		_, err := application.RunReport(jobCtx)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register report job")
		return 1
	}

	if err := sched.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		return 1
	}

	if status, err := sched.GetJobStatus(reportJobName); err == nil && status.NextRun != nil {
		logger.Info().Str("next_run", status.NextRun.Format(time.RFC3339)).Msg("Scheduler ready - Press Ctrl+C to stop")
	}

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Scheduler shutdown failed")
		return 1
	}
	return 0
}
