package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig    `toml:"logging"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Generation  GenerationConfig `toml:"generation"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Storage     StorageConfig    `toml:"storage"`
	Kipris      KiprisConfig     `toml:"kipris"`
	Catalog     CatalogConfig    `toml:"catalog"`
	Report      ReportConfig     `toml:"report"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
	FileName   string   `toml:"file_name"`   // Log file name inside ./logs (default: "bizassess.log")
}

// GeminiConfig contains Google Gemini API configuration for generation, caching and embeddings
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	Model          string  `toml:"model"`           // Model for file, search and cached generation (default: "gemini-2.5-flash")
	ContextModel   string  `toml:"context_model"`   // Model for context-only generation (default: "gemini-2.0-flash")
	EmbedModel     string  `toml:"embed_model"`     // Embedding model for retrieval queries (default: "gemini-embedding-001")
	EmbedDimension int     `toml:"embed_dimension"` // Output dimensionality of query embeddings (default: 1536)
	Temperature    float32 `toml:"temperature"`     // Generation temperature (default: 0.2)
	Timeout        string  `toml:"timeout"`         // Per-call timeout as duration string (default: "5m")
	RateLimit      string  `toml:"rate_limit"`      // Minimum interval between generation calls (default: "1s")
	CacheTTL       string  `toml:"cache_ttl"`       // Lifetime of cached contexts (default: "1h")
}

// GenerationConfig controls retry, caching and fallback behaviour of the report engine
type GenerationConfig struct {
	MaxRetry           int    `toml:"max_retry"`            // Attempts per generation call (default: 3)
	TemplateRetryDelay string `toml:"template_retry_delay"` // Wait between template attempts (default: "1s")
	DirectRetryDelay   string `toml:"direct_retry_delay"`   // Wait between file/search/cached attempts (default: "1.5s")
	PromptVersion      string `toml:"prompt_version"`       // Cache key prompt version (default: "v1")
	MarketMaxLevel     int    `toml:"market_max_level"`     // Highest market scope expansion level (default: 3, -1 = base scope only)
	BaseMarketPrefix   int    `toml:"base_market_prefix"`   // Runes of context used as the base market (default: 200)
	RetrievalK         int    `toml:"retrieval_k"`          // Context blocks retrieved per item (default: 10)
	DefaultSource      string `toml:"default_source"`       // Strategy used when no override applies (default: "vectordb")
}

// RetrievalConfig points at the pgvector document store
type RetrievalConfig struct {
	DSN     string `toml:"dsn"`      // Postgres connection string
	Table   string `toml:"table"`    // Embedding table (default: "business_plan_embeddings")
	DocType string `toml:"doc_type"` // Document type filter (default: "business_plan")
}

type StorageConfig struct {
	Type       string       `toml:"type"`        // "file" or "badger" (default: "file")
	ReportsDir string       `toml:"reports_dir"` // Output directory for JSON/markdown/pdf reports
	Badger     BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// KiprisConfig configures the patent statistics collector
type KiprisConfig struct {
	URL         string `toml:"url"`          // KIPRIS home page
	DownloadDir string `toml:"download_dir"` // Base directory for statistics downloads
	Headless    bool   `toml:"headless"`     // Run Chrome headless (default: true)
	Timeout     string `toml:"timeout"`      // Whole collection timeout (default: "2m")
	UserAgent   string `toml:"user_agent"`   // Browser user agent
}

type CatalogConfig struct {
	Path string `toml:"path"` // Optional YAML catalog replacing the built-in items
}

// ReportConfig holds the run request defaults, usually overridden by flags
type ReportConfig struct {
	Company        string   `toml:"company"`         // Subject company name
	BusinessPlan   string   `toml:"business_plan"`   // Business plan file (PDF)
	Sources        []string `toml:"sources"`         // Per-item overrides, "<id>=<strategy>"
	Range          string   `toml:"range"`           // Inclusive item range "start-end" (empty = all)
	ExportPDF      bool     `toml:"export_pdf"`      // Render the assembled report as PDF
	ExportMarkdown bool     `toml:"export_markdown"` // Write the assembled report as markdown
	PDFFont        string   `toml:"pdf_font"`        // TTF with Hangul glyphs for PDF export (optional)
	Schedule       string   `toml:"schedule"`        // Cron expression for scheduled runs (6 fields, with seconds)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
			FileName:   "bizassess.log",
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			ContextModel:   "gemini-2.0-flash",
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 1536,
			Temperature:    0.2,
			Timeout:        "5m",
			RateLimit:      "1s",
			CacheTTL:       "1h",
		},
		Generation: GenerationConfig{
			MaxRetry:           3,
			TemplateRetryDelay: "1s",
			DirectRetryDelay:   "1.5s",
			PromptVersion:      "v1",
			MarketMaxLevel:     3,
			BaseMarketPrefix:   200,
			RetrievalK:         10,
			DefaultSource:      "vectordb",
		},
		Retrieval: RetrievalConfig{
			Table:   "business_plan_embeddings",
			DocType: "business_plan",
		},
		Storage: StorageConfig{
			Type:       "file",
			ReportsDir: "./reports",
			Badger: BadgerConfig{
				Path: "./data/bizassess.badger",
			},
		},
		Kipris: KiprisConfig{
			URL:         "https://www.kipris.or.kr/khome/main.do",
			DownloadDir: "./data/kipris",
			Headless:    true,
			Timeout:     "2m",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BIZASSESS_ENV"); env != "" {
		config.Environment = env
	}

	// Logging
	if level := os.Getenv("BIZASSESS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("BIZASSESS_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}

	// Gemini
	if model := os.Getenv("BIZASSESS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("BIZASSESS_GEMINI_CONTEXT_MODEL"); model != "" {
		config.Gemini.ContextModel = model
	}
	if rate := os.Getenv("BIZASSESS_GEMINI_RATE_LIMIT"); rate != "" {
		config.Gemini.RateLimit = rate
	}

	// Generation
	if maxRetry := os.Getenv("BIZASSESS_MAX_RETRY"); maxRetry != "" {
		if n, err := strconv.Atoi(maxRetry); err == nil {
			config.Generation.MaxRetry = n
		}
	}
	if version := os.Getenv("BIZASSESS_PROMPT_VERSION"); version != "" {
		config.Generation.PromptVersion = version
	}
	if source := os.Getenv("BIZASSESS_DEFAULT_SOURCE"); source != "" {
		config.Generation.DefaultSource = source
	}

	// Retrieval: explicit DSN wins, otherwise assemble from the POSTGRES_* variables
	if dsn := os.Getenv("BIZASSESS_RETRIEVAL_DSN"); dsn != "" {
		config.Retrieval.DSN = dsn
	} else if host := os.Getenv("POSTGRES_HOST"); host != "" {
		config.Retrieval.DSN = fmt.Sprintf("postgres://%s:%s@%s/%s",
			os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), host, os.Getenv("POSTGRES_DATABASE"))
	}

	// Storage
	if storageType := os.Getenv("BIZASSESS_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if dir := os.Getenv("BIZASSESS_REPORTS_DIR"); dir != "" {
		config.Storage.ReportsDir = dir
	}
	if badgerPath := os.Getenv("BIZASSESS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// KIPRIS
	if headless := os.Getenv("BIZASSESS_KIPRIS_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Kipris.Headless = b
		}
	}
	if dir := os.Getenv("BIZASSESS_KIPRIS_DOWNLOAD_DIR"); dir != "" {
		config.Kipris.DownloadDir = dir
	}

	// Report
	if company := os.Getenv("BIZASSESS_COMPANY"); company != "" {
		config.Report.Company = company
	}
	if plan := os.Getenv("BIZASSESS_BUSINESS_PLAN"); plan != "" {
		config.Report.BusinessPlan = plan
	}
}

// ReportFlags carries command-line overrides for a run
type ReportFlags struct {
	Company      string
	BusinessPlan string
	Range        string
	Sources      []string
	ExportPDF    bool
	Schedule     string
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Flags have the highest priority.
func ApplyFlagOverrides(config *Config, flags ReportFlags) {
	if flags.Company != "" {
		config.Report.Company = flags.Company
	}
	if flags.BusinessPlan != "" {
		config.Report.BusinessPlan = flags.BusinessPlan
	}
	if flags.Range != "" {
		config.Report.Range = flags.Range
	}
	if len(flags.Sources) > 0 {
		config.Report.Sources = append([]string(nil), flags.Sources...)
	}
	if flags.ExportPDF {
		config.Report.ExportPDF = true
	}
	if flags.Schedule != "" {
		config.Report.Schedule = flags.Schedule
	}
}

// ResolveAPIKey resolves the Gemini API key.
// Priority: BIZASSESS_GEMINI_API_KEY -> GEMINI_API_KEY -> GOOGLE_API_KEY -> config value.
func ResolveAPIKey(configFallback string) (string, error) {
	for _, name := range []string{"BIZASSESS_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("gemini API key not found in environment or config")
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
