package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

// Config tunes the generator
type Config struct {
	ContextModel  string        // model for context-only calls, empty uses the service default
	PromptVersion string        // cached context key version
	MaxRetry      int           // attempts per call
	TemplateDelay time.Duration // wait between context-only attempts
	DirectDelay   time.Duration // wait between file, search and cached attempts
	Sleep         Sleeper       // nil uses SleepContext
	Fallback      MarketFallback
}

// Request is the input shared by every generation strategy
type Request struct {
	Subject  string
	Title    string
	Task     string
	Blocks   []models.ContextBlock
	FilePath string
}

// SearchOutput is the content produced by the search strategy
type SearchOutput struct {
	Content   any
	Grounding *models.Grounding
}

// PermanentError is implemented by service errors that no retry can fix,
// e.g. a quota with limit 0
type PermanentError interface {
	error
	Permanent() bool
}

// RetryAfterError is implemented by service errors that know how long to back off
type RetryAfterError interface {
	error
	RetryAfter() time.Duration
}

// Generator implements the generation strategies on top of a GenerationService
type Generator struct {
	service        interfaces.GenerationService
	cache          *CacheManager
	validate       *validator.Validate
	templatePolicy RetryPolicy
	directPolicy   RetryPolicy
	contextModel   string
	promptVersion  string
	fallback       MarketFallback
	logger         arbor.ILogger
}

// NewGenerator wires the strategies to service and cache
func NewGenerator(service interfaces.GenerationService, cache *CacheManager, config Config, logger arbor.ILogger) *Generator {
	if config.TemplateDelay <= 0 {
		config.TemplateDelay = DefaultTemplateRetryDelay
	}
	if config.DirectDelay <= 0 {
		config.DirectDelay = DefaultDirectRetryDelay
	}
	if config.PromptVersion == "" {
		config.PromptVersion = DefaultPromptVersion
	}
	if config.Fallback.Logger == nil {
		config.Fallback.Logger = logger
	}

	base := RetryPolicy{
		MaxRetry: config.MaxRetry,
		Hint:     StrictJSONInstruction,
		Sleep:    config.Sleep,
		Logger:   logger,
	}
	templatePolicy := base
	templatePolicy.Delay = config.TemplateDelay
	directPolicy := base
	directPolicy.Delay = config.DirectDelay

	return &Generator{
		service:        service,
		cache:          cache,
		validate:       NewValidator(),
		templatePolicy: templatePolicy,
		directPolicy:   directPolicy,
		contextModel:   config.ContextModel,
		promptVersion:  config.PromptVersion,
		fallback:       config.Fallback,
		logger:         logger,
	}
}

// FromContext generates a narrative item from retrieved context only
func (g *Generator) FromContext(ctx context.Context, req Request) (*models.GenerationResult[models.ReportItemResult], error) {
	prompt := contextPrompt(g.input(req, BuildContextText(req.Blocks, true), narrativeFormat))

	return generate[models.ReportItemResult](ctx, g, call{
		operation: "generate from context",
		policy:    g.templatePolicy,
		model:     g.contextModel,
		prompt:    prompt,
		schema:    SchemaNarrative,
	})
}

// FromFile generates a narrative item from the business plan file only
func (g *Generator) FromFile(ctx context.Context, req Request) (*models.GenerationResult[models.ReportItemResult], error) {
	if err := requireFile(models.StrategyFile, req.FilePath); err != nil {
		return nil, err
	}
	prompt := filePrompt(g.input(req, "", narrativeFormat))

	return generate[models.ReportItemResult](ctx, g, call{
		operation: "generate from file",
		policy:    g.directPolicy,
		prompt:    prompt,
		filePath:  req.FilePath,
		schema:    SchemaNarrative,
	})
}

// FromFileAndContext uploads the business plan and generates with retrieved context
func (g *Generator) FromFileAndContext(ctx context.Context, req Request) (*models.GenerationResult[models.ReportItemResult], error) {
	if err := requireFile(models.StrategyFileContext, req.FilePath); err != nil {
		return nil, err
	}
	prompt := fileContextPrompt(g.input(req, BuildContextText(req.Blocks, true), narrativeFormat))

	return generate[models.ReportItemResult](ctx, g, call{
		operation: "generate from file and context",
		policy:    g.directPolicy,
		prompt:    prompt,
		filePath:  req.FilePath,
		schema:    SchemaNarrative,
	})
}

// FromCachedContext generates with the business plan held in a cached context,
// creating the cached context on first use
func (g *Generator) FromCachedContext(ctx context.Context, req Request) (*models.GenerationResult[models.ReportItemResult], error) {
	if err := requireFile(models.StrategyCachedContext, req.FilePath); err != nil {
		return nil, err
	}

	handle, err := g.cache.GetOrCreate(ctx, req.Subject, req.FilePath, g.promptVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare cached context: %w", err)
	}

	prompt := fileContextPrompt(g.input(req, BuildContextText(req.Blocks, true), narrativeFormat))

	return generate[models.ReportItemResult](ctx, g, call{
		operation:     "generate from cached context",
		policy:        g.directPolicy,
		prompt:        prompt,
		cachedContext: handle,
		schema:        SchemaNarrative,
	})
}

// Search runs the search grounded strategy. The business model item is
// validated as a narrative without grounding; every other item is a market
// forecast, widened through the market fallback until a forecast is found.
func (g *Generator) Search(ctx context.Context, req Request) (*SearchOutput, error) {
	if req.Title == models.TitleBusinessModel {
		result, err := g.SearchNarrative(ctx, req)
		if err != nil {
			return nil, err
		}
		return &SearchOutput{Content: result.Payload.Evaluation}, nil
	}

	result, err := g.fallback.Expand(ctx, req.Subject, req.Task, req.Blocks,
		func(ctx context.Context, task string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
			scoped := req
			scoped.Task = task
			return g.SearchMarket(ctx, scoped)
		})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Content: result.Payload, Grounding: result.Grounding}, nil
}

// SearchMarket runs one search grounded market forecast call
func (g *Generator) SearchMarket(ctx context.Context, req Request) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
	prompt := searchPrompt(g.input(req, BuildContextText(req.Blocks, false), marketFormat))

	return generate[models.MarketForecastAndCompetitors](ctx, g, call{
		operation: "search market forecast",
		policy:    g.directPolicy,
		prompt:    prompt,
		filePath:  req.FilePath,
		search:    true,
		schema:    SchemaMarket,
	})
}

// SearchNarrative runs one search grounded narrative call
func (g *Generator) SearchNarrative(ctx context.Context, req Request) (*models.GenerationResult[models.ReportItemResult], error) {
	prompt := searchPrompt(g.input(req, BuildContextText(req.Blocks, false), narrativeFormat))

	return generate[models.ReportItemResult](ctx, g, call{
		operation: "search narrative",
		policy:    g.directPolicy,
		prompt:    prompt,
		filePath:  req.FilePath,
		search:    true,
		schema:    SchemaNarrative,
	})
}

// AnalyzeIPC derives IPC codes from the business plan file and retrieved context
func (g *Generator) AnalyzeIPC(ctx context.Context, req Request) (*models.GenerationResult[models.IPCAnalysisResult], error) {
	if err := requireFile(models.StrategyIPCKipris, req.FilePath); err != nil {
		return nil, err
	}
	prompt := ipcPrompt(g.input(req, BuildContextText(req.Blocks, true), ipcFormat))

	return generate[models.IPCAnalysisResult](ctx, g, call{
		operation: "analyze IPC",
		policy:    g.directPolicy,
		prompt:    prompt,
		filePath:  req.FilePath,
		schema:    SchemaIPC,
	})
}

func (g *Generator) input(req Request, contextText, format string) promptInput {
	return promptInput{
		Subject: req.Subject,
		Title:   req.Title,
		Task:    req.Task,
		Context: contextText,
		Format:  format,
	}
}

// call describes one retried generation
type call struct {
	operation     string
	policy        RetryPolicy
	model         string
	prompt        string
	filePath      string
	search        bool
	cachedContext string
	schema        string
}

func generate[T any](ctx context.Context, g *Generator, c call) (*models.GenerationResult[T], error) {
	// Uploaded at most once per call, reused by later attempts
	var uploaded *interfaces.UploadedFile

	return Retry(ctx, c.policy.WithName(c.operation), func(ctx context.Context, attempt Attempt) Outcome[*models.GenerationResult[T]] {
		req := interfaces.GenerationRequest{
			Prompt:        withHints(c.prompt, attempt),
			Model:         c.model,
			SearchEnabled: c.search,
			CachedContext: c.cachedContext,
		}

		if c.filePath != "" {
			if uploaded == nil {
				file, err := g.service.Upload(ctx, c.filePath)
				if err != nil {
					return failure[*models.GenerationResult[T]](ctx, fmt.Errorf("upload %s: %w", c.filePath, err))
				}
				uploaded = file
			}
			req.File = uploaded
		}

		resp, err := g.service.Generate(ctx, req)
		if err != nil {
			return failure[*models.GenerationResult[T]](ctx, err)
		}

		payload, err := ParseOutput[T](resp.Text, DefaultFreeTextField, c.schema, g.validate)
		if err != nil {
			g.logger.Debug().Err(err).Str("operation", c.operation).Int("attempt", attempt.Number).Str("response", truncate(resp.Text, 500)).Msg("Unusable model output")
			return Retryable[*models.GenerationResult[T]](err)
		}

		return Success(&models.GenerationResult[T]{Payload: payload, Grounding: resp.Grounding})
	})
}

// failure classifies a service error: cancellation is fatal, rate limits carry their back-off
func failure[T any](ctx context.Context, err error) Outcome[T] {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Fatal[T](err)
	}
	var permanent PermanentError
	if errors.As(err, &permanent) && permanent.Permanent() {
		return Fatal[T](err)
	}
	var retryAfter RetryAfterError
	if errors.As(err, &retryAfter) {
		return Retryable[T](err).After(retryAfter.RetryAfter())
	}
	return Retryable[T](err)
}

func requireFile(strategy models.Strategy, path string) error {
	if path == "" {
		return &ConfigurationError{Strategy: strategy.String(), Reason: "business plan file is required"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ConfigurationError{Strategy: strategy.String(), Reason: fmt.Sprintf("business plan file unavailable: %v", err)}
	}
	if info.IsDir() {
		return &ConfigurationError{Strategy: strategy.String(), Reason: fmt.Sprintf("business plan path %s is a directory", path)}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
