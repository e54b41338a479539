package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/models"
)

// Job is the input for generating one report item
type Job struct {
	Item         models.ReportItem
	Subject      string
	Blocks       []models.ContextBlock
	BusinessPlan string
}

func (j Job) request() generation.Request {
	return generation.Request{
		Subject:  j.Subject,
		Title:    j.Item.Title,
		Task:     j.Item.Task,
		Blocks:   j.Blocks,
		FilePath: j.BusinessPlan,
	}
}

// Handler generates the outcome for one job with a fixed strategy
type Handler func(ctx context.Context, job Job) (models.ReportOutcome, error)

// Dispatcher routes jobs to the handler of their strategy
type Dispatcher struct {
	handlers map[models.Strategy]Handler
}

// NewDispatcher requires a handler for every strategy
func NewDispatcher(handlers map[models.Strategy]Handler) (*Dispatcher, error) {
	var missing []string
	for _, s := range models.AllStrategies() {
		if handlers[s] == nil {
			missing = append(missing, s.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dispatcher has no handler for: %s", strings.Join(missing, ", "))
	}

	for s := range handlers {
		if _, ok := models.ParseStrategy(s.String()); !ok {
			return nil, &generation.UnsupportedSourceError{Source: s.String()}
		}
	}

	copied := make(map[models.Strategy]Handler, len(handlers))
	for s, h := range handlers {
		copied[s] = h
	}
	return &Dispatcher{handlers: copied}, nil
}

// Dispatch runs the handler for strategy
func (d *Dispatcher) Dispatch(ctx context.Context, strategy models.Strategy, job Job) (models.ReportOutcome, error) {
	handler, ok := d.handlers[strategy]
	if !ok {
		return models.ReportOutcome{}, &generation.UnsupportedSourceError{Source: strategy.String()}
	}
	return handler(ctx, job)
}

// ItemGenerator is the set of generation strategies the handlers call
type ItemGenerator interface {
	FromContext(ctx context.Context, req generation.Request) (*models.GenerationResult[models.ReportItemResult], error)
	FromFile(ctx context.Context, req generation.Request) (*models.GenerationResult[models.ReportItemResult], error)
	FromFileAndContext(ctx context.Context, req generation.Request) (*models.GenerationResult[models.ReportItemResult], error)
	FromCachedContext(ctx context.Context, req generation.Request) (*models.GenerationResult[models.ReportItemResult], error)
	Search(ctx context.Context, req generation.Request) (*generation.SearchOutput, error)
}

type narrativeFunc func(ctx context.Context, req generation.Request) (*models.GenerationResult[models.ReportItemResult], error)

func narrativeHandler(fn narrativeFunc) Handler {
	return func(ctx context.Context, job Job) (models.ReportOutcome, error) {
		result, err := fn(ctx, job.request())
		if err != nil {
			return models.ReportOutcome{}, err
		}
		return models.ReportOutcome{Title: job.Item.Title, Content: result.Payload.Evaluation}, nil
	}
}

// NewHandlers maps every strategy onto the generator and the IPC statistics pipeline
func NewHandlers(g ItemGenerator, ipc *IPCStatistics) map[models.Strategy]Handler {
	return map[models.Strategy]Handler{
		models.StrategyContext:       narrativeHandler(g.FromContext),
		models.StrategyFile:          narrativeHandler(g.FromFile),
		models.StrategyFileContext:   narrativeHandler(g.FromFileAndContext),
		models.StrategyCachedContext: narrativeHandler(g.FromCachedContext),
		models.StrategySearch: func(ctx context.Context, job Job) (models.ReportOutcome, error) {
			out, err := g.Search(ctx, job.request())
			if err != nil {
				return models.ReportOutcome{}, err
			}
			return models.ReportOutcome{Title: job.Item.Title, Content: out.Content, Grounding: out.Grounding}, nil
		},
		models.StrategyIPCKipris: func(ctx context.Context, job Job) (models.ReportOutcome, error) {
			content, err := ipc.Run(ctx, job.request())
			if err != nil {
				return models.ReportOutcome{}, err
			}
			return models.ReportOutcome{Title: job.Item.Title, Content: content}, nil
		},
	}
}
