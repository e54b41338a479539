package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

// DefaultRetrievalK is the number of context blocks retrieved per item
const DefaultRetrievalK = 10

// RunRequest describes one report run
type RunRequest struct {
	Subject      string
	Overrides    map[int]string // item id -> strategy name
	BusinessPlan string         // optional business plan file
	Range        *ItemRange     // nil means the whole catalog
}

// Orchestrator generates report items one after the other, isolating failures per item
type Orchestrator struct {
	catalog       *models.Catalog
	retrieval     interfaces.RetrievalService
	dispatcher    *Dispatcher
	inspector     interfaces.DocumentInspector
	defaultSource string
	retrievalK    int
	logger        arbor.ILogger
}

// OrchestratorConfig holds the orchestrator settings
type OrchestratorConfig struct {
	DefaultSource string
	RetrievalK    int
}

// NewOrchestrator creates an orchestrator. inspector may be nil, in which
// case the business plan is only checked for existence.
func NewOrchestrator(catalog *models.Catalog, retrieval interfaces.RetrievalService, dispatcher *Dispatcher, inspector interfaces.DocumentInspector, config OrchestratorConfig, logger arbor.ILogger) *Orchestrator {
	if config.RetrievalK <= 0 {
		config.RetrievalK = DefaultRetrievalK
	}
	return &Orchestrator{
		catalog:       catalog,
		retrieval:     retrieval,
		dispatcher:    dispatcher,
		inspector:     inspector,
		defaultSource: config.DefaultSource,
		retrievalK:    config.RetrievalK,
		logger:        logger,
	}
}

// Generate runs every item in the requested range in ascending id order.
// Setup problems (bad overrides, bad range, unusable business plan) fail the
// whole run before any item starts. Item failures become failed outcomes, so
// the result always has one entry per requested item.
func (o *Orchestrator) Generate(ctx context.Context, req RunRequest) (map[int]models.ReportOutcome, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, &generation.ConfigurationError{Reason: "subject company is required"}
	}

	resolver, err := NewResolver(req.Overrides, o.defaultSource)
	if err != nil {
		return nil, err
	}

	start, end, err := o.bounds(req.Range)
	if err != nil {
		return nil, err
	}

	if req.BusinessPlan != "" {
		if err := o.checkBusinessPlan(req.BusinessPlan); err != nil {
			return nil, err
		}
	}

	o.logger.Info().
		Str("subject", req.Subject).
		Int("start", start).
		Int("end", end).
		Bool("business_plan", req.BusinessPlan != "").
		Msg("Report generation started")

	started := time.Now()
	outcomes := make(map[int]models.ReportOutcome, end-start+1)
	failed := 0

	for id := start; id <= end; id++ {
		item, _ := o.catalog.Item(id)

		if ctx.Err() != nil {
			outcomes[id] = models.FailedOutcome(item.Title, fmt.Errorf("run cancelled: %w", ctx.Err()))
			failed++
			continue
		}

		strategy := resolver.Resolve(id)
		itemStart := time.Now()
		o.logger.Info().Int("item_id", id).Str("title", item.Title).Str("source", strategy.String()).Msg("Processing item")

		outcome, err := o.runItem(ctx, item, strategy, req)
		if err != nil {
			o.logger.Error().Err(err).Int("item_id", id).Str("title", item.Title).Msg("Item failed")
			outcome = models.FailedOutcome(item.Title, err)
			failed++
		} else {
			o.logger.Info().Int("item_id", id).Dur("elapsed", time.Since(itemStart)).Msg("Item completed")
		}
		outcomes[id] = outcome
	}

	o.logger.Info().
		Int("items", len(outcomes)).
		Int("failed", failed).
		Dur("elapsed", time.Since(started)).
		Msg("Report generation finished")

	return outcomes, nil
}

func (o *Orchestrator) runItem(ctx context.Context, item models.ReportItem, strategy models.Strategy, req RunRequest) (models.ReportOutcome, error) {
	var outcome models.ReportOutcome

	err := common.SafeCall(o.logger, fmt.Sprintf("item %d", item.ID), func() error {
		vector, err := o.retrieval.Embed(ctx, item.RenderQuery(req.Subject))
		if err != nil {
			return &StageError{ItemID: item.ID, Stage: StageEmbed, Err: err}
		}

		blocks, err := o.retrieval.Search(ctx, vector, req.Subject, item.Sections, o.retrievalK)
		if err != nil {
			return &StageError{ItemID: item.ID, Stage: StageRetrieve, Err: err}
		}
		o.logger.Debug().Int("item_id", item.ID).Int("blocks", len(blocks)).Msg("Context retrieved")

		outcome, err = o.dispatcher.Dispatch(ctx, strategy, Job{
			Item:         item,
			Subject:      req.Subject,
			Blocks:       blocks,
			BusinessPlan: req.BusinessPlan,
		})
		if err != nil {
			return &StageError{ItemID: item.ID, Stage: StageGenerate, Err: err}
		}
		return nil
	})
	if err != nil {
		return models.ReportOutcome{}, err
	}

	if outcome.Title == "" {
		outcome.Title = item.Title
	}
	return outcome, nil
}

func (o *Orchestrator) bounds(r *ItemRange) (int, int, error) {
	if r == nil {
		return 1, o.catalog.Len(), nil
	}
	if r.Start < 1 || r.End > o.catalog.Len() || r.Start > r.End {
		return 0, 0, fmt.Errorf("invalid item range %d-%d for a catalog of %d items", r.Start, r.End, o.catalog.Len())
	}
	return r.Start, r.End, nil
}

func (o *Orchestrator) checkBusinessPlan(path string) error {
	if o.inspector == nil {
		if _, err := os.Stat(path); err != nil {
			return &generation.ConfigurationError{Reason: fmt.Sprintf("business plan %s is unusable: %v", path, err)}
		}
		return nil
	}

	pages, err := o.inspector.Inspect(path)
	if err != nil {
		return &generation.ConfigurationError{Reason: fmt.Sprintf("business plan %s is unusable: %v", path, err)}
	}
	o.logger.Debug().Str("path", path).Int("pages", pages).Msg("Business plan inspected")
	return nil
}
