package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/models"
)

// Market fallback defaults
const (
	DefaultMarketMaxLevel   = 3
	DefaultBaseMarketPrefix = 200
)

// Sections preferred when deriving the base market label
var baseMarketSections = map[string]bool{
	"keywords":      true,
	"item_overview": true,
}

// MarketGenerateFunc produces one market forecast for a (scope widened) task
type MarketGenerateFunc func(ctx context.Context, task string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error)

// MarketFallback widens the market scope level by level until a search
// returns a usable forecast
type MarketFallback struct {
	MaxLevel  int // highest level tried, 1..3; 0 means 3, negative keeps the base scope only
	PrefixLen int // runes of context kept as the base market label
	Logger    arbor.ILogger
}

// BaseMarket derives the narrowest market label: the first keywords or
// item_overview block, else the first block, truncated to prefixLen runes.
// Without context the subject itself is used.
func BaseMarket(blocks []models.ContextBlock, subject string, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultBaseMarketPrefix
	}
	if len(blocks) == 0 {
		return subject
	}

	chosen := blocks[0]
	for _, block := range blocks {
		if baseMarketSections[block.Section] {
			chosen = block
			break
		}
	}

	label := strings.TrimSpace(chosen.Content)
	if runes := []rune(label); len(runes) > prefixLen {
		label = string(runes[:prefixLen])
	}
	if label == "" {
		return subject
	}
	return label
}

// ScopeClause returns the market description for an expansion level
func ScopeClause(base string, level int) string {
	switch {
	case level <= 0:
		return base
	case level == 1:
		return base + " related technology market"
	case level == 2:
		return base + " industry market"
	default:
		return base + " entire industry"
	}
}

// Expand runs generate for level 0..MaxLevel, appending the widened market
// scope to task each time, and returns the first result with a valid overseas
// or domestic forecast. The accepted forecasts' method is annotated with the
// level. When no level yields a forecast the last result is returned as is.
func (f MarketFallback) Expand(ctx context.Context, subject, task string, blocks []models.ContextBlock, generate MarketGenerateFunc) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
	maxLevel := f.MaxLevel
	switch {
	case maxLevel == 0:
		maxLevel = DefaultMarketMaxLevel
	case maxLevel < 0:
		maxLevel = 0
	case maxLevel > DefaultMarketMaxLevel:
		maxLevel = DefaultMarketMaxLevel
	}
	logger := f.Logger
	if logger == nil {
		logger = common.GetLogger()
	}

	base := BaseMarket(blocks, subject, f.PrefixLen)
	logger.Debug().Str("base_market", base).Int("max_level", maxLevel).Msg("Market fallback starting")

	var last *models.GenerationResult[models.MarketForecastAndCompetitors]
	for level := 0; level <= maxLevel; level++ {
		scopedTask := task + "\n\n[Market scope]\n" + ScopeClause(base, level)

		result, err := generate(ctx, scopedTask)
		if err != nil {
			return nil, fmt.Errorf("market scope level %d: %w", level, err)
		}
		last = result

		if result != nil && result.Payload.HasValidForecast() {
			annotateLevel(&result.Payload, level)
			logger.Info().Int("level", level).Msg("Market forecast found")
			return result, nil
		}

		logger.Info().Int("level", level).Msg("No market forecast at this scope, widening")
	}

	logger.Warn().Int("levels", maxLevel+1).Msg("No market forecast at any scope")
	return last, nil
}

func annotateLevel(payload *models.MarketForecastAndCompetitors, level int) {
	note := fmt.Sprintf("(market scope level %d)", level)
	for _, forecast := range []*models.MarketForecast{payload.OverseasMarket, payload.KoreaMarket} {
		if forecast == nil {
			continue
		}
		if forecast.Method == nil || strings.TrimSpace(*forecast.Method) == "" {
			forecast.Method = &note
			continue
		}
		method := *forecast.Method + " " + note
		forecast.Method = &method
	}
}
