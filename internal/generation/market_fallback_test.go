package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/models"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func emptyMarket() *models.GenerationResult[models.MarketForecastAndCompetitors] {
	return &models.GenerationResult[models.MarketForecastAndCompetitors]{
		Payload: models.MarketForecastAndCompetitors{
			OverseasMarket: &models.MarketForecast{Years: []*int{intPtr(2025)}, Values: []*int64{nil}},
			KoreaMarket:    nil,
		},
	}
}

func foundMarket() *models.GenerationResult[models.MarketForecastAndCompetitors] {
	return &models.GenerationResult[models.MarketForecastAndCompetitors]{
		Payload: models.MarketForecastAndCompetitors{
			OverseasMarket: &models.MarketForecast{Years: []*int{intPtr(2025)}, Values: []*int64{nil}, Method: strPtr("CAGR based")},
			KoreaMarket:    &models.MarketForecast{Years: []*int{intPtr(2025)}, Values: []*int64{int64Ptr(4200)}},
		},
		Grounding: &models.Grounding{WebSearchQueries: []string{"smart farm market size"}},
	}
}

func TestMarketFallback_StopsAtFirstValidLevel(t *testing.T) {
	fallback := MarketFallback{MaxLevel: 3, PrefixLen: 200, Logger: arbor.NewLogger()}
	blocks := []models.ContextBlock{{Section: "keywords", Content: "smart farm"}}

	var tasks []string
	results := []*models.GenerationResult[models.MarketForecastAndCompetitors]{emptyMarket(), emptyMarket(), foundMarket(), foundMarket()}

	got, err := fallback.Expand(context.Background(), "Acme", "Forecast the market.", blocks,
		func(ctx context.Context, task string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
			tasks = append(tasks, task)
			return results[len(tasks)-1], nil
		})

	require.NoError(t, err)
	require.Len(t, tasks, 3, "level 3 must not be attempted")
	assert.Same(t, results[2], got)

	assert.True(t, strings.HasSuffix(tasks[0], "[Market scope]\nsmart farm"))
	assert.True(t, strings.HasSuffix(tasks[1], "[Market scope]\nsmart farm related technology market"))
	assert.True(t, strings.HasSuffix(tasks[2], "[Market scope]\nsmart farm industry market"))

	assert.Equal(t, "CAGR based (market scope level 2)", *got.Payload.OverseasMarket.Method)
	assert.Equal(t, "(market scope level 2)", *got.Payload.KoreaMarket.Method)
	assert.NotNil(t, got.Grounding)
}

func TestMarketFallback_ReturnsLastResultWhenNothingFound(t *testing.T) {
	fallback := MarketFallback{MaxLevel: 3, Logger: arbor.NewLogger()}
	calls := 0
	var last *models.GenerationResult[models.MarketForecastAndCompetitors]

	got, err := fallback.Expand(context.Background(), "Acme", "task", nil,
		func(ctx context.Context, task string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
			calls++
			last = emptyMarket()
			return last, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Same(t, last, got)
	assert.Nil(t, got.Payload.OverseasMarket.Method)
}

func TestMarketFallback_LevelZeroUsesSubjectWithoutContext(t *testing.T) {
	fallback := MarketFallback{MaxLevel: -1, Logger: arbor.NewLogger()}
	var task string

	_, err := fallback.Expand(context.Background(), "Acme", "task", nil,
		func(ctx context.Context, t string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
			task = t
			return foundMarket(), nil
		})

	require.NoError(t, err)
	assert.Equal(t, "task\n\n[Market scope]\nAcme", task)
}

func TestMarketFallback_LevelLimits(t *testing.T) {
	tests := []struct {
		name     string
		fallback MarketFallback
		attempts int
	}{
		{"zero value uses default", MarketFallback{}, 4},
		{"negative keeps base scope", MarketFallback{MaxLevel: -1}, 1},
		{"explicit level", MarketFallback{MaxLevel: 2}, 3},
		{"clamped above default", MarketFallback{MaxLevel: 9}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fallback.Logger = arbor.NewLogger()
			calls := 0
			_, err := tt.fallback.Expand(context.Background(), "Acme", "task", nil,
				func(ctx context.Context, task string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
					calls++
					return emptyMarket(), nil
				})
			require.NoError(t, err)
			assert.Equal(t, tt.attempts, calls)
		})
	}
}

func TestMarketFallback_PropagatesGenerationError(t *testing.T) {
	fallback := MarketFallback{MaxLevel: 3, Logger: arbor.NewLogger()}
	boom := errors.New("search failed")

	_, err := fallback.Expand(context.Background(), "Acme", "task", nil,
		func(ctx context.Context, task string) (*models.GenerationResult[models.MarketForecastAndCompetitors], error) {
			return nil, boom
		})

	assert.ErrorIs(t, err, boom)
}

func TestBaseMarket(t *testing.T) {
	long := strings.Repeat("가", 250)

	tests := []struct {
		name   string
		blocks []models.ContextBlock
		want   string
	}{
		{"no blocks uses subject", nil, "Acme"},
		{"prefers keywords", []models.ContextBlock{{Section: "market", Content: "first"}, {Section: "keywords", Content: "drone delivery"}}, "drone delivery"},
		{"accepts item overview", []models.ContextBlock{{Section: "team", Content: "first"}, {Section: "item_overview", Content: "pet care app"}}, "pet care app"},
		{"falls back to first block", []models.ContextBlock{{Section: "team", Content: " first "}, {Section: "market", Content: "second"}}, "first"},
		{"truncates by rune", []models.ContextBlock{{Section: "keywords", Content: long}}, strings.Repeat("가", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseMarket(tt.blocks, "Acme", 200))
		})
	}
}

func TestScopeClause(t *testing.T) {
	assert.Equal(t, "AI", ScopeClause("AI", 0))
	assert.Equal(t, "AI related technology market", ScopeClause("AI", 1))
	assert.Equal(t, "AI industry market", ScopeClause("AI", 2))
	assert.Equal(t, "AI entire industry", ScopeClause("AI", 3))
}
