package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/models"
)

func TestResolveSource(t *testing.T) {
	overrides := map[int]models.Strategy{
		1: models.StrategyCachedContext,
		3: models.StrategyFile,
	}

	tests := []struct {
		name     string
		itemID   int
		def      models.Strategy
		expected models.Strategy
	}{
		{"market item ignores override", 3, models.StrategyContext, models.StrategySearch},
		{"market item ignores default", 3, models.StrategyFileContext, models.StrategySearch},
		{"override wins", 1, models.StrategyFile, models.StrategyCachedContext},
		{"default used", 2, models.StrategyFileContext, models.StrategyFileContext},
		{"empty default falls back", 5, "", models.StrategyContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveSource(tt.itemID, overrides, tt.def))
		})
	}
}

func TestNewResolver(t *testing.T) {
	r, err := NewResolver(map[int]string{2: " IPC+KIPRIS ", 3: "file"}, "file+vectordb")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyIPCKipris, r.Resolve(2))
	assert.Equal(t, models.StrategySearch, r.Resolve(3))
	assert.Equal(t, models.StrategyFileContext, r.Resolve(4))

	r, err = NewResolver(nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyContext, r.Resolve(1))

	var unsupported *generation.UnsupportedSourceError
	_, err = NewResolver(map[int]string{1: "elasticsearch"}, "")
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "elasticsearch", unsupported.Source)

	_, err = NewResolver(nil, "mysql")
	assert.ErrorAs(t, err, &unsupported)
}

func TestParseOverrides(t *testing.T) {
	overrides, err := ParseOverrides([]string{"1=cache+vectordb", " 4 = file ", ""})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "cache+vectordb", 4: "file"}, overrides)

	_, err = ParseOverrides([]string{"cache+vectordb"})
	assert.Error(t, err)

	_, err = ParseOverrides([]string{"one=file"})
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input    string
		expected *ItemRange
		wantErr  bool
	}{
		{"", nil, false},
		{"2-4", &ItemRange{Start: 2, End: 4}, false},
		{" 3 ", &ItemRange{Start: 3, End: 3}, false},
		{"1 - 5", &ItemRange{Start: 1, End: 5}, false},
		{"a-3", nil, true},
		{"2-", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, r)
		})
	}
}
