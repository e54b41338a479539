package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/models"
)

type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) Collect(ctx context.Context, expression string) (*models.YearAggregates, error) {
	args := m.Called(ctx, expression)
	if v := args.Get(0); v != nil {
		return v.(*models.YearAggregates), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubAnalyzer struct {
	items []models.IPCAnalysisItem
	err   error
	calls int
}

func (s *stubAnalyzer) AnalyzeIPC(ctx context.Context, req generation.Request) (*models.GenerationResult[models.IPCAnalysisResult], error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.GenerationResult[models.IPCAnalysisResult]{Payload: models.IPCAnalysisResult{IPCAnalysis: s.items}}, nil
}

var testIPCItems = []models.IPCAnalysisItem{
	{IPCCode: "G06Q 50/16", IPCName: "Real estate", LinkedBusinessFunction: "listing", Justification: "p.3"},
	{IPCCode: "G06T 19/00", IPCName: "3D modelling", LinkedBusinessFunction: "virtual tours", Justification: "p.5"},
}

func TestIPCSearchExpression(t *testing.T) {
	assert.Equal(t, "G06Q50/16*G06T19/00", IPCSearchExpression(testIPCItems))
	assert.Equal(t, "", IPCSearchExpression(nil))
	assert.Equal(t, "H04L9/32", IPCSearchExpression([]models.IPCAnalysisItem{{IPCCode: "H04L 9/32"}, {IPCCode: " "}}))
}

func TestIPCStatistics_Run(t *testing.T) {
	aggregates := &models.YearAggregates{
		Application: models.YearSeries{Years: []int{2021, 2022}, Values: []int{14, 20}},
	}
	collector := &mockCollector{}
	collector.On("Collect", mock.Anything, "G06Q50/16*G06T19/00").Return(aggregates, nil).Once()
	analyzer := &stubAnalyzer{items: testIPCItems}

	p := NewIPCStatistics(analyzer, collector, arbor.NewLogger())
	content, err := p.Run(context.Background(), generation.Request{Subject: "Acme", FilePath: "plan.pdf"})
	require.NoError(t, err)

	assert.Equal(t, testIPCItems, content.IPCAnalysis)
	assert.Same(t, aggregates, content.Statistics)
	collector.AssertExpectations(t)
}

func TestIPCStatistics_RequiresFile(t *testing.T) {
	collector := &mockCollector{}
	analyzer := &stubAnalyzer{items: testIPCItems}

	p := NewIPCStatistics(analyzer, collector, arbor.NewLogger())
	_, err := p.Run(context.Background(), generation.Request{Subject: "Acme"})

	var cfgErr *generation.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ipc+kipris", cfgErr.Strategy)
	assert.Zero(t, analyzer.calls)
	collector.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything)
}

func TestIPCStatistics_Errors(t *testing.T) {
	collector := &mockCollector{}
	p := NewIPCStatistics(&stubAnalyzer{err: errors.New("quota")}, collector, arbor.NewLogger())
	_, err := p.Run(context.Background(), generation.Request{FilePath: "plan.pdf"})
	assert.ErrorContains(t, err, "IPC analysis: quota")
	collector.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything)

	collector.On("Collect", mock.Anything, mock.Anything).Return(nil, errors.New("download timed out"))
	p = NewIPCStatistics(&stubAnalyzer{items: testIPCItems}, collector, arbor.NewLogger())
	_, err = p.Run(context.Background(), generation.Request{FilePath: "plan.pdf"})
	assert.ErrorContains(t, err, "download timed out")
}
