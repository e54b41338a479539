package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

// IPCAnalyzer derives IPC codes for a business plan
type IPCAnalyzer interface {
	AnalyzeIPC(ctx context.Context, req generation.Request) (*models.GenerationResult[models.IPCAnalysisResult], error)
}

// IPCStatistics runs IPC analysis and then collects patent statistics for the codes found
type IPCStatistics struct {
	analyzer  IPCAnalyzer
	collector interfaces.StatisticsCollector
	logger    arbor.ILogger
}

// NewIPCStatistics creates the IPC + patent statistics pipeline
func NewIPCStatistics(analyzer IPCAnalyzer, collector interfaces.StatisticsCollector, logger arbor.ILogger) *IPCStatistics {
	return &IPCStatistics{analyzer: analyzer, collector: collector, logger: logger}
}

// Run requires the business plan file; statistics are collected once per call
func (p *IPCStatistics) Run(ctx context.Context, req generation.Request) (*models.IPCStatisticsContent, error) {
	if req.FilePath == "" {
		return nil, &generation.ConfigurationError{Strategy: models.StrategyIPCKipris.String(), Reason: "business plan file is required"}
	}

	result, err := p.analyzer.AnalyzeIPC(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("IPC analysis: %w", err)
	}

	expression := IPCSearchExpression(result.Payload.IPCAnalysis)
	p.logger.Info().Str("expression", expression).Int("codes", len(result.Payload.IPCAnalysis)).Msg("Collecting patent statistics")

	statistics, err := p.collector.Collect(ctx, expression)
	if err != nil {
		return nil, fmt.Errorf("patent statistics for %s: %w", expression, err)
	}

	return &models.IPCStatisticsContent{
		IPCAnalysis: result.Payload.IPCAnalysis,
		Statistics:  statistics,
	}, nil
}

// IPCSearchExpression joins IPC codes, spaces removed, with '*' (OR in KIPRIS
// search syntax), e.g. "G06Q 50/16" and "G06T 19/00" -> "G06Q50/16*G06T19/00"
func IPCSearchExpression(items []models.IPCAnalysisItem) string {
	codes := make([]string, 0, len(items))
	for _, item := range items {
		code := strings.ReplaceAll(item.IPCCode, " ", "")
		if code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, "*")
}
