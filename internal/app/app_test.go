package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/models"
	"github.com/ternarybob/bizassess/internal/services/pdf"
)

func TestApp_ExportWritesMarkdownAndPDF(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.ReportsDir = t.TempDir()
	config.Report.ExportMarkdown = true
	config.Report.ExportPDF = true

	logger := arbor.NewLogger()
	a := &App{Config: config, Logger: logger, Exporter: pdf.NewExporter("", logger)}

	summary := &RunSummary{Company: "Acme Corp"}
	outcomes := map[int]models.ReportOutcome{
		1: {Title: "Future Technology Readiness", Content: "Strong roadmap."},
		2: models.FailedOutcome("IP Readiness", assert.AnError),
	}

	require.NoError(t, a.export(summary, outcomes))

	assert.FileExists(t, summary.Markdown)
	assert.FileExists(t, summary.PDF)
	assert.Contains(t, summary.Markdown, "Acme_Corp_report.md")

	data, err := os.ReadFile(summary.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## 1. Future Technology Readiness")
	assert.Contains(t, string(data), "> Generation failed:")
}

func TestApp_ExportMarkdownOnly(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.ReportsDir = t.TempDir()
	config.Report.ExportMarkdown = true

	a := &App{Config: config, Logger: arbor.NewLogger()}
	summary := &RunSummary{Company: "Acme"}

	require.NoError(t, a.export(summary, map[int]models.ReportOutcome{1: {Title: "t", Content: "c"}}))
	assert.FileExists(t, summary.Markdown)
	assert.Empty(t, summary.PDF)
}
