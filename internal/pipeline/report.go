package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

// SaveReport writes one record per outcome, keyed <company>_<section>.
// Every outcome is attempted; the returned error joins all failures.
func SaveReport(ctx context.Context, storage interfaces.ReportStorage, company, runID string, outcomes map[int]models.ReportOutcome) ([]string, error) {
	createdAt := time.Now().UTC()
	var locations []string
	var errs []error

	for _, id := range sortedIDs(outcomes) {
		outcome := outcomes[id]
		key := common.ReportKey(company, outcome.Title)

		record := &models.ReportRecord{
			Key: key,
			Metadata: models.RecordMetadata{
				Company:   company,
				ItemID:    id,
				Section:   outcome.Title,
				RunID:     runID,
				CreatedAt: createdAt,
				Filename:  key + ".json",
			},
			Content: outcome,
		}

		location, err := storage.Save(ctx, record)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", id, err))
			continue
		}
		locations = append(locations, location)
	}

	return locations, errors.Join(errs...)
}

// RenderMarkdown renders the outcomes as a markdown report in item order
func RenderMarkdown(company string, outcomes map[int]models.ReportOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Business Assessment - %s\n\n", company)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04"))

	for _, id := range sortedIDs(outcomes) {
		outcome := outcomes[id]
		fmt.Fprintf(&b, "## %d. %s\n\n", id, outcome.Title)

		if outcome.Error {
			fmt.Fprintf(&b, "> Generation failed: %s\n\n", outcome.Message)
			continue
		}

		switch content := outcome.Content.(type) {
		case string:
			b.WriteString(strings.TrimSpace(content))
			b.WriteString("\n\n")
		case models.MarketForecastAndCompetitors:
			writeMarket(&b, content)
		case *models.IPCStatisticsContent:
			writeIPC(&b, content)
		case nil:
			b.WriteString("_No content._\n\n")
		default:
			data, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Fprintf(&b, "%v\n\n", content)
				continue
			}
			fmt.Fprintf(&b, "```json\n%s\n```\n\n", data)
		}

		if outcome.Grounding != nil && len(outcome.Grounding.Sources) > 0 {
			b.WriteString("**Sources:**\n\n")
			for _, source := range outcome.Grounding.Sources {
				fmt.Fprintf(&b, "- [%s](%s)\n", orDash(source.Title), source.URI)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeMarket(b *strings.Builder, market models.MarketForecastAndCompetitors) {
	writeForecast(b, "Overseas market", market.OverseasMarket)
	writeForecast(b, "Korean market", market.KoreaMarket)

	if len(market.Competitors) == 0 {
		return
	}
	b.WriteString("### Competitors\n\n| Name | Country | Summary |\n|---|---|---|\n")
	for _, c := range market.Competitors {
		fmt.Fprintf(b, "| %s | %s | %s |\n", deref(c.Name), deref(c.Country), deref(c.ProductServiceSummary))
	}
	b.WriteString("\n")
}

func writeForecast(b *strings.Builder, label string, f *models.MarketForecast) {
	fmt.Fprintf(b, "### %s\n\n", label)
	if !f.HasValidSize() {
		b.WriteString("_No forecast found in public sources._\n\n")
		return
	}

	fmt.Fprintf(b, "Unit: %s %s\n\n| Year | Size |\n|---|---|\n", deref(f.Currency), deref(f.Unit))
	for i, year := range f.Years {
		value := "-"
		if i < len(f.Values) && f.Values[i] != nil {
			value = fmt.Sprintf("%d", *f.Values[i])
		}
		y := "-"
		if year != nil {
			y = fmt.Sprintf("%d", *year)
		}
		fmt.Fprintf(b, "| %s | %s |\n", y, value)
	}
	fmt.Fprintf(b, "\nMethod: %s\n\n", deref(f.Method))
}

func writeIPC(b *strings.Builder, content *models.IPCStatisticsContent) {
	b.WriteString("| IPC | Name | Business function |\n|---|---|---|\n")
	for _, item := range content.IPCAnalysis {
		fmt.Fprintf(b, "| %s | %s | %s |\n", item.IPCCode, item.IPCName, item.LinkedBusinessFunction)
	}
	b.WriteString("\n")

	if content.Statistics == nil {
		return
	}
	b.WriteString("### Patent statistics\n\n| Stage | Years | Counts |\n|---|---|---|\n")
	for _, row := range []struct {
		name   string
		series models.YearSeries
	}{
		{"Application", content.Statistics.Application},
		{"Publication", content.Statistics.Publication},
		{"Registration", content.Statistics.Registration},
	} {
		fmt.Fprintf(b, "| %s | %s | %s |\n", row.name, joinInts(row.series.Years), joinInts(row.series.Values))
	}
	b.WriteString("\n")
}

func sortedIDs(outcomes map[int]models.ReportOutcome) []int {
	ids := make([]int, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
