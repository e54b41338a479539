package kipris

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/bizassess/internal/models"
)

// ParseStatisticsHTML reads the classification statistics table rendered on
// the results page. It is used when the spreadsheet download does not arrive.
func ParseStatisticsHTML(r io.Reader) (*models.YearAggregates, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create goquery document: %w", err)
	}

	var rows [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		candidate := tableRows(table)
		if len(candidate) > 0 && hasStageColumn(candidate[0]) {
			rows = candidate
			return false
		}
		return true
	})

	if rows == nil {
		return nil, fmt.Errorf("no statistics table found")
	}
	return Aggregate(rows), nil
}

func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

func hasStageColumn(header []string) bool {
	for _, h := range header {
		switch strings.TrimSpace(h) {
		case ColumnApplication, ColumnPublication, ColumnRegistration:
			return true
		}
	}
	return false
}
