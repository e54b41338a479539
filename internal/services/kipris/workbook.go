package kipris

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/bizassess/internal/models"
	"github.com/xuri/excelize/v2"
)

// Statistics sheet column headers
const (
	ColumnApplication  = "출원년도"
	ColumnPublication  = "공개년도"
	ColumnRegistration = "등록년도"
)

// yearCountRegex matches cells like "2021(14)"
var yearCountRegex = regexp.MustCompile(`(19\d{2}|20\d{2})\((\d+)\)`)

// ReadWorkbook returns the first worksheet of an xlsx file as rows of cell text
func ReadWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook %s has no worksheets", path)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return rows, nil
}

// Aggregate sums the "year(count)" cells of the three stage columns.
// The first row is the header; missing columns give empty series.
func Aggregate(rows [][]string) *models.YearAggregates {
	if len(rows) == 0 {
		return &models.YearAggregates{
			Application:  emptySeries(),
			Publication:  emptySeries(),
			Registration: emptySeries(),
		}
	}

	header := rows[0]
	body := rows[1:]
	return &models.YearAggregates{
		Application:  seriesFor(header, body, ColumnApplication),
		Publication:  seriesFor(header, body, ColumnPublication),
		Registration: seriesFor(header, body, ColumnRegistration),
	}
}

// ParseWorkbook reads and aggregates a statistics download
func ParseWorkbook(path string) (*models.YearAggregates, error) {
	rows, err := ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	return Aggregate(rows), nil
}

func seriesFor(header []string, body [][]string, column string) models.YearSeries {
	idx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return emptySeries()
	}

	sums := make(map[int]int)
	for _, row := range body {
		if idx >= len(row) {
			continue
		}
		if year, count, ok := parseYearCount(row[idx]); ok {
			sums[year] += count
		}
	}
	return toSeries(sums)
}

func parseYearCount(cell string) (int, int, bool) {
	m := yearCountRegex.FindStringSubmatch(cell)
	if m == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(m[1])
	count, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return year, count, true
}

func toSeries(sums map[int]int) models.YearSeries {
	series := emptySeries()
	for year := range sums {
		series.Years = append(series.Years, year)
	}
	sort.Ints(series.Years)
	for _, year := range series.Years {
		series.Values = append(series.Values, sums[year])
	}
	return series
}

func emptySeries() models.YearSeries {
	return models.YearSeries{Years: []int{}, Values: []int{}}
}
