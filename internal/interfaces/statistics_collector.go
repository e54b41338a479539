package interfaces

import (
	"context"

	"github.com/ternarybob/bizassess/internal/models"
)

// StatisticsCollector gathers yearly patent statistics for an IPC search expression
// such as "G06Q50/16*G06T19/00"
type StatisticsCollector interface {
	Collect(ctx context.Context, expression string) (*models.YearAggregates, error)
}

// DocumentInspector checks a business plan before a run uses it
type DocumentInspector interface {
	// Inspect returns the page count of the document
	Inspect(path string) (int, error)
}
