package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/bizassess/internal/models"
)

// ErrReportNotFound is returned when no record exists for a key
var ErrReportNotFound = errors.New("report not found")

// ReportStorage persists generated report items
type ReportStorage interface {
	// Save writes the record and returns where it was stored
	Save(ctx context.Context, record *models.ReportRecord) (string, error)

	// Get loads a record by its key (<company>_<section>)
	Get(ctx context.Context, key string) (*models.ReportRecord, error)

	// ListByCompany returns all records stored for a company, ordered by item id
	ListByCompany(ctx context.Context, company string) ([]*models.ReportRecord, error)

	Close() error
}
