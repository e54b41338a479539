package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage keeps report records in Badger, keyed <company>_<section>
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a Badger report sink
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) *ReportStorage {
	return &ReportStorage{db: db, logger: logger}
}

// Save upserts the record; the latest run for a section wins
func (s *ReportStorage) Save(ctx context.Context, record *models.ReportRecord) (string, error) {
	if record.Key == "" {
		return "", fmt.Errorf("report record has no key")
	}
	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return "", fmt.Errorf("failed to save report %s: %w", record.Key, err)
	}
	s.logger.Debug().Str("key", record.Key).Str("run_id", record.Metadata.RunID).Msg("Report saved")
	return "badger://" + record.Key, nil
}

// Get returns the record stored under key
func (s *ReportStorage) Get(ctx context.Context, key string) (*models.ReportRecord, error) {
	var record models.ReportRecord
	err := s.db.Store().Get(key, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", key, err)
	}
	return &record, nil
}

// ListByCompany returns all records for company in item order
func (s *ReportStorage) ListByCompany(ctx context.Context, company string) ([]*models.ReportRecord, error) {
	var records []models.ReportRecord
	query := badgerhold.Where("Metadata.Company").Eq(company)
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list reports for %s: %w", company, err)
	}

	out := make([]*models.ReportRecord, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.ItemID < out[j].Metadata.ItemID
	})
	return out, nil
}

// Close closes the database
func (s *ReportStorage) Close() error {
	return s.db.Close()
}
