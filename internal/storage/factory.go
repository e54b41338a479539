package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/storage/badger"
	"github.com/ternarybob/bizassess/internal/storage/file"
)

// NewReportStorage creates the report sink selected by storage.type
func NewReportStorage(logger arbor.ILogger, config *common.Config) (interfaces.ReportStorage, error) {
	switch config.Storage.Type {
	case "", "file":
		s, err := file.NewReportStorage(config.Storage.ReportsDir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "badger":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, err
		}
		return badger.NewReportStorage(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'file' or 'badger')", config.Storage.Type)
	}
}
