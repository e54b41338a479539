package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

// ReportStorage writes each record to <dir>/<key>.json as indented UTF-8 JSON
type ReportStorage struct {
	dir    string
	logger arbor.ILogger
}

// NewReportStorage creates the directory if needed
func NewReportStorage(dir string, logger arbor.ILogger) (*ReportStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &ReportStorage{dir: dir, logger: logger}, nil
}

// Save writes the record and returns the file path
func (s *ReportStorage) Save(ctx context.Context, record *models.ReportRecord) (string, error) {
	if record.Key == "" {
		return "", fmt.Errorf("report record has no key")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("failed to encode report %s: %w", record.Key, err)
	}

	path := s.path(record.Key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", record.Key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write report %s: %w", record.Key, err)
	}

	s.logger.Info().Str("path", path).Msg("Report saved")
	return path, nil
}

// Get reads <key>.json
func (s *ReportStorage) Get(ctx context.Context, key string) (*models.ReportRecord, error) {
	record, err := s.read(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrReportNotFound
	}
	return record, err
}

// ListByCompany scans the directory for records of company
func (s *ReportStorage) ListByCompany(ctx context.Context, company string) ([]*models.ReportRecord, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var records []*models.ReportRecord
	for _, path := range matches {
		record, err := s.read(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable report file")
			continue
		}
		if record.Metadata.Company == company {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Metadata.ItemID < records[j].Metadata.ItemID
	})
	return records, nil
}

// Close is a no-op for files
func (s *ReportStorage) Close() error {
	return nil
}

func (s *ReportStorage) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *ReportStorage) read(path string) (*models.ReportRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record models.ReportRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	record.Key = strings.TrimSuffix(filepath.Base(path), ".json")
	return &record, nil
}
