package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
)

func newTestStorage(t *testing.T) *ReportStorage {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	s := NewReportStorage(db, arbor.NewLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(company, section string, itemID int, runID string) *models.ReportRecord {
	return &models.ReportRecord{
		Key:      company + "_" + section,
		Metadata: models.RecordMetadata{Company: company, ItemID: itemID, Section: section, RunID: runID},
		Content:  models.ReportOutcome{Title: section, Content: "evaluation of " + section},
	}
}

func TestReportStorage_UpsertAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	location, err := s.Save(ctx, testRecord("Acme", "Marketing", 5, "run_1"))
	require.NoError(t, err)
	assert.Equal(t, "badger://Acme_Marketing", location)

	_, err = s.Save(ctx, testRecord("Acme", "Marketing", 5, "run_2"))
	require.NoError(t, err)

	got, err := s.Get(ctx, "Acme_Marketing")
	require.NoError(t, err)
	assert.Equal(t, "run_2", got.Metadata.RunID)
	assert.Equal(t, "evaluation of Marketing", got.Content.Content)

	_, err = s.Get(ctx, "Acme_Missing")
	assert.ErrorIs(t, err, interfaces.ErrReportNotFound)
}

func TestReportStorage_ListByCompany(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, r := range []*models.ReportRecord{
		testRecord("Acme", "Marketing", 5, "run_1"),
		testRecord("Acme", "Technology", 1, "run_1"),
		testRecord("Other", "Technology", 1, "run_1"),
	} {
		_, err := s.Save(ctx, r)
		require.NoError(t, err)
	}

	records, err := s.ListByCompany(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Technology", records[0].Metadata.Section)
	assert.Equal(t, "Marketing", records[1].Metadata.Section)
}

func TestBadgerDB_CompactWithNothingToRewrite(t *testing.T) {
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Compact())
}
