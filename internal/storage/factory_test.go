package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/storage/badger"
	"github.com/ternarybob/bizassess/internal/storage/file"
)

func TestNewReportStorage(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Storage.ReportsDir = filepath.Join(t.TempDir(), "reports")
	config.Storage.Badger.Path = filepath.Join(t.TempDir(), "db")

	s, err := NewReportStorage(arbor.NewLogger(), config)
	require.NoError(t, err)
	assert.IsType(t, &file.ReportStorage{}, s)

	config.Storage.Type = "badger"
	s, err = NewReportStorage(arbor.NewLogger(), config)
	require.NoError(t, err)
	assert.IsType(t, &badger.ReportStorage{}, s)
	require.NoError(t, s.Close())

	config.Storage.Type = "mysql"
	_, err = NewReportStorage(arbor.NewLogger(), config)
	assert.Error(t, err)
}
