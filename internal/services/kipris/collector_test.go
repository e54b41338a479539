package kipris

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
)

// fakeFetcher writes a workbook into the download dir and remembers the dir
type fakeFetcher struct {
	t        *testing.T
	workbook bool
	html     string
	err      error
	dir      string
	exprs    []string
}

func (f *fakeFetcher) fetch(ctx context.Context, expression, dir string) (*fetchResult, error) {
	f.dir = dir
	f.exprs = append(f.exprs, expression)
	result := &fetchResult{HTML: f.html}
	if f.workbook {
		result.WorkbookPath = writeWorkbook(f.t, dir, "")
	}
	return result, f.err
}

func newTestCollector(t *testing.T, f *fakeFetcher) *Collector {
	return &Collector{
		config:  common.KiprisConfig{DownloadDir: t.TempDir(), Timeout: "10s"},
		fetcher: f,
		logger:  arbor.NewLogger(),
	}
}

func TestCollector_Workbook(t *testing.T) {
	f := &fakeFetcher{t: t, workbook: true}
	c := newTestCollector(t, f)

	aggregates, err := c.Collect(context.Background(), "G06Q50/16*G06T19/00")
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2022}, aggregates.Application.Years)
	assert.Equal(t, []string{"G06Q50/16*G06T19/00"}, f.exprs)

	_, statErr := os.Stat(f.dir)
	assert.True(t, os.IsNotExist(statErr), "download dir is removed")
}

func TestCollector_FallsBackToPage(t *testing.T) {
	f := &fakeFetcher{t: t, html: testStatisticsPage, err: errors.New("waiting for workbook download: deadline exceeded")}
	c := newTestCollector(t, f)

	aggregates, err := c.Collect(context.Background(), "G06Q50/16")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, aggregates.Application.Values)
}

func TestCollector_Errors(t *testing.T) {
	c := newTestCollector(t, &fakeFetcher{t: t})
	_, err := c.Collect(context.Background(), " ")
	assert.Error(t, err)

	c = newTestCollector(t, &fakeFetcher{t: t, err: errors.New("chrome not found")})
	_, err = c.Collect(context.Background(), "G06Q50/16")
	assert.ErrorContains(t, err, "KIPRIS statistics download failed (IPC=G06Q50/16)")

	c = newTestCollector(t, &fakeFetcher{t: t})
	_, err = c.Collect(context.Background(), "G06Q50/16")
	assert.ErrorContains(t, err, "no statistics")
}
