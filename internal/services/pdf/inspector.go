package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
)

// Inspector checks that a business plan is a readable PDF
type Inspector struct {
	logger arbor.ILogger
}

// NewInspector creates a PDF inspector
func NewInspector(logger arbor.ILogger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect returns the page count of the PDF at path. Other document types
// are only checked for existence and report zero pages.
func (i *Inspector) Inspect(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}

	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		i.logger.Debug().Str("path", path).Msg("Not a PDF, page count skipped")
		return 0, nil
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if pdfCtx.PageCount == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}

	i.logger.Debug().Str("path", path).Int("pages", pdfCtx.PageCount).Int64("size", info.Size()).Msg("PDF inspected")
	return pdfCtx.PageCount, nil
}
