package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	coreFont    = "Arial"
	unicodeFont = "report"
	baseSize    = 9.0
)

// Exporter renders markdown reports as A4 PDFs
type Exporter struct {
	fontPath string
	logger   arbor.ILogger
}

// NewExporter creates an exporter. fontPath names a TTF with Hangul glyphs;
// without it the core Arial font is used and non Latin-1 text is lost.
func NewExporter(fontPath string, logger arbor.ILogger) *Exporter {
	return &Exporter{fontPath: fontPath, logger: logger}
}

// Render converts markdown to PDF bytes
func (e *Exporter) Render(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)

	font := coreFont
	translate := doc.UnicodeTranslatorFromDescriptor("")
	if e.fontPath != "" {
		for _, style := range []string{"", "B", "I", "BI"} {
			doc.AddUTF8Font(unicodeFont, style, e.fontPath)
		}
		font = unicodeFont
		translate = func(s string) string { return s }
	}
	if doc.Err() {
		return nil, fmt.Errorf("failed to load font: %w", doc.Error())
	}

	doc.AddPage()
	doc.SetFont(font, "", baseSize)

	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))
	root := md.Parser().Parse(text.NewReader(source))

	r := &renderer{pdf: doc, source: source, font: font, translate: translate}
	if err := r.render(root); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	e.logger.Debug().Int("markdown_len", len(markdown)).Int("pdf_size", buf.Len()).Msg("PDF rendered")
	return buf.Bytes(), nil
}

// Export renders markdown and writes it to path
func (e *Exporter) Export(markdown, title, path string) error {
	data, err := e.Render(markdown, title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	e.logger.Info().Str("path", path).Int("size", len(data)).Msg("PDF report written")
	return nil
}
