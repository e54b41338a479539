package pdf

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const (
	lineHeight   = 5.0
	tableWidth   = 190.0
	tableFont    = 8.0
	tableLine    = 4.0
	maxCellLines = 8
)

// renderer walks the goldmark AST and writes fpdf calls
type renderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	translate func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *renderer) render(node ast.Node) error {
	if err := ast.Walk(node, r.walk); err != nil {
		return err
	}
	return r.pdf.Error()
}

func (r *renderer) setFont(size float64) {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, size)
}

func (r *renderer) write(s string) {
	r.pdf.Write(lineHeight, r.translate(s))
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.pdf.SetFont(r.font, "B", headingSize(node.Level))
		} else {
			r.pdf.Ln(7)
			r.setFont(baseSize)
		}
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case *ast.Blockquote:
		if entering {
			r.pdf.SetTextColor(160, 0, 0)
		} else {
			r.pdf.SetTextColor(0, 0, 0)
		}
	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.write(" ")
			}
		}
	case *ast.AutoLink:
		if entering {
			r.write(string(node.URL(r.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont(baseSize)
	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", baseSize)
			r.write(string(node.Text(r.source)))
			r.setFont(baseSize)
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines().Len(), func(i int) string {
				seg := node.Lines().At(i)
				return string(seg.Value(r.source))
			})
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(lineHeight)
			r.pdf.SetX(10 + float64(r.listLevel)*5)
			r.write("- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(10, r.pdf.GetY(), 200, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(r.tableRows(node))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 12
	case 3:
		return 10.5
	default:
		return 10
	}
}

func (r *renderer) codeBlock(lines int, line func(int) string) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", baseSize)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines; i++ {
		r.pdf.MultiCell(0, lineHeight, r.translate(strings.TrimRight(line(i), "\n")), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.setFont(baseSize)
	r.pdf.Ln(2)
}

func (r *renderer) tableRows(table *extast.Table) [][]string {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader, *extast.TableRow:
				var row []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					row = append(row, strings.TrimSpace(string(cell.Text(r.source))))
				}
				rows = append(rows, row)
			}
		}
	}
	collect(table)
	return rows
}

// table draws bordered rows; the first row is the header
func (r *renderer) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	cols := len(rows[0])
	widths := r.columnWidths(rows, cols)
	_, pageHeight := r.pdf.GetPageSize()
	_, _, _, bottom := r.pdf.GetMargins()

	r.pdf.Ln(2)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.pdf.SetFont(r.font, style, tableFont)

		wrapped := make([][]string, cols)
		lines := 1
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			wrapped[j] = r.wrap(cell, widths[j]-2)
			if len(wrapped[j]) > lines {
				lines = len(wrapped[j])
			}
		}
		if lines > maxCellLines {
			lines = maxCellLines
		}

		height := float64(lines)*tableLine + 2
		if r.pdf.GetY()+height > pageHeight-bottom {
			r.pdf.AddPage()
		}
		x, y := r.pdf.GetX(), r.pdf.GetY()

		for j := 0; j < cols; j++ {
			if i == 0 {
				r.pdf.SetFillColor(230, 230, 230)
				r.pdf.Rect(x, y, widths[j], height, "FD")
			} else {
				r.pdf.Rect(x, y, widths[j], height, "D")
			}
			for k, line := range wrapped[j] {
				if k >= lines {
					break
				}
				r.pdf.SetXY(x+1, y+1+float64(k)*tableLine)
				r.pdf.CellFormat(widths[j]-2, tableLine, r.translate(line), "", 0, "L", false, 0, "")
			}
			x += widths[j]
		}
		r.pdf.SetXY(10, y+height)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(3)
	r.setFont(baseSize)
}

// columnWidths sizes columns to content, capped at a third of the page and
// scaled to fit the page width
func (r *renderer) columnWidths(rows [][]string, cols int) []float64 {
	widths := make([]float64, cols)
	for _, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			if w := r.pdf.GetStringWidth(r.translate(row[j])) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}

	total := 0.0
	for j := range widths {
		widths[j] = clamp(widths[j], 12, tableWidth/3)
		total += widths[j]
	}
	if total > tableWidth {
		for j := range widths {
			widths[j] *= tableWidth / total
		}
	}
	return widths
}

// wrap splits text into lines no wider than width
func (r *renderer) wrap(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if r.pdf.GetStringWidth(r.translate(candidate)) <= width {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
