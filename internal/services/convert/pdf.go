package convert

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"

	"github.com/TheMichaelB/remarksync/internal/config"
)

// headingScale maps heading level to a font size multiplier.
var headingScale = [7]float64{1, 2.0, 1.6, 1.35, 1.2, 1.1, 1.0}

// ptToMM converts a point size into millimeters for line heights.
const ptToMM = 25.4 / 72.0

// pdfRenderer walks a parsed markdown tree and emits pages through fpdf.
type pdfRenderer struct {
	pdf      *fpdf.Fpdf
	cfg      *config.ConvertConfig
	baseSize float64
	lineH    float64
}

func newPDFRenderer(cfg *config.ConvertConfig, title string, meta DocMetadata) *pdfRenderer {
	pdf := fpdf.New("P", "mm", cfg.PageSize, "")
	pdf.SetMargins(cfg.MarginMM, cfg.MarginMM, cfg.MarginMM)
	pdf.SetAutoPageBreak(true, cfg.MarginMM)
	pdf.SetTitle(title, true)
	if meta.Author != "" {
		pdf.SetAuthor(meta.Author, true)
	}
	if len(meta.Tags) > 0 {
		pdf.SetKeywords(strings.Join(meta.Tags, ", "), true)
	}
	pdf.AddPage()

	return &pdfRenderer{
		pdf:      pdf,
		cfg:      cfg,
		baseSize: cfg.FontSize,
		lineH:    cfg.FontSize * cfg.LineHeight * ptToMM,
	}
}

// render walks the document tree top to bottom. Inline styling is
// flattened to plain text; block structure is preserved.
func (r *pdfRenderer) render(doc ast.Node, source []byte) error {
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if err := r.renderBlock(node, source, 0); err != nil {
			return err
		}
	}
	return r.pdf.Error()
}

func (r *pdfRenderer) renderBlock(node ast.Node, source []byte, indent float64) error {
	switch n := node.(type) {
	case *ast.Heading:
		r.writeHeading(n, source)
	case *ast.Paragraph, *ast.TextBlock:
		r.writeBody(collectText(node, source), indent, "")
		r.pdf.Ln(r.lineH / 2)
	case *ast.FencedCodeBlock:
		r.writeCode(codeLines(n, source), indent)
	case *ast.CodeBlock:
		r.writeCode(codeLines(n, source), indent)
	case *ast.List:
		r.writeList(n, source, indent)
	case *ast.Blockquote:
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if err := r.renderBlock(child, source, indent+8); err != nil {
				return err
			}
		}
	case *ast.ThematicBreak:
		r.writeRule()
	case *extast.Table:
		r.writeTable(n, source, indent)
	default:
		if text := collectText(node, source); text != "" {
			r.writeBody(text, indent, "")
			r.pdf.Ln(r.lineH / 2)
		}
	}
	return r.pdf.Error()
}

func (r *pdfRenderer) writeHeading(n *ast.Heading, source []byte) {
	level := n.Level
	if level < 1 || level > 6 {
		level = 6
	}
	size := r.baseSize * headingScale[level]
	r.pdf.SetFont(r.cfg.FontFamily, "B", size)
	r.pdf.MultiCell(0, size*r.cfg.LineHeight*ptToMM, collectText(n, source), "", "L", false)
	r.pdf.Ln(r.lineH / 2)
}

func (r *pdfRenderer) writeBody(text string, indent float64, style string) {
	if text == "" {
		return
	}
	r.pdf.SetFont(r.cfg.FontFamily, style, r.baseSize)
	r.pdf.SetX(r.cfg.MarginMM + indent)
	width := r.contentWidth() - indent
	r.pdf.MultiCell(width, r.lineH, text, "", "L", false)
}

func (r *pdfRenderer) writeCode(lines []string, indent float64) {
	r.pdf.SetFont("Courier", "", r.baseSize*0.9)
	width := r.contentWidth() - indent
	for _, line := range lines {
		r.pdf.SetX(r.cfg.MarginMM + indent)
		r.pdf.MultiCell(width, r.lineH, line, "", "L", false)
	}
	r.pdf.Ln(r.lineH / 2)
}

func (r *pdfRenderer) writeList(list *ast.List, source []byte, indent float64) {
	counter := list.Start
	if counter == 0 {
		counter = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d. ", counter)
			counter++
		}
		first := true
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			switch c := child.(type) {
			case *ast.List:
				r.writeList(c, source, indent+6)
			default:
				text := collectText(child, source)
				if first {
					text = marker + text
					first = false
				}
				r.writeBody(text, indent, "")
			}
		}
	}
	if indent == 0 {
		r.pdf.Ln(r.lineH / 2)
	}
}

func (r *pdfRenderer) writeTable(table *extast.Table, source []byte, indent float64) {
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, collectText(cell, source))
		}
		style := ""
		if _, ok := row.(*extast.TableHeader); ok {
			style = "B"
		}
		r.writeBody(strings.Join(cells, "  |  "), indent, style)
	}
	r.pdf.Ln(r.lineH / 2)
}

func (r *pdfRenderer) writeRule() {
	y := r.pdf.GetY() + r.lineH/2
	r.pdf.Line(r.cfg.MarginMM, y, r.cfg.MarginMM+r.contentWidth(), y)
	r.pdf.SetY(y + r.lineH/2)
}

func (r *pdfRenderer) contentWidth() float64 {
	pageWidth, _ := r.pdf.GetPageSize()
	return pageWidth - 2*r.cfg.MarginMM
}

// write finalizes the document to disk.
func (r *pdfRenderer) write(outPath string) error {
	return r.pdf.OutputFileAndClose(outPath)
}

// collectText flattens a node's inline content to plain text. Soft and
// hard breaks become spaces so paragraphs wrap on page width instead
// of source line width.
func collectText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// codeLines returns the raw lines of a code block.
func codeLines(node ast.Node, source []byte) []string {
	lines := make([]string, 0, node.Lines().Len())
	for i := 0; i < node.Lines().Len(); i++ {
		seg := node.Lines().At(i)
		lines = append(lines, strings.TrimRight(string(seg.Value(source)), "\n"))
	}
	return lines
}
