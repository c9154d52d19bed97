package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	utf8Family = "report"
	coreFamily = "Arial"
	bodySize   = 10.0
	lineHeight = 5.0
	margin     = 15.0
)

// newDocument creates an A4 document. With a font path the TrueType font is
// registered for every style so CJK text renders; otherwise the core font is
// used and text is translated to cp1252.
func newDocument(fontPath, title string) (*fpdf.Fpdf, string, func(string) string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("MarketLens", true)

	if fontPath == "" {
		return pdf, coreFamily, pdf.UnicodeTranslatorFromDescriptor(""), nil
	}

	for _, style := range []string{"", "B", "I", "BI"} {
		pdf.AddUTF8Font(utf8Family, style, fontPath)
	}
	if err := pdf.Error(); err != nil {
		return nil, "", nil, fmt.Errorf("failed to load font %s: %w", fontPath, err)
	}
	return pdf, utf8Family, func(s string) string { return s }, nil
}

// renderPDF lays out Markdown (front matter removed) on A4 pages
func renderPDF(markdown, title, fontPath string) ([]byte, error) {
	pdf, family, tr, err := newDocument(fontPath, title)
	if err != nil {
		return nil, err
	}
	pdf.AddPage()
	pdf.SetFont(family, "", bodySize)

	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify))
	source := []byte(stripFrontMatter(markdown))
	doc := md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{pdf: pdf, source: source, family: family, tr: tr}
	if err := ast.Walk(doc, w.walk); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	source []byte
	family string
	tr     func(string) string

	size     float64
	bold     bool
	italic   bool
	counters []int // one per open list; 0 for bullet lists
}

func (w *pdfWriter) setFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	size := w.size
	if size == 0 {
		size = bodySize
	}
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) write(s string) {
	w.pdf.Write(lineHeight, w.tr(s))
}

func (w *pdfWriter) newline() {
	if w.pdf.GetX() > margin+0.1 {
		w.pdf.Ln(lineHeight)
	}
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.newline()
			w.pdf.Ln(3)
			w.bold = true
			w.size = headingSize(node.Level)
		} else {
			w.pdf.Ln(lineHeight + 2)
			w.bold = false
			w.size = bodySize
		}
		w.setFont()

	case *ast.Paragraph:
		if !entering && len(w.counters) == 0 {
			w.pdf.Ln(lineHeight + 2)
		}

	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			switch {
			case node.HardLineBreak():
				w.pdf.Ln(lineHeight)
			case node.SoftLineBreak():
				w.write(" ")
			}
		}

	case *ast.String:
		if entering {
			w.write(string(node.Value))
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setFont()

	case *ast.CodeSpan:
		if entering {
			w.write(plainText(node, w.source))
		}
		return ast.WalkSkipChildren, nil

	case *ast.AutoLink:
		if entering {
			w.write(string(node.URL(w.source)))
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			start := 0
			if node.IsOrdered() {
				start = node.Start
			}
			w.counters = append(w.counters, start)
		} else {
			w.counters = w.counters[:len(w.counters)-1]
			if len(w.counters) == 0 {
				w.pdf.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			w.newline()
			depth := len(w.counters)
			w.pdf.SetX(margin + float64(depth-1)*5)
			if next := w.counters[depth-1]; next > 0 {
				w.write(fmt.Sprintf("%d. ", next))
				w.counters[depth-1]++
			} else {
				w.write("- ")
			}
		} else {
			w.newline()
		}

	case *ast.ThematicBreak:
		if entering {
			w.newline()
			pageWidth, _ := w.pdf.GetPageSize()
			y := w.pdf.GetY() + 2
			w.pdf.Line(margin, y, pageWidth-margin, y)
			w.pdf.Ln(4)
		}

	case *extast.Table:
		if entering {
			w.table(tableRows(node, w.source))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 13
	case 3:
		return 11.5
	default:
		return 10.5
	}
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.newline()
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		w.pdf.MultiCell(0, lineHeight, w.tr(strings.TrimRight(string(line.Value(w.source)), "\n")), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.pdf.Ln(2)
}

// plainText concatenates the text beneath a node
func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func tableRows(table *extast.Table, source []byte) [][]string {
	var rows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			var row []string
			for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
				row = append(row, plainText(cell, source))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// table draws bordered rows; the first row is the header. Column widths
// follow the widest cell and are scaled to the printable width.
func (w *pdfWriter) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	const cellPad = 1.5
	const fontSize = 8.5
	const rowLine = 4.0

	w.newline()
	pageWidth, pageHeight := w.pdf.GetPageSize()
	avail := pageWidth - 2*margin
	cols := len(rows[0])

	w.pdf.SetFont(w.family, "B", fontSize)
	widths := make([]float64, cols)
	total := 0.0
	for _, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			if cw := w.pdf.GetStringWidth(w.tr(row[j])) + 2*cellPad; cw > widths[j] {
				widths[j] = cw
			}
		}
	}
	for j := range widths {
		widths[j] = min(max(widths[j], 15), avail/2)
		total += widths[j]
	}
	for j := range widths {
		widths[j] *= avail / total
	}

	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		w.pdf.SetFont(w.family, style, fontSize)

		wrapped := make([][]string, cols)
		lines := 1
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			wrapped[j] = w.wrap(cell, widths[j]-2*cellPad)
			lines = max(lines, len(wrapped[j]))
		}
		height := float64(lines)*rowLine + 2*cellPad

		y := w.pdf.GetY()
		if y+height > pageHeight-margin {
			w.pdf.AddPage()
			y = w.pdf.GetY()
		}

		x := margin
		for j := 0; j < cols; j++ {
			if i == 0 {
				w.pdf.SetFillColor(230, 230, 230)
				w.pdf.Rect(x, y, widths[j], height, "FD")
			} else {
				w.pdf.Rect(x, y, widths[j], height, "D")
			}
			for k, line := range wrapped[j] {
				w.pdf.SetXY(x+cellPad, y+cellPad+float64(k)*rowLine)
				w.pdf.CellFormat(widths[j]-2*cellPad, rowLine, w.tr(line), "", 0, "L", false, 0, "")
			}
			x += widths[j]
		}
		w.pdf.SetXY(margin, y+height)
	}

	w.pdf.SetFillColor(255, 255, 255)
	w.pdf.Ln(3)
	w.setFont()
}

// wrap splits text into lines no wider than width. Words longer than a line,
// including unspaced CJK runs, are broken between runes.
func (w *pdfWriter) wrap(s string, width float64) []string {
	fits := func(line string) bool { return w.pdf.GetStringWidth(w.tr(line)) <= width }

	var lines []string
	current := ""
	for _, word := range strings.Fields(s) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if fits(candidate) {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		for !fits(word) && utf8.RuneCountInString(word) > 1 {
			cut := len(word)
			for cut > 0 && !fits(word[:cut]) {
				_, size := utf8.DecodeLastRuneInString(word[:cut])
				cut -= size
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(word)
			}
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		current = word
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}

// stripFrontMatter removes a leading YAML block delimited by --- lines
func stripFrontMatter(markdown string) string {
	rest, ok := strings.CutPrefix(markdown, "---\n")
	if !ok {
		return markdown
	}
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		return markdown
	}
	return strings.TrimSpace(rest[end+len("\n---\n"):])
}
