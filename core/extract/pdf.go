package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// Layout tolerances in PDF user-space units, matching the usual pdfplumber
// defaults for text flow.
const (
	DefaultXTolerance = 1.5
	DefaultYTolerance = 3.0
)

// advanceGuess is the assumed glyph advance, as a fraction of the font size,
// for fonts that carry no Widths array.
const advanceGuess = 0.5

// PDFExtractor reads page text from a PDF file.
type PDFExtractor struct {
	XTolerance float64
	YTolerance float64
	logger     *slog.Logger
}

// NewPDF creates a PDFExtractor with the default tolerances.
func NewPDF(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{
		XTolerance: DefaultXTolerance,
		YTolerance: DefaultYTolerance,
		logger:     logger,
	}
}

// Extract returns one string per page, in page order. Pages without text
// yield "". A document with no text at all is an ExtractError.
func (e *PDFExtractor) Extract(ctx context.Context, doc *core.Document) (pages []string, err error) {
	f, r, err := pdf.Open(doc.Path)
	if err != nil {
		return nil, core.ExtractError("failed to open PDF", err)
	}
	defer f.Close()

	// The reader panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = core.ExtractError("failed to parse PDF", fmt.Errorf("%v", rec))
		}
	}()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, core.ExtractError("extraction interrupted", err)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, layoutText(p.Content().Text, e.XTolerance, e.YTolerance))
	}

	if !hasText(pages) {
		return nil, core.ExtractError("no extractable text", fmt.Errorf("%d pages, none with a text layer", n))
	}
	e.logger.Debug("extract.pdf.ok", "path", doc.Path, "pages", n)
	return pages, nil
}

type textLine struct {
	y      float64
	glyphs []pdf.Text
}

// layoutText rebuilds reading order from positioned glyphs: glyphs within
// yTol of each other share a line, lines run top to bottom, glyphs in a
// line run left to right, and a gap wider than xTol becomes a space.
func layoutText(texts []pdf.Text, xTol, yTol float64) string {
	var lines []*textLine
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		var target *textLine
		for _, l := range lines {
			if math.Abs(l.y-t.Y) <= yTol {
				target = l
				break
			}
		}
		if target == nil {
			target = &textLine{y: t.Y}
			lines = append(lines, target)
		}
		target.glyphs = append(target.glyphs, t)
	}

	// PDF y grows upwards.
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var b strings.Builder
	for i, l := range lines {
		sort.SliceStable(l.glyphs, func(a, c int) bool { return l.glyphs[a].X < l.glyphs[c].X })
		if i > 0 {
			b.WriteByte('\n')
		}
		var line strings.Builder
		// Zero-width glyphs from one show operator share an X; runX and
		// runRunes track that run so its extent can be estimated.
		var runX float64
		var runRunes int
		for k, g := range l.glyphs {
			if k > 0 {
				prev := l.glyphs[k-1]
				end := prev.X + prev.W
				if prev.W == 0 {
					end = runX + float64(runRunes)*prev.FontSize*advanceGuess
				}
				if g.X-end > xTol &&
					!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
					line.WriteByte(' ')
				}
			}
			if k == 0 || g.W > 0 || math.Abs(g.X-runX) > xTol {
				runX, runRunes = g.X, 0
			}
			runRunes += utf8.RuneCountInString(g.S)
			line.WriteString(g.S)
		}
		b.WriteString(strings.TrimRight(line.String(), " \t"))
	}
	return strings.TrimSpace(b.String())
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}
