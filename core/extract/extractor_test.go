package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/ledongthuc/pdf"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// writePDF renders one page per entry; "" produces a blank page.
func writePDF(t *testing.T, pages ...string) *core.Document {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		if text != "" {
			doc.Cell(0, 10, text)
		}
	}
	path := filepath.Join(t.TempDir(), "ordinance.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("writing test PDF: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return core.NewDocument("file://"+path, path, info.Size(), "application/pdf")
}

func TestPDFExtractor_PreservesPageOrder(t *testing.T) {
	doc := writePDF(t, "Article 1 Zoning Districts", "", "Article 2 Parking")

	pages, err := New(nil).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d: %q", len(pages), pages)
	}
	if !strings.Contains(pages[0], "Zoning") {
		t.Errorf("page 1 = %q", pages[0])
	}
	if pages[1] != "" {
		t.Errorf("blank page should be empty, got %q", pages[1])
	}
	if !strings.Contains(pages[2], "Parking") {
		t.Errorf("page 3 = %q", pages[2])
	}
}

func TestPDFExtractor_NoTextLayer(t *testing.T) {
	doc := writePDF(t, "", "")

	_, err := NewPDF(nil).Extract(context.Background(), doc)
	if !errors.Is(err, core.ErrExtract) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
	if !strings.Contains(err.Error(), "no extractable text") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestExtractor_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf at all"), 0644); err != nil {
		t.Fatal(err)
	}
	doc := core.NewDocument("http://example.com/broken.pdf", path, 24, "")

	_, err := New(nil).Extract(context.Background(), doc)
	if !errors.Is(err, core.ErrExtract) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
}

func TestExtractor_HTMLPage(t *testing.T) {
	html := `<html><head><title>Code</title></head><body>
<nav>Home | Contact</nav>
<main><h1>Chapter 5 Zoning</h1><p>Minimum front setbacks are 20 feet.</p></main>
<footer>Copyright</footer></body></html>`
	path := filepath.Join(t.TempDir(), "code.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatal(err)
	}
	doc := core.NewDocument("http://example.com/code", path, int64(len(html)), "text/html")

	pages, err := New(nil).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected one page, got %d", len(pages))
	}
	if !strings.Contains(pages[0], "setbacks are 20 feet") {
		t.Errorf("missing body text: %q", pages[0])
	}
	if strings.Contains(pages[0], "Contact") || strings.Contains(pages[0], "Copyright") {
		t.Errorf("navigation noise leaked: %q", pages[0])
	}
}

func TestExtractor_EmptyHTMLPage(t *testing.T) {
	html := `<html><body><nav>only navigation</nav></body></html>`
	path := filepath.Join(t.TempDir(), "empty.html")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatal(err)
	}
	doc := core.NewDocument("http://example.com/", path, int64(len(html)), "text/html")

	_, err := New(nil).Extract(context.Background(), doc)
	if !errors.Is(err, core.ErrExtract) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
}

func TestLayoutText_LinesAndGaps(t *testing.T) {
	glyphs := []pdf.Text{
		// second line, emitted first
		{X: 10, Y: 680, W: 5, S: "B"},
		// first line with a word gap and slight baseline jitter
		{X: 10, Y: 700, W: 5, S: "H"},
		{X: 15, Y: 701, W: 5, S: "i"},
		{X: 30, Y: 700, W: 5, S: "Z"},
		{X: 35, Y: 699, W: 5, S: "o"},
	}
	got := layoutText(glyphs, DefaultXTolerance, DefaultYTolerance)
	if got != "Hi Zo\nB" {
		t.Errorf("layoutText = %q", got)
	}
}

func TestLayoutText_ZeroWidthKeepsStreamOrder(t *testing.T) {
	glyphs := []pdf.Text{
		{X: 10, Y: 700, S: "a"},
		{X: 10, Y: 700, S: "b"},
		{X: 10, Y: 700, S: " "},
		{X: 10, Y: 700, S: "c"},
	}
	if got := layoutText(glyphs, DefaultXTolerance, DefaultYTolerance); got != "ab c" {
		t.Errorf("layoutText = %q", got)
	}
}

func TestPDFExtractor_SeparatesCellsOnOneLine(t *testing.T) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.SetXY(10, 20)
	doc.Cell(40, 10, "Setback")
	doc.SetX(60)
	doc.Cell(40, 10, "Requirements")
	doc.Ln(10)
	doc.Cell(0, 10, "Article 1 Zoning Districts")
	path := filepath.Join(t.TempDir(), "table.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("writing test PDF: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	pages, err := NewPDF(nil).Extract(context.Background(), core.NewDocument("file://"+path, path, info.Size(), "application/pdf"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if !strings.Contains(pages[0], "Setback Requirements") {
		t.Errorf("cells merged or lost: %q", pages[0])
	}
	if strings.Contains(pages[0], "SetbackRequirements") {
		t.Errorf("cells merged: %q", pages[0])
	}
	if !strings.Contains(pages[0], "Article 1 Zoning Districts") {
		t.Errorf("second line = %q", pages[0])
	}
}

func TestLayoutText_ZeroWidthRunsSplitOnGap(t *testing.T) {
	var glyphs []pdf.Text
	for _, r := range "Lot" {
		glyphs = append(glyphs, pdf.Text{X: 50, Y: 700, FontSize: 10, S: string(r)})
	}
	// "Lot" spans roughly 15 units from x=50; the next run starts well past it.
	for _, r := range "Area" {
		glyphs = append(glyphs, pdf.Text{X: 120, Y: 700, FontSize: 10, S: string(r)})
	}
	// Per-glyph placement at about the estimated advance stays one word.
	for i, r := range "Use" {
		glyphs = append(glyphs, pdf.Text{X: 200 + float64(i)*5.5, Y: 700, FontSize: 10, S: string(r)})
	}
	if got := layoutText(glyphs, DefaultXTolerance, DefaultYTolerance); got != "Lot Area Use" {
		t.Errorf("layoutText = %q", got)
	}
}
