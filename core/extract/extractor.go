// Package extract implements the Extractor interface.
// PDFs are read page by page with a layout-aware text reader; HTML pages
// (some municipalities only publish their code online) are reduced to
// their main content and converted to Markdown.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gaurav-prasanna/ordinancepipe/core"
	"github.com/gaurav-prasanna/ordinancepipe/core/normalize"
)

// sniffLen is how much of a document is inspected to pick a reader. PDF
// readers accept junk before the header within the first kilobyte.
const sniffLen = 1024

// Extractor picks the PDF or HTML reader for each document.
type Extractor struct {
	pdf    core.Extractor
	html   core.Extractor
	logger *slog.Logger
}

// New creates an Extractor with the default readers.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		pdf:    NewPDF(logger),
		html:   NewHTML(normalize.New()),
		logger: logger,
	}
}

// Extract returns the page sequence of doc.
func (e *Extractor) Extract(ctx context.Context, doc *core.Document) ([]string, error) {
	kind, err := sniff(doc)
	if err != nil {
		return nil, core.ExtractError("failed to read document", err)
	}
	e.logger.Debug("extract.dispatch", "path", doc.Path, "kind", kind, "content_type", doc.ContentType)
	if kind == "html" {
		return e.html.Extract(ctx, doc)
	}
	return e.pdf.Extract(ctx, doc)
}

// sniff returns "pdf" or "html". Anything unrecognised goes to the PDF
// reader, which reports a proper parse error.
func sniff(doc *core.Document) (string, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", doc.Path, err)
	}
	head = head[:n]

	if bytes.Contains(head, []byte("%PDF-")) {
		return "pdf", nil
	}
	ct := doc.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(head)
	}
	if strings.HasPrefix(ct, "text/html") || ct == "application/xhtml+xml" {
		return "html", nil
	}
	return "pdf", nil
}
