package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// noiseSelectors are HTML elements removed before extraction.
// These contribute no meaningful content to the ordinance text.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	".breadcrumb", ".cookie-banner",
}

// HTMLExtractor handles ordinances published as web pages rather than
// PDFs. The whole page becomes a single Markdown "page".
type HTMLExtractor struct {
	normalizer core.Normalizer
}

// NewHTML creates an HTMLExtractor that normalizes through n.
func NewHTML(n core.Normalizer) *HTMLExtractor {
	return &HTMLExtractor{normalizer: n}
}

// Extract reads the document, isolates the main content and returns it as
// Markdown.
func (e *HTMLExtractor) Extract(ctx context.Context, doc *core.Document) ([]string, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return nil, core.ExtractError("failed to open HTML document", err)
	}
	defer f.Close()

	// Decode to UTF-8 using the declared or sniffed charset.
	r, err := charset.NewReader(f, doc.ContentType)
	if err != nil {
		return nil, core.ExtractError("failed to decode HTML document", err)
	}
	page, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, core.ExtractError("failed to parse HTML document", err)
	}

	fragment, err := MainContent(page)
	if err != nil {
		return nil, core.ExtractError("failed to isolate page content", err)
	}
	markdown, err := e.normalizer.Normalize(fragment)
	if err != nil {
		return nil, core.ExtractError("failed to normalize HTML document", err)
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, core.ExtractError("no extractable text", fmt.Errorf("empty page at %s", doc.URL))
	}
	return []string{strings.TrimSpace(markdown)}, nil
}

// MainContent strips noise from a parsed page and returns the HTML of the
// best content container.
func MainContent(doc *goquery.Document) (string, error) {
	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	if content == nil {
		return "", fmt.Errorf("no content container found in HTML")
	}

	result, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}
	return result, nil
}
