// Package normalize implements the Normalizer interface.
// It converts cleaned HTML into Markdown, the text form handed to the
// chunker for ordinances published as web pages.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct{}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// Normalize converts a cleaned HTML fragment into Markdown with runs of
// blank lines collapsed.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(markdown, "\n\n")), nil
}
