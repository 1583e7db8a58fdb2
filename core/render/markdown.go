// Package render provides output renderers for an Analysis.
// Markdown is the canonical form; the PDF renderer lays out the same
// sections.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

const reportTitle = "Zoning Ordinance Analysis"

// MarkdownRenderer writes the analysis as a Markdown report.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the report: source, executive summary, score table.
func (r *MarkdownRenderer) Render(a *core.Analysis) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil analysis")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", reportTitle)
	if a.URL != "" {
		fmt.Fprintf(&b, "Source: %s\n", a.URL)
	}
	if !a.AnalyzedAt.IsZero() {
		fmt.Fprintf(&b, "Analyzed: %s\n", a.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n## Executive Summary\n\n")
	b.WriteString(strings.TrimSpace(a.Summary))
	b.WriteString("\n\n## Scores\n\n")
	b.WriteString("| Category | Score |\n|---|---:|\n")
	for _, name := range scoreOrder(a.Scores) {
		label := name
		if name == core.TotalKey {
			label = "**Total**"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", label, formatScore(a.Scores[name]))
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// scoreOrder lists categories alphabetically with the total last.
func scoreOrder(s core.ScoreReport) []string {
	names := make([]string, 0, len(s))
	for name := range s {
		if name != core.TotalKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := s[core.TotalKey]; ok {
		names = append(names, core.TotalKey)
	}
	return names
}

func formatScore(v float64) string {
	return fmt.Sprintf("%g", v)
}
