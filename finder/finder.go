// Package finder asks a web-search capable model for the link to a city's
// current zoning ordinance.
package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// ErrNotFound is returned when the response carries no ordinance block.
var ErrNotFound = errors.New("no zoning ordinance information found in response")

// ErrIncomplete is returned when the block lacks a city or a link.
var ErrIncomplete = errors.New("could not find zoning ordinance information")

// Result is the parsed <zoning_ordinance> block.
type Result struct {
	City     string `json:"city"`
	Link     string `json:"link"`
	FileType string `json:"file_type"`
	Notes    string `json:"notes,omitempty"`
}

// IsPDF reports whether the model classified the link as a PDF.
func (r Result) IsPDF() bool {
	return strings.Contains(strings.ToLower(r.FileType), "pdf") ||
		strings.HasSuffix(strings.ToLower(r.Link), ".pdf")
}

// Finder turns a city name into a Result.
type Finder struct {
	llm    core.Completer
	logger *slog.Logger
}

// New creates a Finder. llm should have web search enabled.
func New(llm core.Completer, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{llm: llm, logger: logger}
}

// Find searches for city's ordinance. The result always has a city and a
// link; otherwise ErrIncomplete is returned.
func (f *Finder) Find(ctx context.Context, city string) (*Result, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.New("city name cannot be empty")
	}

	raw, err := f.llm.Complete(ctx, Prompt(city))
	if err != nil {
		return nil, fmt.Errorf("searching for %s ordinance: %w", city, err)
	}

	res, err := Parse(raw)
	if err != nil {
		f.logger.Warn("finder.parse_failed", "city", city, "error", err)
		return nil, err
	}
	if res.City == "" || res.Link == "" {
		f.logger.Warn("finder.incomplete", "city", city, "notes", res.Notes)
		return res, ErrIncomplete
	}
	f.logger.Info("finder.ok", "city", res.City, "link", res.Link, "file_type", res.FileType)
	return res, nil
}

var (
	blockRe = regexp.MustCompile(`(?s)<zoning_ordinance>(.*?)</zoning_ordinance>`)
	fieldRe = map[string]*regexp.Regexp{}
)

func init() {
	for _, name := range []string{"city", "link", "file_type", "notes"} {
		fieldRe[name] = regexp.MustCompile(`(?s)<` + name + `>(.*?)</` + name + `>`)
	}
}

// Parse extracts the first <zoning_ordinance> block from raw. Missing
// fields are left empty.
func Parse(raw string) (*Result, error) {
	m := blockRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, ErrNotFound
	}
	block := m[1]
	field := func(name string) string {
		fm := fieldRe[name].FindStringSubmatch(block)
		if fm == nil {
			return ""
		}
		return strings.TrimSpace(fm[1])
	}
	return &Result{
		City:     field("city"),
		Link:     field("link"),
		FileType: field("file_type"),
		Notes:    field("notes"),
	}, nil
}

// Prompt builds the search instructions for city.
func Prompt(city string) string {
	return strings.ReplaceAll(promptTemplate, "{city}", city)
}

const promptTemplate = `You are tasked with finding the most recent version of a city's zoning ordinance, code, or bylaw for development. Your goal is to return a concise result with a working web link to the document, preferably in PDF format.

The city name you will be searching for is:
<city_name>
{city}
</city_name>

Follow these steps to complete the task:

1. Search the web for the zoning ordinance of the specified city. Use search terms like:
   - "{city} zoning ordinance filetype:pdf"
   - "{city} zoning code official"
   - "{city} municipal code zoning"

2. Look for official government websites (.gov domains preferred)

3. Verify that you have found the most recent version of the ordinance by:
   - Checking the date of publication or last update
   - Looking for mentions of recent amendments or revisions
   - Ensuring it's the comprehensive city-wide ordinance, not just a district-specific document

4. Prioritize:
   - Direct PDF links over web pages
   - Official city/government websites over third-party sites
   - Recent documents over archived versions

5. If you find multiple versions, explain your reasoning for selecting the most recent/official one

Return your findings in the following format:

<zoning_ordinance>
<city>{city}</city>
<link>Insert the direct link to the ordinance document here</link>
<file_type>Specify whether it's a PDF, web page, or other format</file_type>
<notes>Include brief notes about the document, its date, or your search process if relevant</notes>
</zoning_ordinance>

If you cannot find a reliable zoning ordinance, explain the issue in the <notes> section and suggest alternatives like contacting the city directly.

Use the web search tool to find current, accurate information. Do not rely on your training data for specific document links.
`
