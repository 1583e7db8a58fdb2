// Package core defines the analysis pipeline interfaces for ordinancepipe.
// Each stage of the pipeline is a clean, testable interface.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Document is a locally stored copy of a fetched artifact. It is owned by a
// single analysis run and must be released when the run ends.
type Document struct {
	URL         string
	Path        string
	Size        int64
	ContentType string

	releaseOnce sync.Once
	releaseErr  error
}

// NewDocument wraps a local file as a Document.
func NewDocument(url, path string, size int64, contentType string) *Document {
	return &Document{URL: url, Path: path, Size: size, ContentType: contentType}
}

// Release deletes the backing file. Only the first call has an effect.
func (d *Document) Release() error {
	if d == nil {
		return nil
	}
	d.releaseOnce.Do(func() {
		if d.Path == "" {
			return
		}
		if err := os.Remove(d.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.releaseErr = fmt.Errorf("removing %s: %w", d.Path, err)
		}
	})
	return d.releaseErr
}

// ScoreReport maps rubric categories to scores. A valid report always has
// a "total" entry.
type ScoreReport map[string]float64

// TotalKey is the mandatory aggregate entry of a ScoreReport.
const TotalKey = "total"

// Total returns the weighted aggregate and whether it is present.
func (s ScoreReport) Total() (float64, bool) {
	v, ok := s[TotalKey]
	return v, ok
}

// Analysis is the final output of one run.
type Analysis struct {
	URL        string      `json:"url,omitempty"`
	Summary    string      `json:"summary"`
	Scores     ScoreReport `json:"scores"`
	Pages      int         `json:"pages,omitempty"`
	Chunks     int         `json:"chunks,omitempty"`
	AnalyzedAt time.Time   `json:"analyzed_at,omitempty"`
}

// Fetcher retrieves a remote document into local storage.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// Extractor converts a local document into page-level text.
type Extractor interface {
	Extract(ctx context.Context, doc *Document) ([]string, error)
}

// Normalizer converts cleaned HTML into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Chunker partitions pages into bounded-size segments.
type Chunker interface {
	Chunk(pages []string) []string
}

// Completer is a text-in, text-out language model call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Summarizer reduces chunks to one executive summary.
type Summarizer interface {
	Summarize(ctx context.Context, chunks []string) (string, error)
}

// Scorer grades a summary against best-practice descriptions and a flat
// category -> weight map.
type Scorer interface {
	Score(ctx context.Context, summary string, practices map[string]string, weights map[string]float64) (ScoreReport, error)
}

// Renderer converts an Analysis into a final output format.
type Renderer interface {
	Render(analysis *Analysis) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
