// Package summarize reduces a chunk sequence to one executive summary with
// a map step (one call per chunk) and a reduce step (one merge call).
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

const (
	chunkPrompt = "Summarize this zoning ordinance segment in ≤250 words:\n\n"
	mergePrompt = "Combine the following partial summaries into one coherent, non‑redundant executive summary (≤400 words):\n\n"
)

// Summarizer issues len(chunks)+1 completion calls, in chunk order.
type Summarizer struct {
	llm    core.Completer
	logger *slog.Logger
}

// New creates a Summarizer backed by llm.
func New(llm core.Completer, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{llm: llm, logger: logger}
}

// ChunkPrompt returns the prompt used for one segment.
func ChunkPrompt(chunk string) string {
	return chunkPrompt + chunk
}

// MergePrompt returns the prompt that combines the partial summaries.
func MergePrompt(partials []string) string {
	return mergePrompt + strings.Join(partials, "\n\n")
}

// Summarize returns the merge call's output verbatim. The first failing call
// aborts the run and the partial summaries are discarded.
func (s *Summarizer) Summarize(ctx context.Context, chunks []string) (string, error) {
	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.llm.Complete(ctx, ChunkPrompt(chunk))
		if err != nil {
			return "", core.SummarizationError("LLM summarisation failed",
				fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err))
		}
		partials = append(partials, out)
		s.logger.Debug("summarize.chunk", "index", i, "chars", len(out))
	}

	summary, err := s.llm.Complete(ctx, MergePrompt(partials))
	if err != nil {
		return "", core.SummarizationError("LLM summarisation failed", fmt.Errorf("merge: %w", err))
	}
	s.logger.Info("summarize.ok", "chunks", len(chunks), "chars", len(summary))
	return summary, nil
}
