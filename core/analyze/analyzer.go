// Package analyze sequences the pipeline stages for one document:
// fetch, extract, chunk, summarize, score.
package analyze

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// Analyzer runs one document through the pipeline. It holds no per-run state
// and may be shared between concurrent runs.
type Analyzer struct {
	Fetcher    core.Fetcher
	Extractor  core.Extractor
	Chunker    core.Chunker
	Summarizer core.Summarizer
	Scorer     core.Scorer
	Logger     *slog.Logger

	now func() time.Time
}

// New wires the stages together.
func New(f core.Fetcher, e core.Extractor, c core.Chunker, s core.Summarizer, sc core.Scorer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		Fetcher:    f,
		Extractor:  e,
		Chunker:    c,
		Summarizer: s,
		Scorer:     sc,
		Logger:     logger,
		now:        time.Now,
	}
}

// Run analyzes the document at url. The fetched document is released before
// Run returns, whatever the outcome. Every returned error is a *core.Error.
func (a *Analyzer) Run(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
	runID := uuid.New().String()
	log := a.Logger.With("run_id", runID, "url", url)
	start := time.Now()

	doc, err := a.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, a.fail(log, "fetch", core.Ensure(err, core.KindFetch, "failed to download PDF"))
	}
	defer func() {
		if err := doc.Release(); err != nil {
			log.Warn("analyze.release_failed", "path", doc.Path, "error", err)
		}
	}()
	log.Info("analyze.fetched", "bytes", doc.Size, "content_type", doc.ContentType)

	pages, err := a.Extractor.Extract(ctx, doc)
	if err != nil {
		return nil, a.fail(log, "extract", core.Ensure(err, core.KindExtract, "failed to extract text"))
	}
	log.Info("analyze.extracted", "pages", len(pages))

	chunks := a.Chunker.Chunk(pages)
	if len(chunks) == 0 {
		return nil, a.fail(log, "chunk", core.ExtractError("no extractable text", errors.New("document produced no chunks")))
	}
	log.Info("analyze.chunked", "chunks", len(chunks))

	summary, err := a.Summarizer.Summarize(ctx, chunks)
	if err != nil {
		return nil, a.fail(log, "summarize", core.Ensure(err, core.KindSummarize, "LLM summarisation failed"))
	}
	log.Info("analyze.summarized", "chars", len(summary))

	scores, err := a.Scorer.Score(ctx, summary, rubric.Practices(), rubric.Weights())
	if err != nil {
		return nil, a.fail(log, "score", core.Ensure(err, core.KindScore, "LLM scoring failed"))
	}
	if _, ok := scores.Total(); !ok {
		return nil, a.fail(log, "score", core.ScoringError("LLM scoring failed", errors.New("missing 'total' in score output")))
	}

	log.Info("analyze.ok", "elapsed_ms", time.Since(start).Milliseconds())
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return &core.Analysis{
		URL:        url,
		Summary:    summary,
		Scores:     scores,
		Pages:      len(pages),
		Chunks:     len(chunks),
		AnalyzedAt: now().UTC(),
	}, nil
}

func (a *Analyzer) fail(log *slog.Logger, stage string, err error) error {
	log.Error("analyze.failed", "stage", stage, "kind", core.KindOf(err), "error", err)
	return err
}
