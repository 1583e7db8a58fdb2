package cmd

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/ordinancepipe/config"
	"github.com/gaurav-prasanna/ordinancepipe/core"
	"github.com/gaurav-prasanna/ordinancepipe/core/analyze"
	"github.com/gaurav-prasanna/ordinancepipe/core/chunk"
	"github.com/gaurav-prasanna/ordinancepipe/core/extract"
	"github.com/gaurav-prasanna/ordinancepipe/core/fetch"
	"github.com/gaurav-prasanna/ordinancepipe/core/llm"
	"github.com/gaurav-prasanna/ordinancepipe/core/score"
	"github.com/gaurav-prasanna/ordinancepipe/core/summarize"
)

// newCompleter builds the configured provider. webSearch is honored where
// the provider supports it.
func newCompleter(ctx context.Context, c *config.Config, webSearch bool) (core.Completer, error) {
	return llm.New(ctx, llm.Config{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		APIKey:    c.LLM.APIKey(),
		BaseURL:   c.LLM.BaseURL(),
		MaxTokens: c.LLM.MaxTokens,
		Timeout:   c.LLM.Timeout,
		WebSearch: webSearch,
	}, logger)
}

// newFetcher returns the plain fetcher, or the browser-session fetcher when
// FETCH_MODE=browser.
func newFetcher(c *config.Config) core.Fetcher {
	httpFetcher := fetch.New(
		fetch.WithTimeout(c.Fetch.Timeout),
		fetch.WithMaxBytes(c.Fetch.MaxBytes),
		fetch.WithLogger(logger),
	)
	if c.Fetch.Mode == "browser" {
		return fetch.NewBrowser(httpFetcher, fetch.WithExecPath(c.Fetch.ChromePath))
	}
	return httpFetcher
}

// newAnalyzer wires the full pipeline around completer.
func newAnalyzer(c *config.Config, completer core.Completer) (*analyze.Analyzer, error) {
	chunker, err := chunk.New(c.Chunk.Strategy, c.Chunk.Size)
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}
	return analyze.New(
		newFetcher(c),
		extract.New(logger),
		chunker,
		summarize.New(completer, logger),
		score.New(completer, logger),
		logger,
	), nil
}

// closeCompleter releases provider resources when the completer holds any.
func closeCompleter(c core.Completer) {
	if cl, ok := c.(interface{ Close() error }); ok {
		if err := cl.Close(); err != nil {
			logger.Warn("llm.close_failed", "error", err)
		}
	}
}
