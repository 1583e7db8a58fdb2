// Package score grades an executive summary against a rubric. The model does
// the weighting; this package only builds the prompt and checks the output.
package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// Scorer asks a Completer for a JSON score report.
type Scorer struct {
	llm    core.Completer
	logger *slog.Logger
}

// New creates a Scorer backed by llm.
func New(llm core.Completer, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{llm: llm, logger: logger}
}

// Prompt builds the scoring prompt. Without descriptions the weighted
// category names stand in for the practices.
func Prompt(summary string, practices map[string]string, weights map[string]float64) (string, error) {
	var listed any = practices
	if len(practices) == 0 {
		names := make([]string, 0, len(weights))
		for name := range weights {
			names = append(names, name)
		}
		sort.Strings(names)
		listed = names
	}
	bp, err := json.MarshalIndent(listed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding best practices: %w", err)
	}
	w, err := json.Marshal(weights)
	if err != nil {
		return "", fmt.Errorf("encoding weights: %w", err)
	}

	var b strings.Builder
	b.WriteString("Using the following summary of a zoning ordinance, evaluate it against these best practices:\n")
	b.Write(bp)
	b.WriteString("\n\nReturn a JSON object with a 0‑100 score for each practice, then a weighted overall score under the key \"total\" using these weights:\n")
	b.Write(w)
	b.WriteString("\n\nRespond with the JSON object only.\n\nSUMMARY:\n")
	b.WriteString(summary)
	return b.String(), nil
}

// Score returns the parsed report. Malformed output and a missing total are
// separate ScoringError messages.
func (s *Scorer) Score(ctx context.Context, summary string, practices map[string]string, weights map[string]float64) (core.ScoreReport, error) {
	prompt, err := Prompt(summary, practices, weights)
	if err != nil {
		return nil, core.ScoringError("LLM scoring failed", err)
	}

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, core.ScoringError("LLM scoring failed", err)
	}

	report, err := Parse(raw)
	if err != nil {
		s.logger.Error("score.parse_failed", "error", err, "output", truncate(raw, 512))
		return nil, err
	}
	total, _ := report.Total()
	s.logger.Info("score.ok", "categories", len(report)-1, "total", total)
	return report, nil
}

// ErrMissingTotal is wrapped when the output has no "total" key.
var ErrMissingTotal = errors.New("missing 'total' in score output")

// Parse decodes model output into a ScoreReport. Surrounding code fences
// are tolerated.
func Parse(raw string) (core.ScoreReport, error) {
	data := []byte(stripFences(raw))

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, core.ScoringError("LLM scoring failed", fmt.Errorf("invalid JSON: %w", err))
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, core.ScoringError("LLM scoring failed", fmt.Errorf("invalid JSON: expected an object, got %T", v))
	}
	if _, ok := obj[core.TotalKey]; !ok {
		return nil, core.ScoringError("LLM scoring failed", ErrMissingTotal)
	}
	if err := validate(v); err != nil {
		return nil, core.ScoringError("LLM scoring failed", err)
	}

	report := make(core.ScoreReport, len(obj))
	for k, val := range obj {
		report[k] = val.(float64)
	}
	return report, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
