package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

type recorder struct {
	prompts []string
	failAt  int // 1-based call index, 0 never
}

func (r *recorder) Complete(ctx context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	n := len(r.prompts)
	if n == r.failAt {
		return "", errors.New("rate limited")
	}
	return fmt.Sprintf("out-%d", n), nil
}

func TestSummarize_CallCountAndVerbatimResult(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7} {
		chunks := make([]string, n)
		for i := range chunks {
			chunks[i] = fmt.Sprintf("chunk %d", i)
		}
		rec := &recorder{}
		got, err := New(rec, nil).Summarize(context.Background(), chunks)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(rec.prompts) != n+1 {
			t.Errorf("n=%d: %d calls, want %d", n, len(rec.prompts), n+1)
		}
		if want := fmt.Sprintf("out-%d", n+1); got != want {
			t.Errorf("n=%d: got %q, want %q", n, got, want)
		}
	}
}

func TestSummarize_PromptShape(t *testing.T) {
	rec := &recorder{}
	if _, err := New(rec, nil).Summarize(context.Background(), []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}
	if rec.prompts[0] != ChunkPrompt("A") || rec.prompts[1] != ChunkPrompt("B") {
		t.Errorf("chunk prompts out of order: %q", rec.prompts[:2])
	}
	if !strings.HasSuffix(rec.prompts[2], "out-1\n\nout-2") {
		t.Errorf("merge prompt should join partials with a blank line: %q", rec.prompts[2])
	}
	if !strings.Contains(rec.prompts[0], "250 words") || !strings.Contains(rec.prompts[2], "400 words") {
		t.Error("prompts should bound summary length")
	}
}

func TestSummarize_FailureDiscardsPartials(t *testing.T) {
	for _, failAt := range []int{1, 2, 4} {
		rec := &recorder{failAt: failAt}
		got, err := New(rec, nil).Summarize(context.Background(), []string{"a", "b", "c"})
		if !errors.Is(err, core.ErrSummarize) {
			t.Fatalf("failAt=%d: expected SummarizationError, got %v", failAt, err)
		}
		if got != "" {
			t.Errorf("failAt=%d: partial result leaked: %q", failAt, got)
		}
		if !strings.Contains(err.Error(), "LLM summarisation failed") || !strings.Contains(err.Error(), "rate limited") {
			t.Errorf("failAt=%d: message %q", failAt, err.Error())
		}
		if len(rec.prompts) != failAt {
			t.Errorf("failAt=%d: kept calling after failure (%d calls)", failAt, len(rec.prompts))
		}
	}
}
