package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "bard"}, nil)
	if err == nil || !strings.Contains(err.Error(), "bard") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestNew_DefaultsToAnthropic(t *testing.T) {
	c, err := New(context.Background(), Config{APIKey: "k"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	lc, ok := c.(*loggingCompleter)
	if !ok {
		t.Fatalf("expected logging wrapper, got %T", c)
	}
	if _, ok := lc.next.(*AnthropicCompleter); !ok {
		t.Errorf("expected AnthropicCompleter, got %T", lc.next)
	}
	if lc.provider != ProviderAnthropic {
		t.Errorf("provider = %q", lc.provider)
	}
}

func TestNew_GeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := New(context.Background(), Config{Provider: "gemini"}, nil)
	if err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestWithLogging_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	c := WithLogging(core.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	}), "fake", logger)

	out, err := c.Complete(context.Background(), "hi")
	if err != nil || out != "echo: hi" {
		t.Fatalf("got %q, %v", out, err)
	}
	if !strings.Contains(buf.String(), "llm.complete.response") || !strings.Contains(buf.String(), `"req_id"`) {
		t.Errorf("missing log lines: %s", buf.String())
	}
}

func TestWithLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	boom := errors.New("boom")

	c := WithLogging(core.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	}), "fake", logger)

	if _, err := c.Complete(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(buf.String(), "llm.complete.error") {
		t.Errorf("missing error log: %s", buf.String())
	}
}

func TestOpenAICompleter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-test" || len(req.Messages) != 1 || req.Messages[0].Content != "prompt" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"answer"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	c := NewOpenAI(Config{APIKey: "k", Model: "gpt-test", BaseURL: server.URL + "/v1"})
	out, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if out != "answer" {
		t.Errorf("got %q", out)
	}
}

func TestOllamaCompleter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"`+req.Model+`","response":"sum of `+req.Prompt+`","done":true}`+"\n")
	}))
	defer server.Close()

	c, err := NewOllama(Config{BaseURL: server.URL, Model: "tiny"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Complete(context.Background(), "zoning")
	if err != nil {
		t.Fatal(err)
	}
	if out != "sum of zoning" {
		t.Errorf("got %q", out)
	}
}

func TestAnthropicCompleter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["tools"]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":2}}`)
	}))
	defer server.Close()

	c := NewAnthropic(Config{APIKey: "k", BaseURL: server.URL, Model: "claude-test", WebSearch: true})
	out, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello world" {
		t.Errorf("got %q", out)
	}
}

func TestGeminiCompleter_AppliesTimeout(t *testing.T) {
	// Accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		var held []net.Conn
		defer func() {
			for _, c := range held {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, c)
		}
	}()

	g, err := NewGemini(context.Background(), Config{
		Provider: ProviderGemini,
		APIKey:   "test-key",
		BaseURL:  ln.Addr().String(),
		Timeout:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	start := time.Now()
	if _, err := g.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("call ignored the timeout, took %s", elapsed)
	}
}
