// Package llm provides Completer implementations for the supported model
// vendors. Every vendor is reduced to a single-turn text completion.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

const (
	defaultMaxTokens = 2048
	defaultTimeout   = 120 * time.Second
)

// Config selects and configures a vendor.
type Config struct {
	Provider  string
	Model     string        // vendor default when empty
	APIKey    string        // vendor env var when empty
	BaseURL   string        // vendor default when empty
	MaxTokens int           // 2048 when <= 0
	Timeout   time.Duration // per call
	// WebSearch enables the vendor's server-side web search tool where one
	// exists (Anthropic only).
	WebSearch bool
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// New builds the Completer for cfg.Provider, wrapped with request logging.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (core.Completer, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	var (
		c   core.Completer
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		c = NewAnthropic(cfg)
	case ProviderOpenAI:
		c = NewOpenAI(cfg)
	case ProviderOllama:
		c, err = NewOllama(cfg)
	case ProviderGemini:
		c, err = NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s: %w", cfg.Provider, err)
	}
	return WithLogging(c, cfg.Provider, logger), nil
}

// loggingCompleter records every call with a request id and timing.
type loggingCompleter struct {
	next     core.Completer
	provider string
	logger   *slog.Logger
}

// WithLogging wraps c so every call is logged.
func WithLogging(c core.Completer, provider string, logger *slog.Logger) core.Completer {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingCompleter{next: c, provider: provider, logger: logger}
}

func (l *loggingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	l.logger.Info("llm.complete.request",
		"req_id", reqID,
		"provider", l.provider,
		"prompt_len", len(prompt),
	)
	out, err := l.next.Complete(ctx, prompt)
	if err != nil {
		l.logger.Error("llm.complete.error",
			"req_id", reqID,
			"provider", l.provider,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	l.logger.Info("llm.complete.response",
		"req_id", reqID,
		"provider", l.provider,
		"output_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Close releases the wrapped completer's resources when it has any.
func (l *loggingCompleter) Close() error {
	if c, ok := l.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
