package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaCompleter calls a local or remote Ollama server.
type OllamaCompleter struct {
	Client    *ollama.Client
	Model     string
	MaxTokens int
}

// NewOllama uses cfg.BaseURL, then OLLAMA_HOST, then localhost.
func NewOllama(cfg Config) (*OllamaCompleter, error) {
	cfg = cfg.withDefaults()
	host := cfg.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaCompleter{
		Client:    ollama.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		Model:     model,
		MaxTokens: cfg.MaxTokens,
	}, nil
}

func (o *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &ollama.GenerateRequest{
		Model:   o.Model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"num_predict": o.MaxTokens},
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", err
	}
	return text.String(), nil
}
