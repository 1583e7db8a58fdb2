package llm

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAICompleter calls the chat completions API.
type OpenAICompleter struct {
	Client    *openai.Client
	Model     string
	MaxTokens int
}

// NewOpenAI reads OPENAI_API_KEY from the env when cfg.APIKey is empty.
func NewOpenAI(cfg Config) *OpenAICompleter {
	cfg = cfg.withDefaults()
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{
		Client:    openai.NewClientWithConfig(oc),
		Model:     model,
		MaxTokens: cfg.MaxTokens,
	}
}

func (o *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               o.Model,
		MaxCompletionTokens: o.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
