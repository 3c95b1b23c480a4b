package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewCompleter creates the completion client for the configured provider
func NewCompleter(cfg config.CompletionConfig) (Completer, error) {
	log.Debug().Interface("config", map[string]any{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
		"timeout":  cfg.Timeout.String(),
	}).Msg("Creating completion client")

	switch cfg.Provider {
	case config.ProviderHuggingFace, "":
		return NewHuggingFaceClient(cfg), nil
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %v", err)
		}
		return NewLangChainClient(llm, cfg.MaxNewTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}

// LangChainClient completes prompts through any langchaingo model
type LangChainClient struct {
	model       llms.Model
	maxTokens   int
	temperature float64
}

func NewLangChainClient(model llms.Model, maxTokens int, temperature float64) *LangChainClient {
	return &LangChainClient{model: model, maxTokens: maxTokens, temperature: temperature}
}

func (c *LangChainClient) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTemperature(c.temperature),
	)
	if err != nil {
		return "", &models.CompletionError{StatusCode: http.StatusBadGateway, Body: err.Error(), Err: err}
	}
	return out, nil
}
