package embedding

import (
	"context"
	"fmt"
	"strings"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	hfembeddings "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates the embedder for the configured provider
func NewEmbedder(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case config.ProviderHuggingFace, "":
		return NewHuggingFaceEmbedder(cfg)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// NewHuggingFaceEmbedder uses the Hugging Face feature-extraction pipeline
func NewHuggingFaceEmbedder(cfg config.EmbeddingConfig) (*hfembeddings.Huggingface, error) {
	opts := []huggingface.Option{
		huggingface.WithToken(cfg.Key),
		huggingface.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, huggingface.WithURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	llm, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create huggingface client: %v", err)
	}

	embedder, err := hfembeddings.NewHuggingface(
		hfembeddings.WithClient(*llm),
		hfembeddings.WithModel(cfg.Model),
		hfembeddings.WithStripNewLines(false),
		hfembeddings.WithBatchSize(batchSize(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create huggingface embedder: %v", err)
	}
	return embedder, nil
}

// NewOpenAIEmbedder talks to any OpenAI compatible embeddings endpoint
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %v", err)
	}
	return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize(cfg)))
}

// NewOllamaEmbedder uses a local ollama server
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %v", err)
	}
	return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize(cfg)))
}

func batchSize(cfg config.EmbeddingConfig) int {
	if cfg.BatchSize <= 0 {
		return 32
	}
	return cfg.BatchSize
}

// EmbedChunks embeds every chunk and checks that all vectors share one
// non-zero dimension.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to embed")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("embedding model returned empty vectors")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	log.Debug().Int("chunks", len(chunks)).Int("dimension", dim).Msg("Generated embeddings")
	return vectors, nil
}
