package llmservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func hfConfig(url string) config.CompletionConfig {
	return config.CompletionConfig{
		Provider:     config.ProviderHuggingFace,
		BaseURL:      url,
		Key:          "hf_test",
		Model:        "meta-llama/Meta-Llama-3-8B-Instruct",
		MaxNewTokens: 500,
		Temperature:  0.7,
	}
}

func TestHuggingFaceComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/meta-llama/Meta-Llama-3-8B-Instruct", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Document Context:\nctx\n\nUser Query: q\n\nAnswer:", req["inputs"])
		params := req["parameters"].(map[string]any)
		assert.Equal(t, float64(500), params["max_new_tokens"])
		assert.Equal(t, 0.7, params["temperature"])

		_, _ = w.Write([]byte(`[{"generated_text": "Paris"}]`))
	}))
	defer srv.Close()

	answer, err := NewHuggingFaceClient(hfConfig(srv.URL)).Complete(context.Background(), models.BuildPrompt("ctx", "q"))
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
}

func TestHuggingFaceCompleteErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "upstream unavailable",
			status:     http.StatusServiceUnavailable,
			body:       `{"error":"Model is loading"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"Model is loading"}`,
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":"Invalid credentials"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid credentials"}`,
		},
		{
			name:       "empty list",
			status:     http.StatusOK,
			body:       `[]`,
			wantStatus: http.StatusBadGateway,
			wantBody:   `[]`,
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<html>oops</html>`,
			wantStatus: http.StatusBadGateway,
			wantBody:   `<html>oops</html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceClient(hfConfig(srv.URL)).Complete(context.Background(), "prompt")
			require.Error(t, err)

			var completionErr *models.CompletionError
			require.True(t, errors.As(err, &completionErr))
			assert.Equal(t, tt.wantStatus, completionErr.HTTPStatus())
			assert.Equal(t, tt.wantBody, completionErr.Body)
		})
	}
}

func TestHuggingFaceCompleteSingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generated_text": "42"}`))
	}))
	defer srv.Close()

	answer, err := NewHuggingFaceClient(hfConfig(srv.URL)).Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestHuggingFaceCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHuggingFaceClient(hfConfig(srv.URL)).Complete(ctx, "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type fakeModel struct {
	reply   string
	err     error
	options llms.CallOptions
	prompt  string
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&m.options)
	}
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if text, ok := messages[0].Parts[0].(llms.TextContent); ok {
			m.prompt = text.Text
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainClient(t *testing.T) {
	model := &fakeModel{reply: "an answer"}
	client := NewLangChainClient(model, 500, 0.7)

	answer, err := client.Complete(context.Background(), "the prompt")
	require.NoError(t, err)

	assert.Equal(t, "an answer", answer)
	assert.Equal(t, "the prompt", model.prompt)
	assert.Equal(t, 500, model.options.MaxTokens)
	assert.Equal(t, 0.7, model.options.Temperature)
}

func TestLangChainClientError(t *testing.T) {
	client := NewLangChainClient(&fakeModel{err: errors.New("rate limited")}, 500, 0.7)

	_, err := client.Complete(context.Background(), "the prompt")
	var completionErr *models.CompletionError
	require.True(t, errors.As(err, &completionErr))
	assert.Equal(t, http.StatusBadGateway, completionErr.HTTPStatus())
	assert.Contains(t, completionErr.Body, "rate limited")
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(hfConfig("https://api-inference.huggingface.co"))
	require.NoError(t, err)
	assert.IsType(t, &HuggingFaceClient{}, c)

	c, err = NewCompleter(config.CompletionConfig{Provider: "openai", Key: "sk-test", Model: "gpt-4o-mini", BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	assert.IsType(t, &LangChainClient{}, c)

	_, err = NewCompleter(config.CompletionConfig{Provider: "anthropic"})
	assert.Error(t, err)
}
