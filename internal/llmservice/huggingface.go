package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"

	"github.com/rs/zerolog/log"
)

const maxResponseBytes = 4 << 20

type hfParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText *string `json:"generated_text"`
}

// HuggingFaceClient calls the Hugging Face text-generation inference API.
type HuggingFaceClient struct {
	endpoint   string
	token      string
	params     hfParameters
	httpClient *http.Client
}

func NewHuggingFaceClient(cfg config.CompletionConfig) *HuggingFaceClient {
	return &HuggingFaceClient{
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/models/" + cfg.Model,
		token:    cfg.Key,
		params: hfParameters{
			MaxNewTokens: cfg.MaxNewTokens,
			Temperature:  cfg.Temperature,
		},
		// deadlines come from the caller's context
		httpClient: &http.Client{},
	}
}

func (c *HuggingFaceClient) Complete(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(hfRequest{Inputs: prompt, Parameters: c.params})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &models.CompletionError{StatusCode: http.StatusBadGateway, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &models.CompletionError{StatusCode: http.StatusBadGateway, Err: err}
	}

	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("Completion response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &models.CompletionError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	text, err := parseGeneration(body)
	if err != nil {
		return "", &models.CompletionError{StatusCode: http.StatusBadGateway, Body: string(body), Err: err}
	}
	return text, nil
}

// parseGeneration reads [{"generated_text": ...}] and also tolerates a bare object.
func parseGeneration(body []byte) (string, error) {
	var list []hfGeneration
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 || list[0].GeneratedText == nil {
			return "", fmt.Errorf("response has no generated_text")
		}
		return *list[0].GeneratedText, nil
	}

	var single hfGeneration
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("malformed completion response: %v", err)
	}
	if single.GeneratedText == nil {
		return "", fmt.Errorf("response has no generated_text")
	}
	return *single.GeneratedText, nil
}
