// Package backend is the HTTP client the chat client uses to reach the
// question-answering API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-qa/internal/models"
)

// StatusError is returned for any non-200 answer from the backend.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Process uploads a PDF for the session.
func (c *Client) Process(ctx context.Context, sessionID, filename string, data []byte) (*models.IngestResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process/", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out models.IngestResponse
	if err := c.do(req, sessionID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask sends a question for the session and returns the answer text.
func (c *Client) Ask(ctx context.Context, sessionID, query string) (string, error) {
	endpoint := c.baseURL + "/ask/?" + url.Values{"query": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	var out models.AskResponse
	if err := c.do(req, sessionID, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

func (c *Client) do(req *http.Request, sessionID string, out any) error {
	if sessionID != "" {
		req.Header.Set(models.SessionHeader, sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Detail: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %v", err)
	}
	return nil
}
