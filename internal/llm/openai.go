package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultCompletionTimeout = 2 * time.Minute

// Client implements Provider against any OpenAI-compatible chat completions API.
// Timeout bounds each Complete call; zero means no bound beyond ctx.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	client  *http.Client
}

// NewClient creates a client for the given backend
func NewClient(backend Backend, apiKey, model string) *Client {
	if model == "" {
		model = backend.DefaultModel
	}
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: backend.BaseURL,
		Timeout: defaultCompletionTimeout,
		client:  &http.Client{},
	}
}

// NewOpenAI creates a client for the OpenAI API
func NewOpenAI(apiKey, model string) *Client {
	return NewClient(OpenAIBackend, apiKey, model)
}

// NewXAI creates a client for the xAI API
func NewXAI(apiKey, model string) *Client {
	return NewClient(XAIBackend, apiKey, model)
}

// Complete calls the chat completions endpoint and returns the parsed response
func (c *Client) Complete(ctx context.Context, reqBody CompletionRequest) (*CompletionResponse, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("API key not configured for %s", c.BaseURL)
	}
	if reqBody.Model == "" {
		reqBody.Model = c.Model
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var completion CompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if completion.Error != nil {
		return nil, fmt.Errorf("API error: %s", completion.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return &completion, nil
}

// ModelName returns the model being used
func (c *Client) ModelName() string {
	return c.Model
}

// Ensure Client implements Provider
var _ Provider = (*Client)(nil)
