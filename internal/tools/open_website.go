package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// FetchFailure is returned to the model whenever a page cannot be fetched.
const FetchFailure = "Sorry, I couldn't fetch the website content."

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "webpilot/0.1"
)

// FetchTool opens a URL and returns its HTML
type FetchTool struct {
	BaseTool
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	client    *http.Client
	logger    *slog.Logger
}

type fetchArgs struct {
	URL string `mapstructure:"url"`
}

// NewFetchTool creates the open_website tool
func NewFetchTool(opts Options) *FetchTool {
	t := &FetchTool{
		Timeout:   opts.FetchTimeout,
		MaxBytes:  opts.MaxBodyBytes,
		UserAgent: opts.UserAgent,
		client:    opts.HTTPClient,
		logger:    opts.logger(),
		BaseTool: BaseTool{
			Def: ToolSpec{
				Name:        "open_website",
				Description: "Open a website and return the HTML as a string",
				Parameters: &JSONSchema{
					Type: "object",
					Properties: map[string]*JSONSchema{
						"url": {
							Type:        "string",
							Description: "A URL to open",
							Example:     "https://x.ai/",
						},
					},
					Required: []string{"url"},
				},
			},
		},
	}
	if t.Timeout <= 0 {
		t.Timeout = defaultFetchTimeout
	}
	if t.MaxBytes <= 0 {
		t.MaxBytes = defaultMaxBodyBytes
	}
	if t.UserAgent == "" {
		t.UserAgent = defaultUserAgent
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	return t
}

// Validate checks the url argument is present and a string
func (t *FetchTool) Validate(args map[string]any) error {
	if err := t.BaseTool.Validate(args); err != nil {
		return err
	}
	var in fetchArgs
	return decodeArgs(args, &in)
}

// Execute fetches the page
func (t *FetchTool) Execute(ctx context.Context, args map[string]any) string {
	var in fetchArgs
	_ = decodeArgs(args, &in)
	return t.Fetch(ctx, in.URL)
}

// Fetch issues a GET for url. Any failure is logged and reported to the
// caller as FetchFailure.
func (t *FetchTool) Fetch(ctx context.Context, url string) string {
	body, err := t.get(ctx, url)
	if err != nil {
		t.logger.Warn("error fetching the website", "url", url, "err", err)
		return FetchFailure
	}
	return body
}

func (t *FetchTool) get(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", t.UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.MaxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}
