package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openclaw/openclaw/internal/httpkit"
)

// GenericHTTPClient is a minimal chat-completions client used to make
// the insight extractor runnable end to end. It speaks a single
// generic POST {baseURL}/chat contract ({model, messages} in,
// {content} out) rather than any specific vendor's API. It exists to
// satisfy the abstract llm.Client interface the core depends on;
// vendor adapters live outside this module.
type GenericHTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGenericHTTPClient constructs a client against baseURL.
func NewGenericHTTPClient(baseURL string, logger *slog.Logger) *GenericHTTPClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GenericHTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpkit.NewClient(httpkit.WithLogger(logger)),
		logger:     logger,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponseBody struct {
	Content string `json:"content"`
}

// Chat sends messages to the configured endpoint and returns the
// response.
func (c *GenericHTTPClient) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm: %s returned status %d: %s", c.baseURL, resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 2048))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	var out chatResponseBody
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}

	return &ChatResponse{
		Model:   model,
		Message: Message{Role: "assistant", Content: out.Content},
		Done:    true,
	}, nil
}

// Ping checks reachability via a lightweight GET to {baseURL}/health.
func (c *GenericHTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("llm: build ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm: ping failed: %w", err)
	}
	httpkit.DrainAndClose(resp.Body, 1024)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("llm: ping returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Client = (*GenericHTTPClient)(nil)
