package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openclaw/openclaw/internal/httpkit"
)

const (
	httpHealthBudget  = 10 * time.Second
	httpMaxRetries    = 3
	httpRetryBaseWait = 200 * time.Millisecond
)

// HTTPConfig configures an HTTPConnection.
type HTTPConfig struct {
	BaseURL string
	Headers map[string]string
	Logger  *slog.Logger
}

// HTTPConnection speaks the sidecar's REST API directly over HTTP,
// resolving each tool name through the closed routeTable.
type HTTPConnection struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger

	connected atomic.Bool
	mu        sync.Mutex
}

// NewHTTPConnection constructs an HTTPConnection. Init must be called
// before CallTool.
func NewHTTPConnection(cfg HTTPConfig) *HTTPConnection {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPConnection{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    cfg.Headers,
		// Per-call contexts carry the tool timeouts, so the client
		// itself runs without an overall deadline.
		httpClient: httpkit.NewClient(httpkit.WithLogger(logger), httpkit.WithTimeout(0)),
		logger:     logger,
	}
}

// Init performs a GET {base}/v1/health health check.
func (c *HTTPConnection) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, httpHealthBudget)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("sidecar: build health request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sidecar: health check: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<16)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sidecar: health check returned status %d", resp.StatusCode)
	}

	c.connected.Store(true)
	return nil
}

// IsConnected reports whether Init succeeded and Close has not run.
func (c *HTTPConnection) IsConnected() bool {
	return c.connected.Load()
}

// CallTool resolves name through the route table, substitutes path and
// query params, and issues the HTTP request. 5xx responses are retried
// up to httpMaxRetries times with bounded backoff; 4xx is never
// retried.
func (c *HTTPConnection) CallTool(ctx context.Context, name string, args map[string]any, opts CallOpts) (ToolResult, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	route, ok := routeTable[name]
	if !ok {
		return nil, fmt.Errorf("sidecar: unknown tool %q", name)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutFor(name)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path, body, err := buildRequest(route, args)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= httpMaxRetries; attempt++ {
		if attempt > 0 {
			wait := httpRetryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, status, retriable, err := c.doOnce(ctx, route.Method, path, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retriable {
			return nil, err
		}
		c.logger.Warn("sidecar: retrying after 5xx", "tool", name, "status", status, "attempt", attempt+1)
	}
	return nil, lastErr
}

// doOnce issues a single HTTP request and classifies the outcome.
// retriable is true only for 5xx responses.
func (c *HTTPConnection) doOnce(ctx context.Context, method, path string, body []byte) (ToolResult, int, bool, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, false, fmt.Errorf("sidecar: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, false, fmt.Errorf("sidecar: request %s %s: %w", method, path, err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, resp.StatusCode, false, fmt.Errorf("sidecar: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractErrorField(raw)
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		retriable := resp.StatusCode >= 500
		return nil, resp.StatusCode, retriable, fmt.Errorf("sidecar: %s %s: %s", method, path, msg)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return ToolResult{}, resp.StatusCode, false, nil
	}

	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		excerpt := string(raw)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, resp.StatusCode, false, fmt.Errorf("sidecar: malformed JSON response: %s", excerpt)
	}
	return result, resp.StatusCode, false, nil
}

func extractErrorField(raw []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return envelope.Error
}

func (c *HTTPConnection) applyHeaders(req *http.Request) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// Close marks the connection unusable. The *http.Client manages
// its own connection pool, so there is nothing further to release.
func (c *HTTPConnection) Close() error {
	c.connected.Store(false)
	return nil
}

// buildRequest substitutes path params and builds the query string and
// JSON body for a routeSpec given the call args.
func buildRequest(route routeSpec, args map[string]any) (path string, body []byte, err error) {
	path = route.Path
	remaining := make(map[string]any, len(args))
	for k, v := range args {
		remaining[k] = v
	}

	for _, p := range route.PathParams {
		v, ok := remaining[p]
		if !ok {
			return "", nil, fmt.Errorf("sidecar: missing path param %q for route %s", p, route.Path)
		}
		path = strings.ReplaceAll(path, "{"+p+"}", url.PathEscape(fmt.Sprint(v)))
		delete(remaining, p)
	}

	if len(route.QueryParams) > 0 {
		q := url.Values{}
		for _, p := range route.QueryParams {
			if v, ok := remaining[p]; ok {
				q.Set(p, fmt.Sprint(v))
				delete(remaining, p)
			}
		}
		if encoded := q.Encode(); encoded != "" {
			path = path + "?" + encoded
		}
	}

	if route.Method == http.MethodPost && len(remaining) > 0 {
		body, err = json.Marshal(remaining)
		if err != nil {
			return "", nil, fmt.Errorf("sidecar: marshal request body: %w", err)
		}
	}
	return path, body, nil
}
