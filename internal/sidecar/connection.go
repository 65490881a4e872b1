// Package sidecar implements the transport-abstracted connection to the
// qortex learning sidecar: a stdio subprocess transport and an HTTP
// REST transport, both satisfying the same Connection contract.
package sidecar

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotConnected is returned by CallTool when Init has not succeeded.
var ErrNotConnected = errors.New("sidecar: not connected")

// Per-tool default call timeouts, shared by both transports so their
// CallTool behavior stays indistinguishable. CallOpts.Timeout overrides
// all of them.
const (
	defaultCallTimeout  = 30 * time.Second
	feedbackCallTimeout = 10 * time.Second
	ingestCallTimeout   = 60 * time.Second
)

// defaultTimeoutFor returns the default CallTool timeout for a tool.
func defaultTimeoutFor(tool string) time.Duration {
	switch {
	case tool == "feedback":
		return feedbackCallTimeout
	case strings.HasPrefix(tool, "ingest"):
		return ingestCallTimeout
	default:
		return defaultCallTimeout
	}
}

// ToolResult is a parsed tool response body. An empty response body
// decodes to an empty, non-nil ToolResult.
type ToolResult map[string]any

// CallOpts overrides the default per-call behavior.
type CallOpts struct {
	// Timeout overrides the transport's default call timeout. Zero
	// means use the default.
	Timeout time.Duration
}

// Connection is the abstract contract both transports implement.
type Connection interface {
	// Init performs the transport's handshake/health check and marks
	// the connection usable.
	Init(ctx context.Context) error

	// IsConnected reports whether Init has succeeded and Close has not
	// since been called.
	IsConnected() bool

	// CallTool invokes a named tool with args and returns its parsed
	// result.
	CallTool(ctx context.Context, name string, args map[string]any, opts CallOpts) (ToolResult, error)

	// Close releases transport resources. Safe to call more than once.
	Close() error
}

// IsHealthy is a convenience liveness probe. It reports false when the
// connection is not connected, and otherwise calls the "health" tool
// and reports whether that call succeeded.
func IsHealthy(ctx context.Context, c Connection) bool {
	if !c.IsConnected() {
		return false
	}
	_, err := c.CallTool(ctx, "health", nil, CallOpts{})
	return err == nil
}
