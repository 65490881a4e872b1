// Package learning is a thin, never-failing facade over a sidecar
// connection's learning operations: each call returns a parsed result
// or a deterministic fallback, and errors are logged rather than
// propagated.
package learning

import (
	"context"
	"log/slog"

	"github.com/openclaw/openclaw/internal/sidecar"
)

// Candidate is one item offered to Select, in priority order.
type Candidate struct {
	ID        string
	TokenCost int
}

// SelectResult mirrors the sidecar's select response shape.
type SelectResult struct {
	SelectedArms []string
	ExcludedArms []string
	IsBaseline   bool
	Scores       map[string]float64
	TokenBudget  int
	UsedTokens   int
}

// SelectOpts parameterizes a Select call.
type SelectOpts struct {
	Context     map[string]any
	TokenBudget int
}

// Client is a typed, never-throwing wrapper over a sidecar.Connection.
type Client struct {
	conn   sidecar.Connection
	logger *slog.Logger
}

// New constructs a Client over conn.
func New(conn sidecar.Connection, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{conn: conn, logger: logger}
}

// Select asks the sidecar to choose among candidates under a token
// budget. On any failure (connection unavailable, tool error, or
// timeout) it falls back to a deterministic include-as-many-as-fit
// selection over candidates in the given order, marked as baseline.
func (c *Client) Select(ctx context.Context, candidates []Candidate, opts SelectOpts) SelectResult {
	args := map[string]any{
		"candidates":   candidatesToArgs(candidates),
		"token_budget": opts.TokenBudget,
	}
	if opts.Context != nil {
		args["context"] = opts.Context
	}

	result, err := c.conn.CallTool(ctx, "learning_select", args, sidecar.CallOpts{})
	if err != nil {
		c.logger.Warn("learning: select failed, falling back to include-as-many-as-fit", "error", err)
		return fallbackSelect(candidates, opts.TokenBudget)
	}

	return parseSelectResult(result, candidates, opts.TokenBudget)
}

// fallbackSelect implements the deterministic include-as-many-as-fit
// rule: candidates are included in order while they still fit the
// remaining budget. A token_budget of 0 is treated as unbounded.
func fallbackSelect(candidates []Candidate, tokenBudget int) SelectResult {
	unbounded := tokenBudget == 0
	result := SelectResult{
		IsBaseline:  true,
		Scores:      map[string]float64{},
		TokenBudget: tokenBudget,
	}

	remaining := tokenBudget
	for _, cand := range candidates {
		if unbounded || cand.TokenCost <= remaining {
			result.SelectedArms = append(result.SelectedArms, cand.ID)
			result.UsedTokens += cand.TokenCost
			if !unbounded {
				remaining -= cand.TokenCost
			}
		} else {
			result.ExcludedArms = append(result.ExcludedArms, cand.ID)
		}
	}
	return result
}

// parseSelectResult decodes the sidecar's select response, falling
// back to the deterministic rule if the response is malformed.
func parseSelectResult(result sidecar.ToolResult, candidates []Candidate, tokenBudget int) SelectResult {
	selected, okSel := result["selected_arms"]
	if !okSel {
		return fallbackSelect(candidates, tokenBudget)
	}

	out := SelectResult{
		SelectedArms: normalizeArmIDs(selected),
		ExcludedArms: normalizeArmIDs(result["excluded_arms"]),
		IsBaseline:   asBool(result["is_baseline"]),
		Scores:       asScores(result["scores"]),
		TokenBudget:  asInt(result["token_budget"], tokenBudget),
		UsedTokens:   asInt(result["used_tokens"], 0),
	}
	return out
}

// normalizeArmIDs flattens a selected/excluded arms payload, where each
// entry may be a bare id string or an object with an "id" field.
func normalizeArmIDs(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		switch x := item.(type) {
		case string:
			ids = append(ids, x)
		case map[string]any:
			if id, ok := x["id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asScores(v any) map[string]float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m))
	for k, raw := range m {
		if f, ok := raw.(float64); ok {
			out[k] = f
		}
	}
	return out
}

func asInt(v any, fallback int) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	default:
		return fallback
	}
}

func candidatesToArgs(candidates []Candidate) []map[string]any {
	out := make([]map[string]any, len(candidates))
	for i, c := range candidates {
		out[i] = map[string]any{"id": c.ID, "token_cost": c.TokenCost}
	}
	return out
}

// Observe reports an outcome for armID. Fire-and-forget: any error is
// logged and swallowed.
func (c *Client) Observe(ctx context.Context, armID string, outcome float64) {
	_, err := c.conn.CallTool(ctx, "learning_observe", map[string]any{
		"arm_id":  armID,
		"outcome": outcome,
	}, sidecar.CallOpts{})
	if err != nil {
		c.logger.Warn("learning: observe failed", "arm_id", armID, "error", err)
	}
}

// Posteriors returns the named learner's current posteriors, or nil on
// any failure.
func (c *Client) Posteriors(ctx context.Context, learner string) sidecar.ToolResult {
	return c.callOrNil(ctx, "learning_posteriors", map[string]any{"learner": learner}, "posteriors")
}

// Metrics returns the named learner's metrics over window, or nil on
// any failure.
func (c *Client) Metrics(ctx context.Context, learner, window string) sidecar.ToolResult {
	return c.callOrNil(ctx, "learning_metrics", map[string]any{"learner": learner, "window": window}, "metrics")
}

// Reset resets the sidecar's learning state, or returns nil on any
// failure.
func (c *Client) Reset(ctx context.Context) sidecar.ToolResult {
	return c.callOrNil(ctx, "learning_reset", nil, "reset")
}

// SessionStart notifies the sidecar that a session has begun, or
// returns nil on any failure.
func (c *Client) SessionStart(ctx context.Context, sessionID string) sidecar.ToolResult {
	return c.callOrNil(ctx, "learning_session_start", map[string]any{"session_id": sessionID}, "session_start")
}

// SessionEnd notifies the sidecar that a session has ended, or returns
// nil on any failure.
func (c *Client) SessionEnd(ctx context.Context, sessionID string) sidecar.ToolResult {
	return c.callOrNil(ctx, "learning_session_end", map[string]any{"session_id": sessionID}, "session_end")
}

func (c *Client) callOrNil(ctx context.Context, tool string, args map[string]any, op string) sidecar.ToolResult {
	result, err := c.conn.CallTool(ctx, tool, args, sidecar.CallOpts{})
	if err != nil {
		c.logger.Warn("learning: "+op+" failed", "error", err)
		return nil
	}
	return result
}
