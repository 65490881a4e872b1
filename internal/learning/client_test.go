package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/openclaw/openclaw/internal/sidecar"
)

type fakeConn struct {
	result sidecar.ToolResult
	err    error
	calls  []string
	args   map[string]any
}

func (f *fakeConn) Init(ctx context.Context) error { return nil }
func (f *fakeConn) IsConnected() bool              { return true }
func (f *fakeConn) Close() error                   { return nil }
func (f *fakeConn) CallTool(ctx context.Context, name string, args map[string]any, opts sidecar.CallOpts) (sidecar.ToolResult, error) {
	f.calls = append(f.calls, name)
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestSelect_SuccessParsesResponse(t *testing.T) {
	conn := &fakeConn{result: sidecar.ToolResult{
		"selected_arms": []any{"a", map[string]any{"id": "b"}},
		"excluded_arms": []any{"c"},
		"is_baseline":   false,
		"scores":        map[string]any{"a": 0.9, "b": 0.5},
		"token_budget":  float64(100),
		"used_tokens":   float64(40),
	}}
	c := New(conn, nil)

	result := c.Select(context.Background(), []Candidate{{ID: "a", TokenCost: 20}, {ID: "b", TokenCost: 20}, {ID: "c", TokenCost: 20}}, SelectOpts{TokenBudget: 100})

	if len(result.SelectedArms) != 2 || result.SelectedArms[0] != "a" || result.SelectedArms[1] != "b" {
		t.Errorf("SelectedArms = %v", result.SelectedArms)
	}
	if result.IsBaseline {
		t.Error("expected non-baseline result")
	}
	if result.UsedTokens != 40 {
		t.Errorf("UsedTokens = %d, want 40", result.UsedTokens)
	}
}

func TestSelect_FailureFallsBackToIncludeAsManyAsFit(t *testing.T) {
	conn := &fakeConn{err: errors.New("sidecar down")}
	c := New(conn, nil)

	candidates := []Candidate{
		{ID: "a", TokenCost: 30},
		{ID: "b", TokenCost: 30},
		{ID: "c", TokenCost: 50},
	}
	result := c.Select(context.Background(), candidates, SelectOpts{TokenBudget: 60})

	if !result.IsBaseline {
		t.Error("expected baseline fallback")
	}
	if len(result.SelectedArms) != 2 || result.SelectedArms[0] != "a" || result.SelectedArms[1] != "b" {
		t.Errorf("SelectedArms = %v, want [a b]", result.SelectedArms)
	}
	if len(result.ExcludedArms) != 1 || result.ExcludedArms[0] != "c" {
		t.Errorf("ExcludedArms = %v, want [c]", result.ExcludedArms)
	}
	if result.UsedTokens != 60 {
		t.Errorf("UsedTokens = %d, want 60", result.UsedTokens)
	}
}

func TestSelect_ZeroTokenBudgetIsUnboundedOnFallback(t *testing.T) {
	conn := &fakeConn{err: errors.New("sidecar down")}
	c := New(conn, nil)

	candidates := []Candidate{{ID: "a", TokenCost: 1000}, {ID: "b", TokenCost: 2000}}
	result := c.Select(context.Background(), candidates, SelectOpts{TokenBudget: 0})

	if len(result.SelectedArms) != 2 {
		t.Errorf("SelectedArms = %v, want both included under unbounded budget", result.SelectedArms)
	}
	if len(result.ExcludedArms) != 0 {
		t.Errorf("ExcludedArms = %v, want none", result.ExcludedArms)
	}
}

func TestObserve_SwallowsError(t *testing.T) {
	conn := &fakeConn{err: errors.New("boom")}
	c := New(conn, nil)
	c.Observe(context.Background(), "arm-1", 1.0) // must not panic
	if len(conn.calls) != 1 || conn.calls[0] != "learning_observe" {
		t.Errorf("calls = %v", conn.calls)
	}
}

func TestPosteriors_ReturnsNilOnFailure(t *testing.T) {
	conn := &fakeConn{err: errors.New("boom")}
	c := New(conn, nil)
	if got := c.Posteriors(context.Background(), "default"); got != nil {
		t.Errorf("Posteriors() = %v, want nil", got)
	}
}

func TestPosteriors_ReturnsResultOnSuccess(t *testing.T) {
	conn := &fakeConn{result: sidecar.ToolResult{"alpha": float64(3)}}
	c := New(conn, nil)
	got := c.Posteriors(context.Background(), "default")
	if got["alpha"] != float64(3) {
		t.Errorf("Posteriors() = %v", got)
	}
}

func TestMetrics_PassesLearnerAndWindow(t *testing.T) {
	conn := &fakeConn{result: sidecar.ToolResult{}}
	c := New(conn, nil)
	c.Metrics(context.Background(), "default", "7d")
	if len(conn.calls) != 1 || conn.calls[0] != "learning_metrics" {
		t.Errorf("calls = %v", conn.calls)
	}
	if conn.args["learner"] != "default" || conn.args["window"] != "7d" {
		t.Errorf("args = %v, want learner=default window=7d", conn.args)
	}
}
