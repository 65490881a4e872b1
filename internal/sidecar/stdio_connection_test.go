package sidecar

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestNewStdioConnection_RejectsDisallowedCommand(t *testing.T) {
	_, err := NewStdioConnection(StdioConfig{Command: "bash"})
	if err == nil {
		t.Fatal("expected error for disallowed command")
	}
}

func TestNewStdioConnection_AcceptsAllowedBasenameRegardlessOfPath(t *testing.T) {
	_, err := NewStdioConnection(StdioConfig{Command: "/usr/local/bin/python3"})
	if err != nil {
		t.Fatalf("expected allowed basename to pass, got %v", err)
	}
}

// fakeSidecarScript is a minimal python3 program that speaks the
// stdio wire protocol: it acks the handshake and echoes back a
// result containing whatever args it was called with.
const fakeSidecarScript = `
import sys, json

for line in sys.stdin:
    line = line.strip()
    if not line:
        continue
    msg = json.loads(line)
    if msg.get("type") == "hello":
        sys.stdout.write(json.dumps({"type": "hello-ack"}) + "\n")
        sys.stdout.flush()
        continue
    tool = msg.get("tool")
    if tool == "boom":
        sys.stdout.write(json.dumps({"id": msg["id"], "error": "tool failed"}) + "\n")
    else:
        sys.stdout.write(json.dumps({"id": msg["id"], "result": {"tool": tool, "echo": msg.get("args", {})}}) + "\n")
    sys.stdout.flush()
`

func requirePython3(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available, skipping stdio integration test")
	}
	return path
}

func TestStdioConnection_InitAndCallToolRoundTrip(t *testing.T) {
	requirePython3(t)

	conn, err := NewStdioConnection(StdioConfig{Command: "python3", Args: []string{"-c", fakeSidecarScript}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Init(ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	defer conn.Close()

	if !conn.IsConnected() {
		t.Fatal("expected connected after Init")
	}

	result, err := conn.CallTool(ctx, "status", map[string]any{"a": "b"}, CallOpts{})
	if err != nil {
		t.Fatalf("CallTool() = %v", err)
	}
	if result["tool"] != "status" {
		t.Errorf("result = %v, want tool=status", result)
	}
}

func TestStdioConnection_CallToolErrorPropagates(t *testing.T) {
	requirePython3(t)

	conn, err := NewStdioConnection(StdioConfig{Command: "python3", Args: []string{"-c", fakeSidecarScript}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	_, err = conn.CallTool(ctx, "boom", nil, CallOpts{})
	if err == nil {
		t.Fatal("expected error from boom tool")
	}
}

func TestStdioConnection_CloseIsIdempotent(t *testing.T) {
	requirePython3(t)

	conn, err := NewStdioConnection(StdioConfig{Command: "python3", Args: []string{"-c", fakeSidecarScript}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Init(ctx); err != nil {
		t.Fatal(err)
	}

	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if conn.IsConnected() {
		t.Fatal("expected disconnected after Close")
	}
}
