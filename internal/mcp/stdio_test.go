package mcp

import (
	"context"
	"errors"
	"testing"
	"time"
)

// echoServer builds a transport around a shell one-liner that plays the
// role of an MCP server for a single request.
func echoServer(t *testing.T, script string) *StdioTransport {
	t.Helper()
	tr := NewStdioTransport(StdioConfig{
		Command: "sh",
		Args:    []string{"-c", script},
	})
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestStdioTransport_SendRoundTrip(t *testing.T) {
	tr := echoServer(t, `read line; printf '{"jsonrpc":"2.0","id":1,"result":{"ok":true}}\n'`)

	resp, err := tr.Send(context.Background(), NewRequest(1, "ping", nil))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.ID != 1 {
		t.Errorf("resp.ID = %d, want 1", resp.ID)
	}
	if resp.Error != nil {
		t.Errorf("unexpected error: %v", resp.Error)
	}
}

func TestStdioTransport_SkipsUnmatchedLines(t *testing.T) {
	// The server emits a notification and junk before the real response.
	tr := echoServer(t, `read line
printf '{"jsonrpc":"2.0","method":"notifications/progress"}\n'
printf 'not json at all\n'
printf '{"jsonrpc":"2.0","id":7,"result":{}}\n'`)

	resp, err := tr.Send(context.Background(), NewRequest(7, "tools/list", nil))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.ID != 7 {
		t.Errorf("resp.ID = %d, want 7", resp.ID)
	}
}

func TestStdioTransport_Alive(t *testing.T) {
	tr := echoServer(t, `read line; printf '{"jsonrpc":"2.0","id":1,"result":{}}\n'; sleep 60`)

	if tr.Alive() {
		t.Error("transport should not be alive before first use")
	}
	if _, err := tr.Send(context.Background(), NewRequest(1, "ping", nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !tr.Alive() {
		t.Error("transport should be alive after a successful send")
	}
	if err := tr.Close(); err != nil {
		t.Logf("Close: %v", err)
	}
	if tr.Alive() {
		t.Error("transport should not be alive after Close")
	}
}

func TestStdioTransport_ContextCancel(t *testing.T) {
	tr := echoServer(t, `read line; sleep 60`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := tr.Send(ctx, NewRequest(1, "ping", nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if tr.Alive() {
		t.Error("subprocess should be killed after a timed-out send")
	}
}

func TestStdioTransport_ReadTimeout(t *testing.T) {
	tr := NewStdioTransport(StdioConfig{
		Command:     "sh",
		Args:        []string{"-c", `read line; sleep 60`},
		ReadTimeout: 100 * time.Millisecond,
	})
	defer tr.Close()

	_, err := tr.Send(context.Background(), NewRequest(1, "ping", nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded from ReadTimeout", err)
	}
}

func TestStdioTransport_RespawnAfterFailure(t *testing.T) {
	// The script exits immediately after answering. The send that hits
	// the dead process fails and tears down state; the one after that
	// respawns a fresh subprocess.
	tr := echoServer(t, `read line; printf '{"jsonrpc":"2.0","id":1,"result":{}}\n'`)

	if _, err := tr.Send(context.Background(), NewRequest(1, "ping", nil)); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	// Give the subprocess a moment to exit after answering.
	time.Sleep(50 * time.Millisecond)

	failed := false
	if _, err := tr.Send(context.Background(), NewRequest(2, "ping", nil)); err != nil {
		failed = true
	}
	if !failed {
		// The write may have raced the exit; force one more failure.
		time.Sleep(50 * time.Millisecond)
		if _, err := tr.Send(context.Background(), NewRequest(3, "ping", nil)); err == nil {
			t.Skip("subprocess exit not observable on this platform")
		}
	}

	if _, err := tr.Send(context.Background(), NewRequest(4, "ping", nil)); err != nil {
		t.Fatalf("Send after failure should respawn: %v", err)
	}
}

func TestStdioTransport_StartFailure(t *testing.T) {
	tr := NewStdioTransport(StdioConfig{Command: "/nonexistent/binary"})
	defer tr.Close()

	if _, err := tr.Send(context.Background(), NewRequest(1, "ping", nil)); err == nil {
		t.Fatal("expected error starting nonexistent command")
	}
}
