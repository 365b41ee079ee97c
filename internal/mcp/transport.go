package mcp

import "context"

// Transport delivers JSON-RPC messages to an MCP server. Implementations
// handle framing, encoding, and response correlation for a specific
// medium (currently stdio subprocesses).
type Transport interface {
	// Send sends a JSON-RPC request and returns the matching response.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Notify sends a JSON-RPC notification (no response expected).
	Notify(ctx context.Context, notif *Notification) error

	// Alive reports whether the underlying connection is usable. For a
	// stdio transport this means the subprocess is running.
	Alive() bool

	// Close shuts down the transport and releases resources.
	// For stdio transports this terminates the subprocess.
	Close() error
}
