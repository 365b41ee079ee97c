// Package llm provides the chat backend client used by the agent.
package llm

import "context"

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message sent to or received from the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamCallback is called for each streamed token.
type StreamCallback func(token string)

// Client is the interface the agent uses to talk to a chat backend.
// Implementations return the assistant's raw text; all structure in
// that text is the caller's concern.
type Client interface {
	// Chat sends a conversation and returns the assistant's reply.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ChatStream is Chat with per-token delivery. The full reply is
	// still returned once the stream completes.
	ChatStream(ctx context.Context, model string, messages []Message, callback StreamCallback) (string, error)

	// Ping checks whether the backend is reachable.
	Ping(ctx context.Context) error
}
