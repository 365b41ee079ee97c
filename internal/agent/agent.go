// Package agent implements the query execution loop: it drives the LLM
// through a plan/execute/recover state machine, runs the tool calls the
// model asks for, and folds results back into the conversation.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arcline/reagent/internal/config"
	"github.com/arcline/reagent/internal/events"
	"github.com/arcline/reagent/internal/llm"
	"github.com/arcline/reagent/internal/mcp"
	"github.com/arcline/reagent/internal/tools"
)

// Agent owns one conversation with one model backend. It is not safe
// for concurrent queries; callers serialize ProcessQuery.
type Agent struct {
	cfg    config.AgentConfig
	model  string
	llm    llm.Client
	sink   events.Sink
	logger *slog.Logger

	registry *tools.Registry

	// dial builds and handshakes an MCP client for a server config.
	// Overridable so tests can substitute scripted transports.
	dial func(ctx context.Context, name string, cfg config.MCPServerConfig) (*mcp.Client, error)

	mu           sync.Mutex
	history      []llm.Message
	servers      map[string]*serverEntry
	systemPrompt string
}

// New creates an agent. The sink receives progress events; pass
// events.Silent{} for non-interactive use. A nil logger falls back to
// slog.Default.
func New(cfg *config.Config, client llm.Client, sink events.Sink, logger *slog.Logger) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if sink == nil {
		sink = events.Silent{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{
		cfg:      cfg.Agent,
		model:    cfg.Backend.Model,
		llm:      client,
		sink:     sink,
		logger:   logger,
		registry: tools.NewRegistry(),
		servers:  make(map[string]*serverEntry),
	}
	a.dial = a.dialServer
	a.rebuildSystemPrompt()
	return a, nil
}

// Registry exposes the tool registry so callers can add native tools.
// Call RefreshSystemPrompt after registering.
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// RefreshSystemPrompt regenerates the system prompt from the current
// tool set. Needed after registering tools outside the MCP connect path.
func (a *Agent) RefreshSystemPrompt() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rebuildSystemPrompt()
}

// rebuildSystemPrompt regenerates the cached system prompt. Caller must
// hold a.mu (or be the constructor).
func (a *Agent) rebuildSystemPrompt() {
	a.systemPrompt = buildSystemPrompt(a.registry)
}

// Ping checks whether the model backend is reachable.
func (a *Agent) Ping(ctx context.Context) error {
	return a.llm.Ping(ctx)
}

// History returns a copy of the retained conversation history.
func (a *Agent) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}

// Reset clears the conversation history. Tools stay registered.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}
