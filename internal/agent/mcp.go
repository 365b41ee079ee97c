package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcline/reagent/internal/config"
	"github.com/arcline/reagent/internal/events"
	"github.com/arcline/reagent/internal/mcp"
	"github.com/arcline/reagent/internal/tools"
)

// serverEntry tracks one connected MCP server and the config needed to
// rebuild its transport after a failure.
type serverEntry struct {
	client *mcp.Client
	cfg    config.MCPServerConfig
}

// ConnectMCPServer spawns the configured server, performs the MCP
// handshake, and bridges its tools into the registry under namespaced
// names. Reconnecting an already-connected server replaces it.
func (a *Agent) ConnectMCPServer(ctx context.Context, name string, cfg config.MCPServerConfig) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.servers[name]; ok {
		a.removeServerToolsLocked(name)
		_ = existing.client.Close()
		delete(a.servers, name)
	}

	client, err := a.dial(ctx, name, cfg)
	if err != nil {
		return 0, err
	}

	defs, err := client.ListTools(ctx, false)
	if err != nil {
		_ = client.Close()
		return 0, fmt.Errorf("list tools from %s: %w", name, err)
	}

	include := toSet(cfg.IncludeTools)
	exclude := toSet(cfg.ExcludeTools)

	count := 0
	for _, td := range defs {
		if len(include) > 0 {
			if !include[td.Name] {
				continue
			}
		} else if exclude[td.Name] {
			continue
		}

		tool := mcp.ToolFromDefinition(name, td)
		tool.Handler = a.mcpHandler(name, td.Name)
		if err := a.registry.Register(tool); err != nil {
			a.logger.Warn("skipping MCP tool", "tool", tool.Name, "err", err)
			continue
		}
		count++

		a.logger.Debug("bridged MCP tool",
			"mcp_name", td.Name,
			"registry_name", tool.Name,
			"server", name,
		)
	}

	a.servers[name] = &serverEntry{client: client, cfg: cfg}
	a.rebuildSystemPrompt()

	a.logger.Info("MCP server connected", "server", name, "tools", count)
	a.sink.Emit(events.Event{
		Timestamp: time.Now(),
		Kind:      events.KindInfo,
		Data:      map[string]any{"message": fmt.Sprintf("connected MCP server %s (%d tools)", name, count)},
	})
	return count, nil
}

// DisconnectMCPServer closes a server's subprocess and removes its
// bridged tools. Unknown names are a no-op.
func (a *Agent) DisconnectMCPServer(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.servers[name]
	if !ok {
		return nil
	}

	a.removeServerToolsLocked(name)
	delete(a.servers, name)
	a.rebuildSystemPrompt()

	return entry.client.Close()
}

// Close shuts down all MCP server connections.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for name, entry := range a.servers {
		if err := entry.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(a.servers, name)
	}
	return firstErr
}

// PingMCP checks whether a connected server is responsive.
func (a *Agent) PingMCP(ctx context.Context, name string) error {
	a.mu.Lock()
	entry, ok := a.servers[name]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("MCP server %s is not connected", name)
	}
	return entry.client.Ping(ctx)
}

// MCPServers returns the names of connected servers.
func (a *Agent) MCPServers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.servers))
	for name := range a.servers {
		names = append(names, name)
	}
	return names
}

// dialServer builds a transport and client for one server config and
// runs the handshake.
func (a *Agent) dialServer(ctx context.Context, name string, cfg config.MCPServerConfig) (*mcp.Client, error) {
	transport := mcp.NewStdioTransport(mcp.StdioConfig{
		Command:     cfg.Command,
		Args:        cfg.Args,
		Env:         cfg.Env,
		ReadTimeout: time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:      a.logger,
	})

	client := mcp.NewClient(name, transport, a.logger)
	if err := client.Initialize(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect MCP server %s: %w", name, err)
	}
	return client, nil
}

// mcpHandler proxies a registry tool call to the MCP server, with one
// reconnect attempt on transport failure. A server that answered with a
// JSON-RPC error is alive and talking protocol, so no reconnect happens
// for those.
func (a *Agent) mcpHandler(serverName, mcpToolName string) tools.Handler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		a.mu.Lock()
		entry, ok := a.servers[serverName]
		a.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("MCP server %s is not connected", serverName)
		}

		result, err := entry.client.CallTool(ctx, mcpToolName, args)
		if err == nil {
			return result, nil
		}

		var rpcErr *mcp.RPCError
		if errors.As(err, &rpcErr) {
			return nil, err
		}

		a.logger.Warn("MCP call failed, reconnecting once",
			"server", serverName,
			"tool", mcpToolName,
			"err", err,
		)

		fresh, dialErr := a.dial(ctx, serverName, entry.cfg)
		if dialErr != nil {
			return nil, fmt.Errorf("%w (reconnect failed: %v)", err, dialErr)
		}

		a.mu.Lock()
		_ = entry.client.Close()
		a.servers[serverName] = &serverEntry{client: fresh, cfg: entry.cfg}
		a.mu.Unlock()

		return fresh.CallTool(ctx, mcpToolName, args)
	}
}

// removeServerToolsLocked unregisters all tools bridged from the named
// server. Caller must hold a.mu.
func (a *Agent) removeServerToolsLocked(serverName string) {
	for _, name := range a.registry.Names() {
		if t := a.registry.Find(name); t != nil && t.MCPServer == serverName {
			a.registry.Remove(name)
		}
	}
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}
