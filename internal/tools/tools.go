// Package tools defines the registry of tools callable by the agent.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ParamType enumerates JSON Schema primitive types for tool parameters.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeUnknown ParamType = "unknown"
)

// ParamTypeOf normalizes a JSON Schema type string to a ParamType.
func ParamTypeOf(s string) ParamType {
	switch s {
	case "string", "integer", "number", "boolean", "array", "object":
		return ParamType(s)
	default:
		return TypeUnknown
	}
}

// Parameter describes one tool argument.
type Parameter struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
}

// Handler executes a tool. Arguments and results are plain JSON
// objects. Errors are signaled by the error return; handlers may also
// return a result carrying {"status":"error"} themselves.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool represents a callable tool.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`

	// Atomic marks tools that must not be interleaved with partial
	// local state. All MCP-backed tools are atomic.
	Atomic bool `json:"atomic,omitempty"`

	// MCPServer and MCPToolName identify the origin of a bridged MCP
	// tool. Both are empty for native tools.
	MCPServer   string `json:"mcp_server,omitempty"`
	MCPToolName string `json:"mcp_tool_name,omitempty"`
}

// Registry holds available tools keyed by unique name. It is owned by
// a single agent and is not safe for concurrent mutation.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering an existing name is a
// programming error and fails.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool must have a name")
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q is already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Remove deletes a tool by exact name. Removing an unknown name is a
// no-op.
func (r *Registry) Remove(name string) {
	delete(r.tools, name)
}

// Find retrieves a tool by exact name, or nil.
func (r *Registry) Find(name string) *Tool {
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Resolve maps a bare tool name to a registered one. Models routinely
// call a bridged MCP tool without its server prefix ("Shell" instead of
// "mcp_files_shell"), so Resolve tries, in order:
//
//  1. a unique case-insensitive suffix match on "_" + name
//  2. a unique case-insensitive exact match
//
// Ambiguous names are never silently resolved: zero or multiple
// candidates yield "".
func (r *Registry) Resolve(name string) string {
	lower := strings.ToLower(name)

	match := ""
	count := 0
	for key := range r.tools {
		if strings.HasSuffix(strings.ToLower(key), "_"+lower) {
			match = key
			count++
		}
	}
	if count == 1 {
		return match
	}

	match = ""
	count = 0
	for key := range r.tools {
		if strings.ToLower(key) == lower {
			match = key
			count++
		}
	}
	if count == 1 {
		return match
	}
	return ""
}

// Execute runs a tool by name. Failures never propagate: an unknown
// name, a handler error, or a handler panic all become structured
// error results.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result map[string]any) {
	tool := r.tools[name]
	if tool == nil {
		if resolved := r.Resolve(name); resolved != "" {
			tool = r.tools[resolved]
		}
	}
	if tool == nil {
		return ErrorResult(fmt.Sprintf("Tool '%s' not found", name))
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = ErrorResult(fmt.Sprintf("Tool execution failed: %v", rec))
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	out, err := tool.Handler(ctx, args)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Tool execution failed: %s", err))
	}
	if out == nil {
		return map[string]any{"status": "ok"}
	}
	return out
}

// ErrorResult builds the conventional structured error result.
func ErrorResult(msg string) map[string]any {
	return map[string]any{"status": "error", "error": msg}
}

// IsErrorResult reports whether a tool result carries the error marker,
// and returns the error text when it does.
func IsErrorResult(result map[string]any) (string, bool) {
	if result == nil {
		return "", false
	}
	if status, _ := result["status"].(string); status != "error" {
		return "", false
	}
	msg, _ := result["error"].(string)
	return msg, true
}

// FormatForPrompt renders the registry for inclusion in the system
// prompt, one line per tool sorted by name:
//
//	name(param: type, optional?: type): description
func (r *Registry) FormatForPrompt() string {
	var sb strings.Builder
	for _, name := range r.Names() {
		tool := r.tools[name]
		sb.WriteString(tool.Name)
		sb.WriteString("(")
		for i, p := range tool.Parameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
			if !p.Required {
				sb.WriteString("?")
			}
			sb.WriteString(": ")
			sb.WriteString(string(p.Type))
		}
		sb.WriteString("): ")
		sb.WriteString(tool.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}
