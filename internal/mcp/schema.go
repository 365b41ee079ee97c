package mcp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arcline/reagent/internal/tools"
)

// sanitizeRe matches characters that are not lowercase alphanumeric or underscore.
var sanitizeRe = regexp.MustCompile(`[^a-z0-9_]`)

// ToolName generates the namespaced registry name for an MCP tool:
// "mcp_{serverName}_{toolName}". Both components are sanitized to
// lowercase alphanumerics and underscores so collisions with native
// tools are impossible by construction.
func ToolName(serverName, mcpToolName string) string {
	return fmt.Sprintf("mcp_%s_%s", sanitize(serverName), sanitize(mcpToolName))
}

// ToolFromDefinition converts an MCP tool definition into a registry
// tool. The handler is left nil; the caller wires execution, which may
// involve reconnect logic beyond a plain CallTool.
func ToolFromDefinition(serverName string, td ToolDefinition) *tools.Tool {
	return &tools.Tool{
		Name:        ToolName(serverName, td.Name),
		Description: td.Description,
		Parameters:  parametersFromSchema(td.InputSchema),
		Atomic:      true,
		MCPServer:   serverName,
		MCPToolName: td.Name,
	}
}

// parametersFromSchema extracts typed parameters from an MCP
// inputSchema (a JSON Schema object). Schemas that are missing or
// malformed yield no parameters rather than an error: the tool is
// still callable, just undescribed.
func parametersFromSchema(schema map[string]any) []tools.Parameter {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	required := map[string]bool{}
	if reqList, ok := schema["required"].([]any); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	params := make([]tools.Parameter, 0, len(props))
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		params = append(params, tools.Parameter{
			Name:        name,
			Type:        tools.ParamTypeOf(typ),
			Required:    required[name],
			Description: desc,
		})
	}

	// Required parameters first, then alphabetical, so prompt rendering
	// is deterministic.
	sortParameters(params)
	return params
}

func sortParameters(params []tools.Parameter) {
	for i := 1; i < len(params); i++ {
		for j := i; j > 0 && paramLess(params[j], params[j-1]); j-- {
			params[j], params[j-1] = params[j-1], params[j]
		}
	}
}

func paramLess(a, b tools.Parameter) bool {
	if a.Required != b.Required {
		return a.Required
	}
	return a.Name < b.Name
}

// sanitize converts a name to lowercase and replaces anything outside
// [a-z0-9_] with underscores. Runs of underscores collapse and edges
// are trimmed.
func sanitize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "-", "_")
	s = sanitizeRe.ReplaceAllString(s, "_")

	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}

	return strings.Trim(s, "_")
}
