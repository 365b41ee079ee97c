package agent

import (
	"strings"

	"github.com/arcline/reagent/internal/tools"
)

// buildSystemPrompt renders the JSON action contract plus the current
// tool inventory. The model must answer with exactly one JSON object
// per turn: either a final answer or a tool call, optionally preceded
// by a plan.
func buildSystemPrompt(registry *tools.Registry) string {
	var sb strings.Builder

	sb.WriteString(`You are a capable assistant that solves tasks by reasoning and calling tools.

Respond with EXACTLY ONE JSON object per turn and nothing else. Two forms are valid:

To answer the user directly:
{"thought": "<your reasoning>", "answer": "<final answer text>"}

To call a tool:
{"thought": "<your reasoning>", "goal": "<what this call achieves>", "tool": "<tool name>", "tool_args": {<arguments>}}

For multi-step work you may include an upfront plan; its first step will run immediately:
{"thought": "<your reasoning>", "plan": [{"tool": "<name>", "tool_args": {<arguments>}}, ...]}

Plan steps may reference earlier results: "$PREV.<field>" is a field of the
previous step's result, "$STEP_<n>.<field>" a field of step n (0-based).

Rules:
- "thought" is always required.
- Never combine "answer" and "tool" in one object.
- Call only tools listed below, with their exact names.
- After a tool result arrives, decide: another tool call, or a final answer.
`)

	if registry != nil && registry.Len() > 0 {
		sb.WriteString("\nAvailable tools:\n")
		sb.WriteString(registry.FormatForPrompt())
	} else {
		sb.WriteString("\nNo tools are currently available. Answer from your own knowledge.\n")
	}

	return sb.String()
}
