package agent

import (
	"fmt"

	"github.com/arcline/reagent/internal/llm"
)

// truncateResult caps a tool result string for inclusion in the
// conversation. Over-limit results keep the head and tail around an
// elision marker; the middle is where the bulk of a large listing or
// file dump lives and the model rarely needs it.
func (a *Agent) truncateResult(s string) string {
	limit := a.cfg.ToolResultLimit
	if limit <= 0 || len(s) <= limit {
		return s
	}
	head := a.cfg.ToolResultHead
	tail := a.cfg.ToolResultTail
	elided := len(s) - head - tail
	return fmt.Sprintf("%s\n...[%d characters elided]...\n%s", s[:head], elided, s[len(s)-tail:])
}

// foldHistory rewrites this query's tool messages as user messages
// before the history is retained. Some backends reject tool-role
// messages outside an active exchange, and a folded transcript reads
// the same to the model. toolNames maps history index to the tool that
// produced the message.
func foldHistory(history []llm.Message, toolNames map[int]string) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, m := range history {
		if m.Role == llm.RoleTool {
			name := toolNames[i]
			if name == "" {
				name = "tool"
			}
			out[i] = llm.Message{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf("[tool %s] %s", name, m.Content),
			}
			continue
		}
		out[i] = m
	}
	return out
}

// capHistory trims the retained history to the configured bound,
// dropping the oldest messages first.
func (a *Agent) capHistory(history []llm.Message) []llm.Message {
	max := a.cfg.MaxHistoryMessages
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
