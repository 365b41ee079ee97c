// Package events carries structured progress events from the agent loop
// to output sinks. Components emit discrete events (step headers,
// thoughts, tool calls, results, warnings, final answers) and sinks
// decide how to render or forward them. A silent sink exists for
// non-interactive use, and a fan-out bus lets external subscribers
// watch a run without the agent knowing about them.
package events

import "time"

// Kind constants describe the type of event within a query run.
const (
	// KindRequestStart signals the beginning of a query.
	// Data: input.
	KindRequestStart = "request_start"
	// KindStepStart signals the beginning of one loop step.
	// Data: step, limit, state.
	KindStepStart = "step_start"
	// KindThought carries the model's reported thought and goal.
	// Data: thought, goal.
	KindThought = "thought"
	// KindPlan carries an advisory multi-step plan.
	// Data: steps ([]map with tool, tool_args).
	KindPlan = "plan"
	// KindToolStart signals the start of a tool execution.
	// Data: tool.
	KindToolStart = "tool_start"
	// KindToolArgs carries the resolved tool arguments.
	// Data: tool, args.
	KindToolArgs = "tool_args"
	// KindToolResult signals completion of a tool execution.
	// Data: tool, ok, result, duration_ms.
	KindToolResult = "tool_result"
	// KindWarn carries a non-fatal warning. Data: message.
	KindWarn = "warn"
	// KindError carries an error surfaced to the user. Data: message.
	KindError = "error"
	// KindInfo carries informational text. Data: message.
	KindInfo = "info"
	// KindProgressStart brackets the start of a blocking operation.
	// Data: operation.
	KindProgressStart = "progress_start"
	// KindProgressStop brackets the end of a blocking operation.
	// Data: operation.
	KindProgressStop = "progress_stop"
	// KindToken carries one streamed model token. Data: token.
	KindToken = "token"
	// KindFinalAnswer carries the final answer text. Data: answer.
	KindFinalAnswer = "final_answer"
	// KindRequestComplete signals the end of a query.
	// Data: steps, limit, elapsed_ms.
	KindRequestComplete = "request_complete"
)

// Event represents a single progress event emitted by the agent.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// RequestID correlates all events of one query run.
	RequestID string `json:"request_id"`
	// Kind describes the type of event.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Sink receives agent events. Implementations are free to render,
// forward, or drop them. Emit is called synchronously from the agent
// loop and must not block for long.
type Sink interface {
	Emit(e Event)
}

// Silent is a Sink that discards every event.
type Silent struct{}

// Emit implements Sink.
func (Silent) Emit(Event) {}

// Multi fans an event out to several sinks in order.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
