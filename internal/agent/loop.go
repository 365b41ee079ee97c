package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arcline/reagent/internal/events"
	"github.com/arcline/reagent/internal/llm"
	"github.com/arcline/reagent/internal/parse"
	"github.com/arcline/reagent/internal/tools"
)

// ProcessQuery runs one user request through the execution loop until a
// final answer emerges or the step budget runs out. It always returns a
// usable Result; the error is non-nil only when the backend itself
// became unreachable.
func (a *Agent) ProcessQuery(ctx context.Context, input string) (Result, error) {
	requestID := newRequestID()
	started := time.Now()

	emit := func(kind string, data map[string]any) {
		a.sink.Emit(events.Event{
			Timestamp: time.Now(),
			RequestID: requestID,
			Kind:      kind,
			Data:      data,
		})
	}

	log := a.logger.With("request_id", requestID)
	log.Info("processing query", "input_len", len(input))
	emit(events.KindRequestStart, map[string]any{"input": input})

	a.mu.Lock()
	history := append([]llm.Message(nil), a.history...)
	systemPrompt := a.systemPrompt
	a.mu.Unlock()

	history = append(history, llm.Message{Role: llm.RoleUser, Content: input})
	toolNames := make(map[int]string)

	var (
		state       = StatePlanning
		stepResults []stepResult
		lastErr     string
		lastCall    string
		repeats     int
		answer      string
		fatalErr    error
		steps       int
	)

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		steps = step
		emit(events.KindStepStart, map[string]any{
			"step": step, "limit": a.cfg.MaxSteps, "state": state.String(),
		})

		if state == StateErrorRecovery {
			recovery := fmt.Sprintf(
				"The previous tool call failed: %q. Reconsider your approach and continue working on the original request: %q",
				lastErr, input,
			)
			history = append(history, llm.Message{Role: llm.RoleUser, Content: recovery})
			stepResults = nil
			state = StatePlanning
		}

		messages := make([]llm.Message, 0, len(history)+1)
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
		messages = append(messages, history...)

		emit(events.KindProgressStart, map[string]any{"operation": "model"})
		raw, err := a.chatWithRetry(ctx, emit, messages)
		emit(events.KindProgressStop, nil)
		if err != nil {
			log.Error("backend unreachable", "err", err)
			answer = fmt.Sprintf("I could not reach the model backend: %v", err)
			fatalErr = err
			emit(events.KindError, map[string]any{"message": answer})
			break
		}

		resp := parse.Parse(raw)

		if resp.Thought != "" || resp.Goal != "" {
			emit(events.KindThought, map[string]any{"thought": resp.Thought, "goal": resp.Goal})
		}
		if len(resp.Plan) > 0 {
			emit(events.KindPlan, map[string]any{"steps": planData(resp.Plan)})
		}

		if !resp.IsToolCall() {
			answer = resp.Answer
			history = append(history, llm.Message{Role: llm.RoleAssistant, Content: raw})
			state = StateCompletion
			break
		}

		// Non-progress guard: the same call repeated LoopWindow times
		// executes; one more aborts the run instead of executing again.
		callKey := callFingerprint(resp.Tool, resp.ToolArgs)
		if callKey == lastCall {
			repeats++
		} else {
			lastCall = callKey
			repeats = 1
		}
		if repeats > a.cfg.LoopWindow {
			answer = fmt.Sprintf(
				"I stopped because I kept repeating the same tool call (%s) without making progress.",
				resp.Tool,
			)
			emit(events.KindWarn, map[string]any{"message": "repeated tool call loop detected"})
			history = append(history, llm.Message{Role: llm.RoleAssistant, Content: answer})
			state = StateCompletion
			break
		}

		args := ResolvePlanArgs(resp.ToolArgs, stepResults)

		emit(events.KindToolStart, map[string]any{"tool": resp.Tool})
		emit(events.KindToolArgs, map[string]any{"tool": resp.Tool, "args": args})

		execStart := time.Now()
		result := a.registry.Execute(ctx, resp.Tool, args)
		elapsed := time.Since(execStart)

		errMsg, failed := tools.IsErrorResult(result)
		emit(events.KindToolResult, map[string]any{
			"tool":        resp.Tool,
			"ok":          !failed,
			"result":      result,
			"duration_ms": elapsed.Milliseconds(),
		})
		log.Debug("tool executed",
			"tool", resp.Tool,
			"ok", !failed,
			"duration", elapsed,
		)

		stepResults = append(stepResults, stepResult{Tool: resp.Tool, Result: result})

		history = append(history, llm.Message{Role: llm.RoleAssistant, Content: raw})
		resultJSON, merr := json.Marshal(result)
		if merr != nil {
			resultJSON = []byte(fmt.Sprintf(`{"status":"error","error":%q}`, merr.Error()))
		}
		history = append(history, llm.Message{Role: llm.RoleTool, Content: a.truncateResult(string(resultJSON))})
		toolNames[len(history)-1] = resp.Tool

		switch {
		case failed:
			lastErr = errMsg
			state = StateErrorRecovery
		case len(resp.Plan) > 0 || state == StateExecutingPlan:
			state = StateExecutingPlan
		default:
			state = StateDirectExecution
		}
	}

	if answer == "" {
		answer = fmt.Sprintf(
			"Reached the maximum of %d steps without completing the request.",
			a.cfg.MaxSteps,
		)
		history = append(history, llm.Message{Role: llm.RoleAssistant, Content: answer})
	}

	a.mu.Lock()
	a.history = a.capHistory(foldHistory(history, toolNames))
	a.mu.Unlock()

	emit(events.KindFinalAnswer, map[string]any{"answer": answer})
	emit(events.KindRequestComplete, map[string]any{
		"steps":      steps,
		"limit":      a.cfg.MaxSteps,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	log.Info("query complete", "steps", steps, "state", state.String(), "elapsed", time.Since(started))

	return Result{Answer: answer, StepsTaken: steps, StepsLimit: a.cfg.MaxSteps}, fatalErr
}

// chatWithRetry calls the backend, retrying once on failure. Two
// consecutive failures are treated as the backend being down.
func (a *Agent) chatWithRetry(ctx context.Context, emit func(string, map[string]any), messages []llm.Message) (string, error) {
	raw, err := a.chat(ctx, emit, messages)
	if err == nil {
		return raw, nil
	}

	a.logger.Warn("chat request failed, retrying once", "err", err)
	emit(events.KindWarn, map[string]any{"message": fmt.Sprintf("model request failed, retrying: %v", err)})

	return a.chat(ctx, emit, messages)
}

func (a *Agent) chat(ctx context.Context, emit func(string, map[string]any), messages []llm.Message) (string, error) {
	if a.cfg.Streaming {
		return a.llm.ChatStream(ctx, a.model, messages, func(token string) {
			emit(events.KindToken, map[string]any{"token": token})
		})
	}
	return a.llm.Chat(ctx, a.model, messages)
}

// callFingerprint serializes a tool call for repeat detection. JSON
// marshaling sorts map keys, so equal calls fingerprint equally.
func callFingerprint(tool string, args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", args))
	}
	return tool + ":" + string(data)
}

func planData(plan []parse.PlanStep) []map[string]any {
	out := make([]map[string]any, len(plan))
	for i, step := range plan {
		out[i] = map[string]any{"tool": step.Tool, "tool_args": step.Args}
	}
	return out
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
