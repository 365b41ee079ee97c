// Package parse extracts a structured action from raw model output.
//
// Models are asked to reply with a JSON object carrying either a final
// answer or a tool call, but real output is frequently malformed:
// wrapped in code fences, prefixed with prose, using single quotes, or
// cut off mid-object. Parse is a total function over that mess: it
// tries a sequence of independent strategies and always returns
// something usable. Validate is the strict sibling for callers that
// want an error instead of best-effort salvage.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// EmptyResponseAnswer is returned as the answer when the model produced
// no output at all.
const EmptyResponseAnswer = "The model returned an empty response."

// PlanStep is one step of an advisory multi-step plan.
type PlanStep struct {
	Tool string
	Args map[string]any
}

// Response is the structured action extracted from model output.
// Exactly one of Answer or Tool is meaningful for execution: when a
// tool call is present, any answer text is ignored (tool-call-wins is a
// deliberate choice, preserved for compatibility with the models this
// contract was tuned against).
type Response struct {
	Thought string
	Goal    string

	// Answer is the final answer text; HasAnswer reports whether it
	// was populated (the empty string is a valid answer).
	Answer    string
	HasAnswer bool

	// Tool and ToolArgs describe a tool call. Tool == "" means no call.
	Tool     string
	ToolArgs map[string]any

	// Plan is advisory; when present without a top-level tool, the
	// first step is promoted to the executable call.
	Plan []PlanStep
}

// IsToolCall reports whether the response requests a tool execution.
func (r Response) IsToolCall() bool { return r.Tool != "" }

// Parse extracts a structured action from raw model output. It never
// fails: if no strategy yields a tool call or an answer, the raw text
// itself becomes the answer.
func Parse(raw string) Response {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Response{Answer: EmptyResponseAnswer, HasAnswer: true}
	}

	// Fast path: plain prose with no embedded JSON block is a
	// conversational answer.
	if !strings.HasPrefix(trimmed, "{") &&
		!strings.Contains(trimmed, "```") &&
		!strings.Contains(trimmed, "<json>") {
		return Response{Answer: trimmed, HasAnswer: true}
	}

	for _, strategy := range objectStrategies {
		obj, ok := strategy(trimmed)
		if !ok {
			continue
		}
		if resp, ok := fromObject(obj); ok {
			return resp
		}
	}

	if resp, ok := salvage(raw); ok {
		return resp
	}

	return Response{Answer: trimmed, HasAnswer: true}
}

// Validate is the strict variant of Parse. It requires a thought field
// whenever the object carries an answer or a tool call, and returns an
// error naming the original parse failure when every strategy is
// exhausted.
func Validate(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty model output")
	}

	var firstErr error
	if err := json.Unmarshal([]byte(trimmed), &map[string]any{}); err != nil {
		firstErr = err
	}

	for _, strategy := range objectStrategies {
		obj, ok := strategy(trimmed)
		if !ok {
			continue
		}
		_, hasAnswer := obj["answer"]
		_, hasTool := obj["tool"]
		if hasAnswer || hasTool {
			if _, ok := obj["thought"].(string); !ok {
				return nil, fmt.Errorf("model output is missing the required thought field")
			}
		}
		return obj, nil
	}

	if firstErr != nil {
		return nil, fmt.Errorf("unparseable model output: %w", firstErr)
	}
	return nil, fmt.Errorf("model output contains no JSON object")
}

// objectStrategies are tried in order; each is a pure function from
// text to a candidate JSON object. No strategy mutates shared state, so
// each is independently testable.
var objectStrategies = []func(string) (map[string]any, bool){
	parseDirect,
	parseFenced,
	parseBalanced,
	parseRepaired,
}

// parseDirect attempts a strict JSON parse of the whole text.
func parseDirect(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}

var fenceRes = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(.*?)```"),
	regexp.MustCompile("(?s)```\\s*(.*?)```"),
	regexp.MustCompile(`(?s)<json>\s*(.*?)\s*</json>`),
}

// parseFenced extracts JSON from fenced code blocks or <json> tags.
func parseFenced(s string) (map[string]any, bool) {
	for _, re := range fenceRes {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if obj, ok := parseDirect(strings.TrimSpace(m[1])); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseBalanced extracts the first balanced {...} object from the text.
func parseBalanced(s string) (map[string]any, bool) {
	candidate, ok := ExtractBalanced(s)
	if !ok {
		return nil, false
	}
	return parseDirect(candidate)
}

// parseRepaired applies common-error fixes and retries the parse.
func parseRepaired(s string) (map[string]any, bool) {
	fixed := FixCommonErrors(s)
	if fixed == s {
		return nil, false
	}
	if obj, ok := parseDirect(fixed); ok {
		return obj, true
	}
	return parseBalanced(fixed)
}

// ExtractBalanced scans for the first syntactically balanced JSON
// object in s. The scan is string-aware: braces inside quoted string
// literals (including backslash escapes) do not affect nesting depth.
func ExtractBalanced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// FixCommonErrors applies the repairs that recover the bulk of
// malformed model JSON: text before the first brace or bracket is
// stripped, trailing commas are dropped, and single quotes become
// double quotes when the text contains no double quotes at all (a
// Python-repr habit some models have).
func FixCommonErrors(s string) string {
	// Strip leading prose before the first { or [.
	objIdx := strings.IndexByte(s, '{')
	arrIdx := strings.IndexByte(s, '[')
	start := objIdx
	if start < 0 || (arrIdx >= 0 && arrIdx < start) {
		start = arrIdx
	}
	if start > 0 {
		s = s[start:]
	}

	s = trailingCommaRe.ReplaceAllString(s, "$1")

	if !strings.Contains(s, `"`) {
		s = strings.ReplaceAll(s, "'", `"`)
	}

	return s
}

// fromObject interprets a parsed JSON object as a Response. It reports
// false when the object carries neither a tool call, a plan, nor an
// answer, so the caller can keep falling back.
func fromObject(obj map[string]any) (Response, bool) {
	resp := Response{}
	resp.Thought, _ = obj["thought"].(string)
	resp.Goal, _ = obj["goal"].(string)

	if rawPlan, ok := obj["plan"].([]any); ok {
		for _, rawStep := range rawPlan {
			step, ok := rawStep.(map[string]any)
			if !ok {
				continue
			}
			tool, _ := step["tool"].(string)
			if tool == "" {
				continue
			}
			args, _ := step["tool_args"].(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			resp.Plan = append(resp.Plan, PlanStep{Tool: tool, Args: args})
		}
	}

	if tool, ok := obj["tool"].(string); ok && tool != "" {
		resp.Tool = tool
		if args, ok := obj["tool_args"].(map[string]any); ok {
			resp.ToolArgs = args
		} else {
			resp.ToolArgs = map[string]any{}
		}
		return resp, true
	}

	if len(resp.Plan) > 0 {
		resp.Tool = resp.Plan[0].Tool
		resp.ToolArgs = resp.Plan[0].Args
		return resp, true
	}

	if answer, ok := obj["answer"]; ok {
		resp.Answer = stringify(answer)
		resp.HasAnswer = true
		return resp, true
	}

	return resp, false
}

// stringify renders an answer value as text. Models occasionally put a
// number or an object in the answer field.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

var (
	thoughtFieldRe = regexp.MustCompile(`"thought"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	toolFieldRe    = regexp.MustCompile(`"tool"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	answerFieldRe  = regexp.MustCompile(`"answer"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	toolArgsMarkRe = regexp.MustCompile(`"tool_args"\s*:`)
)

// salvage extracts individual fields via targeted regexes when no
// strategy produced a whole object. Last resort before giving up.
func salvage(raw string) (Response, bool) {
	resp := Response{}
	resp.Thought = salvageString(thoughtFieldRe, raw)

	if tool := salvageString(toolFieldRe, raw); tool != "" {
		resp.Tool = tool
		resp.ToolArgs = map[string]any{}
		if loc := toolArgsMarkRe.FindStringIndex(raw); loc != nil {
			if candidate, ok := ExtractBalanced(raw[loc[1]:]); ok {
				var args map[string]any
				if err := json.Unmarshal([]byte(candidate), &args); err == nil {
					resp.ToolArgs = args
				}
			}
		}
		return resp, true
	}

	if m := answerFieldRe.FindStringSubmatch(raw); m != nil {
		resp.Answer = unescapeField(m[1])
		resp.HasAnswer = true
		return resp, true
	}

	return Response{}, false
}

func salvageString(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return unescapeField(m[1])
}

// unescapeField decodes JSON string escapes in a regex-captured field
// body, falling back to the raw capture when decoding fails.
func unescapeField(body string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &out); err != nil {
		return body
	}
	return out
}
