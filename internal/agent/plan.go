package agent

import (
	"strconv"
	"strings"
)

// stepResult records the outcome of one executed tool call within the
// current query, for $PREV/$STEP_n references in later plan steps.
type stepResult struct {
	Tool   string
	Result map[string]any
}

// ResolvePlanArgs substitutes result references in tool arguments.
// String values of the form "$PREV.<field>" resolve against the most
// recent step result, "$STEP_<n>.<field>" against the result of step n
// (0-based).
// Unresolvable references pass through unchanged so the tool (or the
// model, on the next turn) sees what was asked for. Nested maps and
// slices are resolved recursively.
func ResolvePlanArgs(args map[string]any, results []stepResult) map[string]any {
	if len(args) == 0 {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = resolveValue(v, results)
	}
	return out
}

func resolveValue(v any, results []stepResult) any {
	switch t := v.(type) {
	case string:
		if resolved, ok := resolveRef(t, results); ok {
			return resolved
		}
		return t
	case map[string]any:
		return ResolvePlanArgs(t, results)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = resolveValue(item, results)
		}
		return out
	default:
		return v
	}
}

// resolveRef resolves a single "$PREV.field" or "$STEP_n.field"
// reference. Returns ok=false when the string is not a reference or
// the reference cannot be satisfied.
func resolveRef(s string, results []stepResult) (any, bool) {
	var source map[string]any

	switch {
	case strings.HasPrefix(s, "$PREV."):
		if len(results) == 0 {
			return nil, false
		}
		source = results[len(results)-1].Result
		s = strings.TrimPrefix(s, "$PREV.")

	case strings.HasPrefix(s, "$STEP_"):
		rest := strings.TrimPrefix(s, "$STEP_")
		dot := strings.IndexByte(rest, '.')
		if dot <= 0 {
			return nil, false
		}
		n, err := strconv.Atoi(rest[:dot])
		if err != nil || n < 0 || n >= len(results) {
			return nil, false
		}
		source = results[n].Result
		s = rest[dot+1:]

	default:
		return nil, false
	}

	if s == "" || source == nil {
		return nil, false
	}

	// Dotted paths descend into nested result objects.
	var val any = source
	for _, part := range strings.Split(s, ".") {
		obj, ok := val.(map[string]any)
		if !ok {
			return nil, false
		}
		val, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return val, true
}
