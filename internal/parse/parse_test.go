package parse

import (
	"strings"
	"testing"
)

func TestParse_PlainTextIsAnswer(t *testing.T) {
	tests := []string{
		"The capital of France is Paris.",
		"  indented prose  ",
		"multi\nline\nanswer",
		"[1, 2, 3] is a list",
	}

	for _, in := range tests {
		got := Parse(in)
		if got.IsToolCall() {
			t.Errorf("Parse(%q) produced a tool call", in)
		}
		if !got.HasAnswer || got.Answer != strings.TrimSpace(in) {
			t.Errorf("Parse(%q).Answer = %q, want trimmed input", in, got.Answer)
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		got := Parse(in)
		if !got.HasAnswer || !strings.Contains(got.Answer, "empty response") {
			t.Errorf("Parse(%q).Answer = %q, want empty-response message", in, got.Answer)
		}
	}
}

func TestParse_DirectToolCall(t *testing.T) {
	got := Parse(`{"thought":"t","goal":"g","tool":"X","tool_args":{"a":1}}`)

	if got.Tool != "X" {
		t.Fatalf("Tool = %q, want %q", got.Tool, "X")
	}
	if got.Thought != "t" || got.Goal != "g" {
		t.Errorf("Thought/Goal = %q/%q, want t/g", got.Thought, got.Goal)
	}
	if v, ok := got.ToolArgs["a"].(float64); !ok || v != 1 {
		t.Errorf("ToolArgs = %v, want {a:1}", got.ToolArgs)
	}
	if got.HasAnswer {
		t.Error("answer set on a tool call response")
	}
}

func TestParse_ToolWithoutArgsDefaultsToEmpty(t *testing.T) {
	got := Parse(`{"thought":"t","tool":"list_files"}`)

	if got.Tool != "list_files" {
		t.Fatalf("Tool = %q", got.Tool)
	}
	if got.ToolArgs == nil || len(got.ToolArgs) != 0 {
		t.Errorf("ToolArgs = %v, want empty object", got.ToolArgs)
	}
}

func TestParse_ToolWinsOverAnswer(t *testing.T) {
	got := Parse(`{"thought":"t","tool":"X","tool_args":{},"answer":"ignored"}`)

	if got.Tool != "X" {
		t.Fatalf("Tool = %q, want X", got.Tool)
	}
	if got.HasAnswer {
		t.Error("answer must be ignored when a tool call is present")
	}
}

func TestParse_FencedJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"json fence", "```json\n{\"thought\":\"t\",\"answer\":\"42\"}\n```"},
		{"bare fence", "```\n{\"thought\":\"t\",\"answer\":\"42\"}\n```"},
		{"json tag", `<json>{"thought":"t","answer":"42"}</json>`},
		{"fence with prose", "Here you go:\n```json\n{\"thought\":\"t\",\"answer\":\"42\"}\n```\nHope that helps."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if !got.HasAnswer || got.Answer != "42" {
				t.Errorf("Answer = %q (hasAnswer=%v), want %q", got.Answer, got.HasAnswer, "42")
			}
		})
	}
}

func TestParse_TrailingJunkAfterObject(t *testing.T) {
	got := Parse(`{"thought":"t","answer":"ok"} I hope this helps!`)

	if !got.HasAnswer || got.Answer != "ok" {
		t.Errorf("Answer = %q, want %q", got.Answer, "ok")
	}
}

func TestParse_Plan(t *testing.T) {
	in := `{"thought":"t","goal":"g","plan":[{"tool":"a","tool_args":{"x":1}},{"tool":"b"}]}`
	got := Parse(in)

	if len(got.Plan) != 2 {
		t.Fatalf("len(Plan) = %d, want 2", len(got.Plan))
	}
	// Plan without a top-level tool promotes the first step.
	if got.Tool != "a" {
		t.Errorf("Tool = %q, want %q", got.Tool, "a")
	}
	if got.Plan[1].Tool != "b" || len(got.Plan[1].Args) != 0 {
		t.Errorf("Plan[1] = %+v", got.Plan[1])
	}
}

func TestParse_NumericAnswerStringified(t *testing.T) {
	got := Parse(`{"thought":"t","answer":4}`)
	if got.Answer != "4" {
		t.Errorf("Answer = %q, want %q", got.Answer, "4")
	}
}

func TestParse_SalvageFromBrokenJSON(t *testing.T) {
	// Truncated object: direct, fenced, balanced, and repaired all fail.
	in := `{"thought": "check disk", "tool": "disk_usage", "tool_args": {"path": "/"}`
	got := Parse(in)

	if got.Tool != "disk_usage" {
		t.Fatalf("Tool = %q, want disk_usage", got.Tool)
	}
	if p, _ := got.ToolArgs["path"].(string); p != "/" {
		t.Errorf("ToolArgs = %v, want path=/", got.ToolArgs)
	}
	if got.Thought != "check disk" {
		t.Errorf("Thought = %q", got.Thought)
	}
}

func TestParse_UnsalvageableFallsBackToRawText(t *testing.T) {
	in := "{this is not json at all"
	got := Parse(in)

	if got.IsToolCall() {
		t.Error("unexpected tool call")
	}
	if got.Answer != in {
		t.Errorf("Answer = %q, want raw input", got.Answer)
	}
}

func TestFixCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing comma object", `{"a": 1, }`, `{"a": 1}`},
		{"trailing comma array", `[1, 2, ]`, `[1, 2]`},
		{"leading prose", `Sure! {"a":1}`, `{"a":1}`},
		{"single quotes", `{'k':'v'}`, `{"k":"v"}`},
		{"single quotes kept when doubles exist", `{"k":"it's"}`, `{"k":"it's"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixCommonErrors(tt.in); got != tt.want {
				t.Errorf("FixCommonErrors(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_RepairedSingleQuotes(t *testing.T) {
	got := Parse(`{'thought': 't', 'answer': 'v'}`)
	if !got.HasAnswer || got.Answer != "v" {
		t.Errorf("Answer = %q (hasAnswer=%v), want v", got.Answer, got.HasAnswer)
	}
}

func TestExtractBalanced(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"braces in strings", `noise {"x":"a{b}c"} trailing`, `{"x":"a{b}c"}`, true},
		{"nested objects", `{"a":{"b":{"c":1}}}`, `{"a":{"b":{"c":1}}}`, true},
		{"escaped quote", `{"x":"he said \"hi\" {"}`, `{"x":"he said \"hi\" {"}`, true},
		{"unbalanced", `{"x": 1`, "", false},
		{"no object", `plain text`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractBalanced(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractBalanced(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid tool call", func(t *testing.T) {
		obj, err := Validate(`{"thought":"t","tool":"X","tool_args":{}}`)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if obj["tool"] != "X" {
			t.Errorf("tool = %v", obj["tool"])
		}
	})

	t.Run("missing thought", func(t *testing.T) {
		_, err := Validate(`{"answer":"42"}`)
		if err == nil {
			t.Fatal("expected error for missing thought")
		}
		if !strings.Contains(err.Error(), "thought") {
			t.Errorf("error %q does not mention thought", err)
		}
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := Validate("{{{{nope")
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := Validate("   "); err == nil {
			t.Fatal("expected error")
		}
	})
}
