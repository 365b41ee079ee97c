package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func noopTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "noop",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"status": "ok"}, nil
		},
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(noopTool("shell")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(noopTool("shell")); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}

func TestRegisterInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatal("expected error for nil tool")
	}
	if err := r.Register(&Tool{}); err == nil {
		t.Fatal("expected error for unnamed tool")
	}
}

func TestResolve(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"mcp_files_shell", "mcp_files_read_file", "web_search"} {
		if err := r.Register(noopTool(name)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		in   string
		want string
	}{
		{"shell", "mcp_files_shell"},
		{"Shell", "mcp_files_shell"},
		{"read_file", "mcp_files_read_file"},
		{"web_search", "web_search"},
		{"WEB_SEARCH", "web_search"},
		{"nonexistent", ""},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveAmbiguous(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(noopTool("mcp_serverA_shell")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(noopTool("mcp_serverB_shell")); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve("shell"); got != "" {
		t.Errorf("ambiguous Resolve returned %q, want empty", got)
	}
}

func TestExecuteNotFound(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "missing", nil)
	msg, isErr := IsErrorResult(result)
	if !isErr {
		t.Fatalf("expected error result, got %v", result)
	}
	if !strings.Contains(msg, "Tool 'missing' not found") {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestExecuteHandlerError(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Tool{
		Name:        "failing",
		Description: "always fails",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, errors.New("disk full")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	result := r.Execute(context.Background(), "failing", nil)
	msg, isErr := IsErrorResult(result)
	if !isErr {
		t.Fatalf("expected error result, got %v", result)
	}
	if !strings.Contains(msg, "disk full") || !strings.Contains(msg, "Tool execution failed") {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestExecutePanicRecovery(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Tool{
		Name:        "panicky",
		Description: "panics",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			panic("index out of range")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	result := r.Execute(context.Background(), "panicky", nil)
	msg, isErr := IsErrorResult(result)
	if !isErr {
		t.Fatalf("expected error result, got %v", result)
	}
	if !strings.Contains(msg, "index out of range") {
		t.Errorf("panic message not surfaced: %q", msg)
	}
}

func TestExecuteResolvesName(t *testing.T) {
	r := NewRegistry()
	called := false
	err := r.Register(&Tool{
		Name:        "mcp_files_shell",
		Description: "run a command",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			called = true
			return map[string]any{"status": "ok"}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	result := r.Execute(context.Background(), "shell", map[string]any{"cmd": "ls"})
	if _, isErr := IsErrorResult(result); isErr {
		t.Fatalf("unexpected error result: %v", result)
	}
	if !called {
		t.Error("handler was not invoked through resolved name")
	}
}

func TestExecuteNilArgsAndNilResult(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Tool{
		Name:        "quiet",
		Description: "returns nothing",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			if args == nil {
				t.Error("args should never be nil inside handler")
			}
			return nil, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	result := r.Execute(context.Background(), "quiet", nil)
	if result["status"] != "ok" {
		t.Errorf("nil handler result should become ok status, got %v", result)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(noopTool("temp")); err != nil {
		t.Fatal(err)
	}
	r.Remove("temp")
	if r.Find("temp") != nil {
		t.Error("tool still present after Remove")
	}
	r.Remove("temp") // no-op
}

func TestFormatForPrompt(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Tool{
		Name:        "web_search",
		Description: "search the web",
		Parameters: []Parameter{
			{Name: "query", Type: TypeString, Required: true},
			{Name: "limit", Type: TypeInteger, Required: false},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register(noopTool("calc")); err != nil {
		t.Fatal(err)
	}

	got := r.FormatForPrompt()
	want := "calc(): noop\nweb_search(query: string, limit?: integer): search the web\n"
	if got != want {
		t.Errorf("FormatForPrompt:\ngot  %q\nwant %q", got, want)
	}
}

func TestParamTypeOf(t *testing.T) {
	if ParamTypeOf("string") != TypeString {
		t.Error("string should map to TypeString")
	}
	if ParamTypeOf("weird") != TypeUnknown {
		t.Error("unknown schema type should map to TypeUnknown")
	}
}
