package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.URL == "" {
		t.Error("default backend URL is empty")
	}
	if cfg.Agent.MaxSteps != DefaultMaxSteps {
		t.Errorf("MaxSteps = %d, want %d", cfg.Agent.MaxSteps, DefaultMaxSteps)
	}
	if cfg.Agent.LoopWindow != DefaultLoopWindow {
		t.Errorf("LoopWindow = %d, want %d", cfg.Agent.LoopWindow, DefaultLoopWindow)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reagent.yaml")

	content := `
backend:
  url: http://llm.local:8000
  model: test-model
agent:
  max_steps: 12
  loop_window: 6
mcp_servers:
  files:
    command: mcp-files
    args: ["--root", "/tmp"]
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend.URL != "http://llm.local:8000" {
		t.Errorf("URL = %q", cfg.Backend.URL)
	}
	if cfg.Agent.MaxSteps != 12 {
		t.Errorf("MaxSteps = %d, want 12", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.LoopWindow != 6 {
		t.Errorf("LoopWindow = %d, want 6", cfg.Agent.LoopWindow)
	}
	// Unset tunables get defaults.
	if cfg.Agent.MaxHistoryMessages != DefaultMaxHistoryMessages {
		t.Errorf("MaxHistoryMessages = %d, want default %d", cfg.Agent.MaxHistoryMessages, DefaultMaxHistoryMessages)
	}
	srv, ok := cfg.MCPServers["files"]
	if !ok {
		t.Fatal("mcp server 'files' missing")
	}
	if srv.Command != "mcp-files" {
		t.Errorf("Command = %q", srv.Command)
	}
	if srv.TimeoutSec != DefaultMCPTimeoutSec {
		t.Errorf("TimeoutSec = %d, want default %d", srv.TimeoutSec, DefaultMCPTimeoutSec)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("REAGENT_TEST_MODEL", "expanded-model")

	dir := t.TempDir()
	path := filepath.Join(dir, "reagent.yaml")
	content := "backend:\n  url: http://localhost:11434\n  model: ${REAGENT_TEST_MODEL}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Model != "expanded-model" {
		t.Errorf("Model = %q, want %q", cfg.Backend.Model, "expanded-model")
	}
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.Backend.URL = "" }},
		{"missing model", func(c *Config) { c.Backend.Model = "" }},
		{"missing mcp command", func(c *Config) {
			c.MCPServers = map[string]MCPServerConfig{"bad": {}}
		}},
		{"head+tail over limit", func(c *Config) {
			c.Agent.ToolResultLimit = 100
			c.Agent.ToolResultHead = 80
			c.Agent.ToolResultTail = 80
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	if _, err := FindConfig("/nonexistent/reagent.yaml"); err == nil {
		t.Error("FindConfig with missing explicit path should fail")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"Debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{" debug ", slog.LevelDebug, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
