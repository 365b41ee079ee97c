// Package config handles reagent configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load and Default when the file leaves a field unset.
const (
	DefaultMaxSteps           = 8
	DefaultMaxHistoryMessages = 40
	DefaultLoopWindow         = 4
	DefaultContextSize        = 8192
	DefaultToolResultLimit    = 20000
	DefaultToolResultHead     = 10000
	DefaultToolResultTail     = 5000
	DefaultBackendTimeoutSec  = 300
	DefaultMCPTimeoutSec      = 30
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from --config flag) is checked first.
// Then: ./reagent.yaml, ~/.config/reagent/config.yaml, /etc/reagent/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"reagent.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reagent", "config.yaml"))
	}

	paths = append(paths, "/etc/reagent/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all reagent configuration.
type Config struct {
	Backend    BackendConfig              `yaml:"backend"`
	Agent      AgentConfig                `yaml:"agent"`
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers"`
	LogLevel   string                     `yaml:"log_level"`
}

// BackendConfig defines the LLM backend connection.
type BackendConfig struct {
	// URL is the base URL of the chat completion backend.
	URL string `yaml:"url"`
	// Model is the model identifier sent with every request.
	Model string `yaml:"model"`
	// TimeoutSec bounds a single chat request (default 300).
	TimeoutSec int `yaml:"timeout_sec"`
}

// AgentConfig tunes the agent execution loop. All fields are fixed at
// agent construction and never mutated during a run.
type AgentConfig struct {
	// MaxSteps is the per-query step budget (default 8).
	MaxSteps int `yaml:"max_steps"`
	// MaxHistoryMessages bounds the retained conversation history (default 40).
	MaxHistoryMessages int `yaml:"max_history_messages"`
	// LoopWindow is the number of consecutive identical tool calls that
	// trips the non-progress guard (default 4).
	LoopWindow int `yaml:"loop_window"`
	// ContextSize is the advertised model context window in tokens.
	ContextSize int `yaml:"context_size"`
	// ToolResultLimit caps tool results folded into the conversation;
	// longer results keep ToolResultHead + ToolResultTail characters
	// around an elision marker.
	ToolResultLimit int `yaml:"tool_result_limit"`
	ToolResultHead  int `yaml:"tool_result_head"`
	ToolResultTail  int `yaml:"tool_result_tail"`
	// Debug enables verbose event output.
	Debug bool `yaml:"debug"`
	// Streaming enables token streaming from the backend when supported.
	Streaming bool `yaml:"streaming"`
	// Silent suppresses all console output (events still flow to sinks).
	Silent bool `yaml:"silent"`
}

// MCPServerConfig defines one MCP tool-server subprocess.
type MCPServerConfig struct {
	// Command is the executable to run.
	Command string `yaml:"command"`
	// Args are command-line arguments passed to the executable.
	Args []string `yaml:"args"`
	// Env are additional environment variables for the subprocess
	// (format: "KEY=VALUE"), appended to the current process environment.
	Env []string `yaml:"env"`
	// TimeoutSec bounds a single request to the server (default 30).
	TimeoutSec int `yaml:"timeout_sec"`
	// IncludeTools limits bridging to the named remote tools.
	IncludeTools []string `yaml:"include_tools"`
	// ExcludeTools skips the named remote tools when bridging.
	ExcludeTools []string `yaml:"exclude_tools"`
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{
		Backend: BackendConfig{
			URL:   "http://localhost:11434",
			Model: "qwen3:4b",
		},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued tunables with their defaults.
func (c *Config) applyDefaults() {
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = DefaultBackendTimeoutSec
	}
	if c.Agent.MaxSteps <= 0 {
		c.Agent.MaxSteps = DefaultMaxSteps
	}
	if c.Agent.MaxHistoryMessages <= 0 {
		c.Agent.MaxHistoryMessages = DefaultMaxHistoryMessages
	}
	if c.Agent.LoopWindow <= 0 {
		c.Agent.LoopWindow = DefaultLoopWindow
	}
	if c.Agent.ContextSize <= 0 {
		c.Agent.ContextSize = DefaultContextSize
	}
	if c.Agent.ToolResultLimit <= 0 {
		c.Agent.ToolResultLimit = DefaultToolResultLimit
	}
	if c.Agent.ToolResultHead <= 0 {
		c.Agent.ToolResultHead = DefaultToolResultHead
	}
	if c.Agent.ToolResultTail <= 0 {
		c.Agent.ToolResultTail = DefaultToolResultTail
	}
	for name, srv := range c.MCPServers {
		if srv.TimeoutSec <= 0 {
			srv.TimeoutSec = DefaultMCPTimeoutSec
			c.MCPServers[name] = srv
		}
	}
}

// Validate reports configuration that cannot produce a working agent.
// Missing required fields are a construction-time error, not a runtime
// condition, so callers should treat a failure here as fatal.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.Model == "" {
		return fmt.Errorf("backend.model is required")
	}
	if c.Agent.ToolResultHead+c.Agent.ToolResultTail > c.Agent.ToolResultLimit {
		return fmt.Errorf("tool_result_head + tool_result_tail (%d) exceeds tool_result_limit (%d)",
			c.Agent.ToolResultHead+c.Agent.ToolResultTail, c.Agent.ToolResultLimit)
	}
	for name, srv := range c.MCPServers {
		if srv.Command == "" {
			return fmt.Errorf("mcp_servers.%s.command is required", name)
		}
	}
	return nil
}
