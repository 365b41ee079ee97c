package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/arcline/reagent/internal/agent"
	"github.com/arcline/reagent/internal/config"
	"github.com/arcline/reagent/internal/events"
	"github.com/arcline/reagent/internal/llm"
)

var (
	configPath string
	verbose    bool
	silent     bool
)

var rootCmd = &cobra.Command{
	Use:   "reagent [query]",
	Short: "LLM agent with MCP tool execution",
	Long: `reagent drives a local LLM through a plan/execute loop, bridging
tools from MCP servers over stdio. Give it a query to run once, or
start it with no arguments for an interactive session.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runChat(args)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging, tool args)")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress progress output, print only the answer")

	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves and loads the config file, falling back to
// defaults when no file exists and none was requested explicitly.
func loadConfig() *config.Config {
	path, err := config.FindConfig(configPath)
	if err != nil {
		if configPath != "" {
			printError("config", err)
			os.Exit(1)
		}
		return config.Default()
	}

	cfg, err := config.Load(path)
	if err != nil {
		printError(fmt.Sprintf("load %s", path), err)
		os.Exit(1)
	}
	return cfg
}

// setupLogger builds the process logger. Verbose wins over the
// configured level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// initAgent builds a connected agent: config, logger, backend client,
// event sink, and every configured MCP server.
func initAgent() *agent.Agent {
	cfg := loadConfig()
	logger := setupLogger(cfg)

	client := llm.NewOllamaClient(
		cfg.Backend.URL,
		time.Duration(cfg.Backend.TimeoutSec)*time.Second,
		&llm.Options{NumCtx: cfg.Agent.ContextSize},
	)

	var sink events.Sink
	if silent || cfg.Agent.Silent {
		sink = events.Silent{}
	} else {
		console := events.NewConsole(os.Stdout)
		console.Debug = verbose || cfg.Agent.Debug
		sink = console
	}

	a, err := agent.New(cfg, client, sink, logger)
	if err != nil {
		printError("initialize agent", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		printError(fmt.Sprintf("backend %s unreachable", cfg.Backend.URL), err)
		os.Exit(1)
	}

	for name, srv := range cfg.MCPServers {
		if _, err := a.ConnectMCPServer(ctx, name, srv); err != nil {
			fmt.Fprintf(os.Stderr, "warning: MCP server %s: %v\n", name, err)
		}
	}

	return a
}

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

func printError(what string, err error) {
	fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("error: %s: %v", what, err)))
}
