package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arcline/reagent/internal/agent"
	"github.com/arcline/reagent/internal/health"
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)

// runChat dispatches to one-shot or interactive mode.
func runChat(args []string) {
	a := initAgent()
	defer a.Close()

	if len(args) > 0 {
		query := strings.Join(args, " ")
		result, err := a.ProcessQuery(context.Background(), query)
		if silent {
			// Sinks are muted; the answer is the only output.
			fmt.Println(result.Answer)
		}
		if err != nil {
			os.Exit(1)
		}
		return
	}

	runInteractive(a)
}

// runInteractive reads queries line by line until EOF or an exit word.
// Long-lived sessions get background health monitoring of the backend
// and each MCP server.
func runInteractive(a *agent.Agent) {
	monitors := watchDependencies(a)
	defer monitors.Stop()

	fmt.Println("reagent interactive session. Type 'exit' to quit, 'reset' to clear history, 'status' for dependency health.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return
		case "reset":
			a.Reset()
			fmt.Println("history cleared")
			continue
		case "status":
			for _, st := range monitors.Statuses() {
				mark := "up"
				if !st.Up {
					mark = fmt.Sprintf("down (%s)", st.LastError)
				}
				fmt.Printf("  %-20s %s\n", st.Name, mark)
			}
			continue
		}

		result, err := a.ProcessQuery(context.Background(), input)
		if err != nil {
			printError("query", err)
			continue
		}
		if silent {
			fmt.Println(result.Answer)
		}
	}
}

// watchDependencies starts health monitors for the backend and every
// connected MCP server.
func watchDependencies(a *agent.Agent) *health.Set {
	set := health.NewSet()
	ctx := context.Background()

	set.Watch(ctx, health.Config{
		Name:  "backend",
		Probe: a.Ping,
	})
	for _, name := range a.MCPServers() {
		server := name
		set.Watch(ctx, health.Config{
			Name: "mcp:" + server,
			Probe: func(ctx context.Context) error {
				return a.PingMCP(ctx, server)
			},
		})
	}
	return set
}
