package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools available to the agent",
	Long:  "Connects the configured MCP servers and prints every tool the agent can call.",
	Run: func(cmd *cobra.Command, args []string) {
		a := initAgent()
		defer a.Close()

		reg := a.Registry()
		if reg.Len() == 0 {
			fmt.Println("no tools available")
			return
		}
		fmt.Print(reg.FormatForPrompt())
	},
}
