package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// consoleStyles groups the lipgloss styles used by the console sink.
type consoleStyles struct {
	step    lipgloss.Style
	thought lipgloss.Style
	goal    lipgloss.Style
	plan    lipgloss.Style
	tool    lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	dim     lipgloss.Style
	answer  lipgloss.Style
}

func defaultConsoleStyles() consoleStyles {
	return consoleStyles{
		step:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		thought: lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		goal:    lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Italic(true),
		plan:    lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		tool:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		answer:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB")).Bold(true),
	}
}

// Console renders events as styled terminal output. It is the default
// sink for interactive use.
type Console struct {
	w      io.Writer
	styles consoleStyles
	// Debug additionally prints tool arguments and raw results.
	Debug bool
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, styles: defaultConsoleStyles()}
}

// Emit implements Sink.
func (c *Console) Emit(e Event) {
	s := c.styles
	switch e.Kind {
	case KindRequestStart:
		// No banner; the prompt the user typed is already on screen.
	case KindStepStart:
		fmt.Fprintln(c.w, s.step.Render(fmt.Sprintf("— step %v/%v [%v]", e.Data["step"], e.Data["limit"], e.Data["state"])))
	case KindThought:
		if t, _ := e.Data["thought"].(string); t != "" {
			fmt.Fprintln(c.w, s.thought.Render("thought: ")+t)
		}
		if g, _ := e.Data["goal"].(string); g != "" {
			fmt.Fprintln(c.w, s.goal.Render("goal: ")+g)
		}
	case KindPlan:
		fmt.Fprintln(c.w, s.plan.Render("plan:"))
		if steps, ok := e.Data["steps"].([]map[string]any); ok {
			for i, st := range steps {
				fmt.Fprintln(c.w, s.plan.Render(fmt.Sprintf("  %d. %v", i+1, st["tool"])))
			}
		}
	case KindToolStart:
		fmt.Fprintln(c.w, s.tool.Render(fmt.Sprintf("→ %v", e.Data["tool"])))
	case KindToolArgs:
		if c.Debug {
			args, _ := json.Marshal(e.Data["args"])
			fmt.Fprintln(c.w, s.dim.Render("  args: "+string(args)))
		}
	case KindToolResult:
		ok, _ := e.Data["ok"].(bool)
		mark := s.ok.Render("✓")
		if !ok {
			mark = s.err.Render("✗")
		}
		fmt.Fprintln(c.w, fmt.Sprintf("%s %v (%vms)", mark, e.Data["tool"], e.Data["duration_ms"]))
		if c.Debug {
			res, _ := json.Marshal(e.Data["result"])
			fmt.Fprintln(c.w, s.dim.Render("  result: "+string(res)))
		}
	case KindWarn:
		fmt.Fprintln(c.w, s.warn.Render(fmt.Sprintf("warning: %v", e.Data["message"])))
	case KindError:
		fmt.Fprintln(c.w, s.err.Render(fmt.Sprintf("error: %v", e.Data["message"])))
	case KindInfo:
		fmt.Fprintln(c.w, s.dim.Render(fmt.Sprintf("%v", e.Data["message"])))
	case KindProgressStart:
		fmt.Fprint(c.w, s.dim.Render(fmt.Sprintf("%v... ", e.Data["operation"])))
	case KindProgressStop:
		fmt.Fprintln(c.w, s.dim.Render("done"))
	case KindToken:
		if c.Debug {
			fmt.Fprint(c.w, s.dim.Render(fmt.Sprintf("%v", e.Data["token"])))
		}
	case KindFinalAnswer:
		answer, _ := e.Data["answer"].(string)
		fmt.Fprintln(c.w)
		fmt.Fprintln(c.w, s.answer.Render(strings.TrimSpace(answer)))
	case KindRequestComplete:
		fmt.Fprintln(c.w, s.dim.Render(fmt.Sprintf("steps: %v/%v, elapsed: %vms", e.Data["steps"], e.Data["limit"], e.Data["elapsed_ms"])))
	}
}
