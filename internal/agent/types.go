package agent

// State is the agent loop's position in a query run. Transitions are
// driven by what the model returned and whether the last tool call
// succeeded.
type State int

const (
	// StatePlanning is the initial state: the model has not acted yet.
	StatePlanning State = iota
	// StateExecutingPlan means the model supplied a multi-step plan and
	// the loop is working through tool calls derived from it.
	StateExecutingPlan
	// StateDirectExecution means the model is issuing single tool calls
	// without an upfront plan.
	StateDirectExecution
	// StateErrorRecovery means the last tool call failed and the next
	// model turn opens with a recovery prompt.
	StateErrorRecovery
	// StateCompletion means a final answer was produced.
	StateCompletion
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StatePlanning:
		return "PLANNING"
	case StateExecutingPlan:
		return "EXECUTING_PLAN"
	case StateDirectExecution:
		return "DIRECT_EXECUTION"
	case StateErrorRecovery:
		return "ERROR_RECOVERY"
	case StateCompletion:
		return "COMPLETION"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of one query run.
type Result struct {
	// Answer is the final answer text. Always non-empty: failure modes
	// produce explanatory answers rather than empty results.
	Answer string
	// StepsTaken counts loop iterations consumed by the run.
	StepsTaken int
	// StepsLimit is the configured step budget.
	StepsLimit int
}
