package session

// State is a controller state in the generate-validate-execute loop
type State string

const (
	StateInit             State = "init"
	StateGenerating       State = "generating"
	StateValidating       State = "validating"
	StateExecuting        State = "executing"
	StateAnalyzingFailure State = "analyzing_failure"
	StateFormatting       State = "formatting" // terminal, status succeeded
	StateClarifying       State = "clarifying" // terminal, status exhausted
)

// transitions is the fixed transition table of the controller.
// Generation failures share the execution failure edges so that an
// unreachable oracle still consumes an attempt.
var transitions = map[State][]State{
	StateInit:             {StateGenerating},
	StateGenerating:       {StateValidating, StateAnalyzingFailure, StateClarifying},
	StateValidating:       {StateExecuting, StateGenerating, StateClarifying},
	StateExecuting:        {StateFormatting, StateAnalyzingFailure, StateClarifying},
	StateAnalyzingFailure: {StateGenerating},
	StateFormatting:       {},
	StateClarifying:       {},
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is part of the transition table
func (s State) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal returns true for states with no outgoing transitions
func (s State) IsTerminal() bool {
	return s == StateFormatting || s == StateClarifying
}

// CanTransitionTo checks if transition to another state is allowed
func (s State) CanTransitionTo(next State) bool {
	allowed, exists := transitions[s]
	if !exists {
		return false
	}

	for _, validNext := range allowed {
		if validNext == next {
			return true
		}
	}

	return false
}

// NextStates returns the states reachable from s
func (s State) NextStates() []State {
	allowed := transitions[s]
	out := make([]State, len(allowed))
	copy(out, allowed)
	return out
}
