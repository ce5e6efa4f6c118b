package session

// Status represents the lifecycle status of a session
type Status string

const (
	StatusInProgress Status = "in_progress" // Retry loop still running
	StatusSucceeded  Status = "succeeded"   // A statement executed successfully
	StatusExhausted  Status = "exhausted"   // Attempt ceiling reached, clarification required
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusInProgress, StatusSucceeded, StatusExhausted:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once no further mutation is permitted
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusExhausted
}

// CanTransitionTo checks if transition to another status is allowed
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusInProgress && next.IsTerminal()
}
