package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// Snapshot is the serializable form of a session used for audit and replay
type Snapshot struct {
	ID          string         `json:"id"`
	Request     string         `json:"request"`
	Candidate   string         `json:"candidate"`
	Attempt     int            `json:"attempt"`
	MaxAttempts int            `json:"max_attempts"`
	Outcome     *Outcome       `json:"outcome,omitempty"`
	Statements  []string       `json:"history_statements"`
	Failures    []Failure      `json:"history_failures"`
	Status      Status         `json:"status"`
	State       State          `json:"state"`
	Schema      schema.Catalog `json:"schema"`
	Transitions []Transition   `json:"transitions"`
	Cancelled   bool           `json:"cancelled,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Snapshot captures every field of the session
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:          s.id.String(),
		Request:     s.request,
		Candidate:   s.candidate,
		Attempt:     s.attempt,
		MaxAttempts: s.maxAttempts,
		Outcome:     s.Outcome(),
		Statements:  s.HistoryStatements(),
		Failures:    s.HistoryFailures(),
		Status:      s.status,
		State:       s.state,
		Schema:      s.schema.Clone(),
		Transitions: s.Transitions(),
		Cancelled:   s.cancelled,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
}

// Restore rebuilds a session from a snapshot, rejecting snapshots that
// break the record invariants
func Restore(snap Snapshot) (*Session, error) {
	if err := snap.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:          ID(snap.ID),
		request:     snap.Request,
		candidate:   snap.Candidate,
		attempt:     snap.Attempt,
		maxAttempts: snap.MaxAttempts,
		statements:  append([]string{}, snap.Statements...),
		failures:    append([]Failure{}, snap.Failures...),
		status:      snap.Status,
		state:       snap.State,
		schema:      snap.Schema.Clone(),
		transitions: append([]Transition{}, snap.Transitions...),
		cancelled:   snap.Cancelled,
		createdAt:   snap.CreatedAt,
		updatedAt:   snap.UpdatedAt,
	}
	if snap.Outcome != nil {
		o := snap.Outcome.clone()
		s.outcome = &o
	}
	return s, nil
}

func (snap Snapshot) validate() error {
	fail := func(msg string, details map[string]interface{}) error {
		return fmt.Errorf("restore session %q: %w", snap.ID, violation(msg, details))
	}

	switch {
	case snap.ID == "":
		return fail("missing id", nil)
	case strings.TrimSpace(snap.Request) == "":
		return fail("missing request", nil)
	case snap.MaxAttempts < 1:
		return fail("max_attempts must be positive", map[string]interface{}{"max_attempts": snap.MaxAttempts})
	case !snap.Status.IsValid():
		return fail("unknown status", map[string]interface{}{"status": snap.Status.String()})
	case !snap.State.IsValid():
		return fail("unknown state", map[string]interface{}{"state": snap.State.String()})
	case snap.Attempt < 1 || snap.Attempt > snap.MaxAttempts+1:
		return fail("attempt out of range", map[string]interface{}{"attempt": snap.Attempt})
	case len(snap.Statements) > snap.Attempt:
		return fail("more statements than attempts", map[string]interface{}{"statements": len(snap.Statements)})
	case len(snap.Failures) > len(snap.Statements):
		return fail("more failures than statements", map[string]interface{}{"failures": len(snap.Failures)})
	case snap.Outcome != nil && !snap.Outcome.IsValid():
		return fail("outcome must carry exactly one of result or error", nil)
	}

	prev := 0
	for _, f := range snap.Failures {
		if f.Attempt <= prev || f.Attempt > len(snap.Statements) || !f.Code.IsValid() {
			return fail("failure history out of order", map[string]interface{}{"attempt": f.Attempt})
		}
		prev = f.Attempt
	}

	switch snap.Status {
	case StatusSucceeded:
		if snap.State != StateFormatting || snap.Outcome == nil || !snap.Outcome.Succeeded() {
			return fail("succeeded session must be formatting with a result", nil)
		}
	case StatusExhausted:
		if !snap.Cancelled && snap.State != StateClarifying {
			return fail("exhausted session must be clarifying", nil)
		}
	case StatusInProgress:
		if snap.Cancelled || snap.State.IsTerminal() {
			return fail("in_progress session cannot be terminal or cancelled", nil)
		}
	}
	return nil
}

// Marshal encodes a session snapshot as JSON
func Marshal(s *Session) ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Unmarshal decodes and restores a session written by Marshal
func Unmarshal(data []byte) (*Session, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	return Restore(snap)
}
