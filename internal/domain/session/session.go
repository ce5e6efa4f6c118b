// Package session models the record of one request's retry lifecycle.
package session

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// ID uniquely identifies a session
type ID string

// NewID generates a new ULID-based session ID
func NewID(now time.Time) ID {
	return ID(ulid.MustNew(ulid.Timestamp(now), rand.Reader).String())
}

// String returns the string representation of the ID
func (id ID) String() string {
	return string(id)
}

// Session is the aggregate root for one request. All mutation goes
// through Apply, which either applies a whole delta or nothing.
type Session struct {
	id          ID
	request     string
	candidate   string
	attempt     int
	maxAttempts int
	outcome     *Outcome
	statements  []string
	failures    []Failure
	status      Status
	schema      schema.Catalog
	state       State
	transitions []Transition
	cancelled   bool
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a session in the init state with attempt 1
func New(request string, maxAttempts int, now time.Time) (*Session, error) {
	if strings.TrimSpace(request) == "" {
		return nil, ErrInvalidArgument.WithDetails(map[string]interface{}{"field": "request"})
	}
	if maxAttempts < 1 {
		return nil, ErrInvalidArgument.WithDetails(map[string]interface{}{"field": "max_attempts", "value": maxAttempts})
	}
	now = now.UTC()
	return &Session{
		id:          NewID(now),
		request:     request,
		attempt:     1,
		maxAttempts: maxAttempts,
		statements:  []string{},
		failures:    []Failure{},
		status:      StatusInProgress,
		state:       StateInit,
		transitions: []Transition{},
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Getters

func (s *Session) ID() ID                 { return s.id }
func (s *Session) Request() string        { return s.request }
func (s *Session) Candidate() string      { return s.candidate }
func (s *Session) Attempt() int           { return s.attempt }
func (s *Session) MaxAttempts() int       { return s.maxAttempts }
func (s *Session) Status() Status         { return s.status }
func (s *Session) State() State           { return s.state }
func (s *Session) Cancelled() bool        { return s.cancelled }
func (s *Session) CreatedAt() time.Time   { return s.createdAt }
func (s *Session) UpdatedAt() time.Time   { return s.updatedAt }
func (s *Session) Schema() schema.Catalog { return s.schema.Clone() }

// Outcome returns a copy of the latest outcome, or nil before any external call
func (s *Session) Outcome() *Outcome {
	if s.outcome == nil {
		return nil
	}
	o := s.outcome.clone()
	return &o
}

// HistoryStatements returns every candidate tried, oldest first
func (s *Session) HistoryStatements() []string {
	return append([]string{}, s.statements...)
}

// HistoryFailures returns every classified failure, oldest first
func (s *Session) HistoryFailures() []Failure {
	return append([]Failure{}, s.failures...)
}

// Transitions returns the audit log of state changes
func (s *Session) Transitions() []Transition {
	return append([]Transition{}, s.transitions...)
}

// LastFailure returns the most recent failure, if any
func (s *Session) LastFailure() (Failure, bool) {
	if len(s.failures) == 0 {
		return Failure{}, false
	}
	return s.failures[len(s.failures)-1], true
}

// HasAttemptsRemaining reports whether another attempt may follow the current one
func (s *Session) HasAttemptsRemaining() bool {
	return s.attempt < s.maxAttempts
}

// Result returns the success payload of a succeeded session
func (s *Session) Result() *ResultSet {
	if s.status != StatusSucceeded || s.outcome == nil || !s.outcome.Succeeded() {
		return nil
	}
	rs := s.outcome.Result.Clone()
	return &rs
}

// Apply validates a delta against every record invariant and then
// applies it in full. On error the record is left untouched.
func (s *Session) Apply(d Delta) error {
	if s.status.IsTerminal() {
		return ErrSessionClosed.WithDetails(map[string]interface{}{
			"session_id": s.id.String(),
			"status":     s.status.String(),
		})
	}
	if !s.state.CanTransitionTo(d.State) {
		return ErrInvalidTransition.WithDetails(map[string]interface{}{
			"from":    s.state.String(),
			"to":      d.State.String(),
			"allowed": s.state.NextStates(),
		})
	}
	if err := s.check(d); err != nil {
		return err
	}
	s.commit(d)
	return nil
}

func (s *Session) check(d Delta) error {
	statements := len(s.statements)

	if d.Schema != nil && s.state != StateInit {
		return violation("schema can only be attached when leaving init", nil)
	}

	if s.state == StateGenerating && d.Candidate == nil {
		return violation("generation step must record a candidate", nil)
	}
	if d.Candidate != nil {
		if s.state != StateGenerating {
			return violation("candidate recorded outside generation", map[string]interface{}{"state": s.state.String()})
		}
		if statements != s.attempt-1 {
			return violation("statement history out of step with attempt", map[string]interface{}{
				"statements": statements,
				"attempt":    s.attempt,
			})
		}
		statements++
	}

	outcome := s.outcome
	if d.Outcome != nil {
		if !d.Outcome.IsValid() {
			return violation("outcome must carry exactly one of result or error", nil)
		}
		if s.state != StateGenerating && s.state != StateExecuting {
			return violation("outcome recorded outside an external call", map[string]interface{}{"state": s.state.String()})
		}
		outcome = d.Outcome
	}

	if f := d.Failure; f != nil {
		if !f.Code.IsValid() || !f.Stage.IsValid() {
			return violation("failure has unknown code or stage", map[string]interface{}{
				"code":  f.Code.String(),
				"stage": string(f.Stage),
			})
		}
		if f.Attempt != s.attempt || statements != f.Attempt {
			return violation("failure must reference the current attempt and its statement", map[string]interface{}{
				"failure_attempt": f.Attempt,
				"attempt":         s.attempt,
				"statements":      statements,
			})
		}
		if last, ok := s.LastFailure(); ok && last.Attempt >= f.Attempt {
			return violation("attempt already has a failure", map[string]interface{}{"attempt": f.Attempt})
		}
		if d.Outcome != nil && d.Outcome.Succeeded() {
			return violation("failure recorded against a successful statement", nil)
		}
	}

	attempt := s.attempt
	if d.NextAttempt {
		last, ok := s.LastFailure()
		if d.Failure == nil && (!ok || last.Attempt != s.attempt) {
			return violation("attempt can only advance after a recorded failure", nil)
		}
		attempt++
		if attempt > s.maxAttempts+1 {
			return violation("attempt would exceed the ceiling", map[string]interface{}{"attempt": attempt})
		}
	}

	status := s.status
	if d.Status != "" && d.Status != s.status {
		if !s.status.CanTransitionTo(d.Status) {
			return violation("status can only move from in_progress to a terminal status", map[string]interface{}{
				"from": s.status.String(),
				"to":   d.Status.String(),
			})
		}
		status = d.Status
	}

	switch d.State {
	case StateFormatting:
		if status != StatusSucceeded || outcome == nil || !outcome.Succeeded() {
			return violation("formatting requires a succeeded session with a result", nil)
		}
	case StateClarifying:
		if status != StatusExhausted || attempt != s.maxAttempts+1 {
			return violation("clarifying requires an exhausted session past its last attempt", map[string]interface{}{"attempt": attempt})
		}
	default:
		if status != StatusInProgress {
			return violation("non-terminal state requires in_progress status", map[string]interface{}{"state": d.State.String()})
		}
		if attempt > s.maxAttempts {
			return violation("attempt ceiling reached without exhausting the session", map[string]interface{}{"attempt": attempt})
		}
	}

	if d.State == StateGenerating && statements != attempt-1 {
		return violation("generation must start with one statement per completed attempt", map[string]interface{}{
			"statements": statements,
			"attempt":    attempt,
		})
	}

	return nil
}

func (s *Session) commit(d Delta) {
	from := s.state

	if d.Schema != nil {
		s.schema = d.Schema.Clone()
	}
	if d.Candidate != nil {
		s.candidate = *d.Candidate
		s.statements = append(s.statements, *d.Candidate)
	}
	if d.Outcome != nil {
		o := d.Outcome.clone()
		s.outcome = &o
	}
	if d.Failure != nil {
		s.failures = append(s.failures, *d.Failure)
	}
	if d.NextAttempt {
		s.attempt++
	}
	if d.Status != "" {
		s.status = d.Status
	}
	s.state = d.State

	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	s.updatedAt = at.UTC()
	s.transitions = append(s.transitions, Transition{
		From:    from,
		To:      d.State,
		Attempt: s.attempt,
		At:      s.updatedAt,
	})
}

// Abort marks an in-progress session as cancelled. The status becomes
// exhausted so that nothing can mutate the record afterwards.
func (s *Session) Abort(at time.Time) error {
	if s.status.IsTerminal() {
		return ErrSessionClosed.WithDetails(map[string]interface{}{"session_id": s.id.String()})
	}
	s.status = StatusExhausted
	s.cancelled = true
	if !at.IsZero() {
		s.updatedAt = at.UTC()
	}
	return nil
}
