package dto

import (
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/domain/sqlguard"
)

// GenerateRequest is the full context handed to the generation oracle.
// The history is always complete, never a diff.
type GenerateRequest struct {
	Request           string
	Schema            schema.Catalog
	HistoryStatements []string
	HistoryFailures   []session.Failure
}

// AskInput is the input of a single question
type AskInput struct {
	Question    string
	MaxAttempts int // 0 uses the configured ceiling
}

// AskOutput is the terminal view of one session handed to presenters
type AskOutput struct {
	SessionID     string                 `json:"session_id"`
	Question      string                 `json:"question"`
	Status        session.Status         `json:"status"`
	Attempts      int                    `json:"attempts"`
	MaxAttempts   int                    `json:"max_attempts"`
	Statement     string                 `json:"statement,omitempty"`
	Statements    []string               `json:"history_statements"`
	Failures      []FailureView          `json:"history_failures"`
	Result        *session.ResultSet     `json:"result,omitempty"`
	Clarification *session.Clarification `json:"clarification,omitempty"`
	Duration      time.Duration          `json:"duration_ns"`
}

// Succeeded reports whether the session produced a result
func (o *AskOutput) Succeeded() bool {
	return o.Status == session.StatusSucceeded
}

// NewAskOutput builds the terminal view of a finished session
func NewAskOutput(s *session.Session, elapsed time.Duration) *AskOutput {
	out := &AskOutput{
		SessionID:     s.ID().String(),
		Question:      s.Request(),
		Status:        s.Status(),
		Attempts:      len(s.HistoryStatements()),
		MaxAttempts:   s.MaxAttempts(),
		Statements:    s.HistoryStatements(),
		Failures:      failureViews(s.HistoryFailures()),
		Result:        s.Result(),
		Clarification: s.Clarification(),
		Duration:      elapsed,
	}
	if out.Result != nil {
		out.Statement = sqlguard.Canonical(s.Candidate())
	}
	return out
}

// FailureView is the user-facing form of a history failure. The raw
// engine message is left to the archived session record.
type FailureView struct {
	Attempt    int                 `json:"attempt"`
	Stage      session.Stage       `json:"stage"`
	Code       session.FailureCode `json:"code"`
	Subject    string              `json:"subject,omitempty"`
	Suggestion string              `json:"suggestion"`
}

func failureViews(failures []session.Failure) []FailureView {
	views := make([]FailureView, len(failures))
	for i, f := range failures {
		views[i] = FailureView{
			Attempt:    f.Attempt,
			Stage:      f.Stage,
			Code:       f.Code,
			Subject:    f.Subject,
			Suggestion: f.Suggestion,
		}
	}
	return views
}

// BatchInput is a set of independent questions run concurrently
type BatchInput struct {
	Questions   []string
	Concurrency int
	MaxAttempts int
}

// BatchItem is the result of one question in a batch
type BatchItem struct {
	Index    int        `json:"index"`
	Question string     `json:"question"`
	Output   *AskOutput `json:"output,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// BatchOutput is the result of a batch run, items in input order
type BatchOutput struct {
	BatchID   string        `json:"batch_id"`
	Items     []BatchItem   `json:"items"`
	Succeeded int           `json:"succeeded"`
	Exhausted int           `json:"exhausted"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

// SessionSummary is one row of the archived session history
type SessionSummary struct {
	SessionID string         `json:"session_id"`
	Question  string         `json:"question"`
	Status    session.Status `json:"status"`
	Attempts  int            `json:"attempts"`
	CreatedAt time.Time      `json:"created_at"`
}
