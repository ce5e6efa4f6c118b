package session

import "fmt"

// AttemptSummary describes one failed attempt in user-facing terms
type AttemptSummary struct {
	Attempt    int         `json:"attempt"`
	Statement  string      `json:"statement"`
	Stage      Stage       `json:"stage"`
	Code       FailureCode `json:"code"`
	Reason     string      `json:"reason"`
	Suggestion string      `json:"suggestion"`
}

// Clarification is the terminal record of an exhausted session
type Clarification struct {
	SessionID   ID               `json:"session_id"`
	Request     string           `json:"request"`
	MaxAttempts int              `json:"max_attempts"`
	Headline    string           `json:"headline"`
	Attempts    []AttemptSummary `json:"attempts"`
	Guidance    []string         `json:"guidance"`
}

var clarificationGuidance = []string{
	"Rephrase your question with different wording",
	"Be more specific about table or column names",
	"Check that the data you are asking for exists in the database",
}

// Clarification derives the clarification record of an exhausted,
// non-cancelled session. It returns nil for any other session.
func (s *Session) Clarification() *Clarification {
	if s.status != StatusExhausted || s.cancelled {
		return nil
	}

	c := &Clarification{
		SessionID:   s.id,
		Request:     s.request,
		MaxAttempts: s.maxAttempts,
		Headline:    fmt.Sprintf("Unable to build a working query for your question after %d attempts.", s.maxAttempts),
		Attempts:    make([]AttemptSummary, 0, len(s.failures)),
		Guidance:    append([]string{}, clarificationGuidance...),
	}
	for _, f := range s.failures {
		stmt := ""
		if f.Attempt >= 1 && f.Attempt <= len(s.statements) {
			stmt = s.statements[f.Attempt-1]
		}
		c.Attempts = append(c.Attempts, AttemptSummary{
			Attempt:    f.Attempt,
			Statement:  stmt,
			Stage:      f.Stage,
			Code:       f.Code,
			Reason:     DescribeFailure(f),
			Suggestion: f.Suggestion,
		})
	}
	return c
}

// DescribeFailure renders a failure from its category and subject only,
// never from the raw engine message
func DescribeFailure(f Failure) string {
	switch f.Code {
	case CodeTableNotFound:
		if f.Subject != "" {
			return fmt.Sprintf("table %q does not exist", f.Subject)
		}
		return "a referenced table does not exist"
	case CodeColumnNotFound:
		if f.Subject != "" {
			return fmt.Sprintf("column %q does not exist", f.Subject)
		}
		return "a referenced column does not exist"
	case CodeSyntaxError:
		if f.Subject != "" {
			return fmt.Sprintf("the statement is not valid SQL near %q", f.Subject)
		}
		return "the statement is not valid SQL"
	case CodeMultiStatement:
		return "more than one statement was generated"
	case CodeUnsafeOperation:
		if f.Subject != "" {
			return fmt.Sprintf("the statement is not read-only (%s)", f.Subject)
		}
		return "the statement is not read-only"
	case CodeTypeMismatch:
		return "compared values have incompatible types"
	case CodeTimeout:
		if f.Stage == StageGeneration {
			return "query generation timed out"
		}
		return "the query took too long to run"
	default:
		if f.Stage == StageGeneration {
			return "no query could be generated"
		}
		if f.Subject != "" {
			return fmt.Sprintf("the query failed around %q", f.Subject)
		}
		return "the query failed for an unrecognized reason"
	}
}
