// Package sqlguard checks a candidate statement before it reaches the
// data store: one statement, read-only, well formed.
package sqlguard

import (
	"errors"
	"strings"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// Verdict is the outcome of validating one candidate statement
type Verdict struct {
	Passed   bool
	Reason   session.FailureCode // MULTI_STATEMENT, UNSAFE_OPERATION or SYNTAX_ERROR
	Detail   string
	Fragment string // offending fragment, when known

	// Statement is the normalized single statement, set once the input
	// splits into exactly one. It is the text that gets executed.
	Statement string
}

// Failure converts a failed verdict into a history entry for the given attempt
func (v Verdict) Failure(attempt int) session.Failure {
	return session.Failure{
		Attempt:    attempt,
		Stage:      session.StageValidation,
		Code:       v.Reason,
		Message:    v.Detail,
		Subject:    v.Fragment,
		Suggestion: Suggestion(v.Reason),
	}
}

// denied holds structural and data-mutating verbs. A denied word directly
// followed by '(' is a function call such as replace(...) and is allowed.
var denied = map[string]bool{
	"ALTER": true, "ATTACH": true, "CREATE": true, "DELETE": true,
	"DETACH": true, "DROP": true, "EXEC": true, "EXECUTE": true,
	"GRANT": true, "INSERT": true, "MERGE": true, "PRAGMA": true,
	"REINDEX": true, "RENAME": true, "REPLACE": true, "REVOKE": true,
	"TRUNCATE": true, "UPDATE": true, "UPSERT": true, "VACUUM": true,
}

var suggestions = map[session.FailureCode]string{
	session.CodeMultiStatement:  "Return exactly one SELECT statement with no other statements before or after it.",
	session.CodeUnsafeOperation: "Only read-only SELECT queries are allowed. Do not modify data or schema.",
	session.CodeSyntaxError:     "Review SQL syntax. Common issues: missing commas, incorrect keyword order, or unmatched parentheses.",
}

// Suggestion returns the fixed suggestion for a validation failure
func Suggestion(code session.FailureCode) string {
	return suggestions[code]
}

// retrievals are the statement kinds that may start a read-only query
var retrievals = map[string]bool{"SELECT": true, "VALUES": true, "WITH": true}

// Validator is stateless and safe for concurrent use
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the checks in order and stops at the first failure:
// statement count, denied verbs, SQLite grammar, then statement kind.
func (v *Validator) Validate(candidate string) Verdict {
	text := strings.TrimSpace(Normalize(candidate))
	if text == "" {
		return fail(session.CodeSyntaxError, "empty statement", "")
	}

	stmts, err := split(text)
	if err != nil {
		var lexErr *lexError
		if errors.As(err, &lexErr) {
			return fail(session.CodeSyntaxError, lexErr.Error(), lexErr.near)
		}
		return fail(session.CodeSyntaxError, err.Error(), "")
	}
	switch len(stmts) {
	case 0:
		return fail(session.CodeSyntaxError, "empty statement", "")
	case 1:
	default:
		return fail(session.CodeMultiStatement, "input contains more than one statement", stmts[1].text)
	}
	st := stmts[0]

	verdict := v.check(st)
	verdict.Statement = st.text
	return verdict
}

func (v *Validator) check(st statement) Verdict {
	if verb, ok := deniedVerb(st.tokens); ok {
		return fail(session.CodeUnsafeOperation, "statement uses a disallowed operation", verb)
	}

	parsed, err := parse(st.text)
	if err != nil {
		return fail(session.CodeSyntaxError, "grammar check unavailable: "+err.Error(), "")
	}
	if parsed.syntax != "" {
		return fail(session.CodeSyntaxError, parsed.syntax, parsed.near)
	}

	word := firstWord(st.tokens)
	if !retrievals[word] || (parsed.resolved && !parsed.readonly) {
		return fail(session.CodeUnsafeOperation, "statement is not a retrieval", word)
	}
	return Verdict{Passed: true}
}

func deniedVerb(toks []token) (string, bool) {
	for i, tok := range toks {
		if tok.kind != tokWord {
			continue
		}
		word := strings.ToUpper(tok.text)
		if !denied[word] {
			continue
		}
		if i+1 < len(toks) && toks[i+1].kind == tokSymbol && toks[i+1].text == "(" {
			continue
		}
		return word, true
	}
	return "", false
}

func firstWord(toks []token) string {
	for _, tok := range toks {
		if tok.kind == tokWord {
			return strings.ToUpper(tok.text)
		}
	}
	return ""
}

func fail(code session.FailureCode, detail, fragment string) Verdict {
	return Verdict{Reason: code, Detail: detail, Fragment: fragment}
}
