package diagnosis

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

func execErr(kind session.ErrorKind, msg string) session.StageError {
	return session.StageError{Stage: session.StageExecution, Kind: kind, Message: msg}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewDefaultClassifier()
	tests := []struct {
		name    string
		err     session.StageError
		code    session.FailureCode
		subject string
	}{
		{"missing table", execErr(session.KindUnknown, "no such table: employees"), session.CodeTableNotFound, "employees"},
		{"missing qualified table", execErr(session.KindUnknown, "no such table: main.staff"), session.CodeTableNotFound, "main.staff"},
		{"table does not exist", execErr(session.KindUnknown, `relation error: table "staff" does not exist`), session.CodeTableNotFound, "staff"},
		{"missing column", execErr(session.KindUnknown, "no such column: c.fullname"), session.CodeColumnNotFound, "c.fullname"},
		{"near syntax", execErr(session.KindUnknown, `near "FORM": syntax error`), session.CodeSyntaxError, "FORM"},
		{"incomplete input", execErr(session.KindUnknown, "incomplete input"), session.CodeSyntaxError, ""},
		{"unrecognized token", execErr(session.KindUnknown, `unrecognized token: "'abc"`), session.CodeSyntaxError, ""},
		{"datatype mismatch", execErr(session.KindTypeError, "datatype mismatch"), session.CodeTypeMismatch, ""},
		{"timeout kind wins", execErr(session.KindTimeout, "no such table: x"), session.CodeTimeout, ""},
		{"interrupted", execErr(session.KindUnknown, "interrupted"), session.CodeTimeout, ""},
		{"deadline", execErr(session.KindUnknown, "context deadline exceeded"), session.CodeTimeout, ""},
		{"ambiguous column", execErr(session.KindUnknown, "ambiguous column name: customer_id"), session.CodeUnclassified, "customer_id"},
		{"missing function", execErr(session.KindUnknown, "no such function: DATE_TRUNC"), session.CodeUnclassified, "DATE_TRUNC"},
		{"readonly", execErr(session.KindConstraint, "attempt to write a readonly database"), session.CodeUnclassified, ""},
		{"unknown", execErr(session.KindUnknown, "disk I/O error"), session.CodeUnclassified, ""},
		{"empty", execErr(session.KindUnknown, ""), session.CodeUnclassified, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.subject, got.Subject)
			assert.NotEmpty(t, got.Suggestion)
		})
	}
}

func TestClassifier_IsDeterministic(t *testing.T) {
	c := NewDefaultClassifier()
	err := execErr(session.KindUnknown, "no such table: employees")

	first := c.Classify(err)
	second := c.Classify(err)
	assert.Equal(t, first, second)
	assert.Equal(t, first, NewDefaultClassifier().Classify(err))
}

func TestClassifier_SpecificSuggestions(t *testing.T) {
	c := NewDefaultClassifier()

	ambiguous := c.Classify(execErr(session.KindUnknown, "ambiguous column name: id"))
	assert.Contains(t, ambiguous.Suggestion, "aliases")

	table := c.Classify(execErr(session.KindUnknown, "no such table: employees"))
	assert.Equal(t, SuggestionFor(session.CodeTableNotFound), table.Suggestion)
}

func TestClassifier_CustomRulesFirstMatchWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Code: session.CodeTypeMismatch, Pattern: regexp.MustCompile(`boom`)},
		{Code: session.CodeSyntaxError, Pattern: regexp.MustCompile(`boom`)},
	})

	assert.Equal(t, session.CodeTypeMismatch, c.Classify(execErr(session.KindUnknown, "boom")).Code)
	assert.Equal(t, session.CodeUnclassified, c.Classify(execErr(session.KindUnknown, "other")).Code)
}

func TestClassifier_Failure(t *testing.T) {
	f := NewDefaultClassifier().Failure(2, execErr(session.KindUnknown, "no such column: nme"))

	assert.Equal(t, 2, f.Attempt)
	assert.Equal(t, session.StageExecution, f.Stage)
	assert.Equal(t, session.CodeColumnNotFound, f.Code)
	assert.Equal(t, "nme", f.Subject)
	assert.Equal(t, "no such column: nme", f.Message)
}
