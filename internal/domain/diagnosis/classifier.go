// Package diagnosis turns raw failure messages into categories and
// suggestions that are fed back into the next generation attempt.
package diagnosis

import (
	"regexp"
	"strings"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// Rule is one row of the classification table. A rule matches when its
// Kind (if set) equals the error kind and its Pattern (if set) matches
// the message. Subject is the capture group holding the offending name.
type Rule struct {
	Code       session.FailureCode
	Kind       session.ErrorKind
	Pattern    *regexp.Regexp
	Subject    int
	Suggestion string // overrides the per-code suggestion
}

// Classification is the result of classifying one failure
type Classification struct {
	Code       session.FailureCode
	Subject    string
	Suggestion string
}

var codeSuggestions = map[session.FailureCode]string{
	session.CodeTableNotFound:  "Verify the table name exists in the database schema. Check for typos or case sensitivity.",
	session.CodeColumnNotFound: "Check that the column name is spelled correctly and exists in the specified table.",
	session.CodeSyntaxError:    "Review SQL syntax. Common issues: missing commas, incorrect keyword order, or unmatched parentheses.",
	session.CodeTypeMismatch:   "Ensure data types match between compared values. Cast values if necessary.",
	session.CodeTimeout:        "Simplify the query: add filters, avoid large cross joins, or limit the number of rows.",
	session.CodeUnclassified:   "Review the error message and SQL query carefully. Use only tables and columns from the schema.",
}

// SuggestionFor returns the fixed suggestion for a category
func SuggestionFor(code session.FailureCode) string {
	if s, ok := codeSuggestions[code]; ok {
		return s
	}
	return codeSuggestions[session.CodeUnclassified]
}

// DefaultRules returns the ordered rule table; the first match wins
func DefaultRules() []Rule {
	return []Rule{
		{Code: session.CodeTimeout, Kind: session.KindTimeout},
		{Code: session.CodeTableNotFound, Pattern: regexp.MustCompile(`(?i)no such table:?\s*([\w.$]+)`), Subject: 1},
		{Code: session.CodeTableNotFound, Pattern: regexp.MustCompile(`(?i)table\s+["'\x60]?([\w.$]+)["'\x60]?\s+does not exist`), Subject: 1},
		{Code: session.CodeColumnNotFound, Pattern: regexp.MustCompile(`(?i)no such column:?\s*([\w.$]+)`), Subject: 1},
		{Code: session.CodeColumnNotFound, Pattern: regexp.MustCompile(`(?i)column\s+["'\x60]?([\w.$]+)["'\x60]?\s+does not exist`), Subject: 1},
		{Code: session.CodeSyntaxError, Pattern: regexp.MustCompile(`(?i)near "([^"]*)":\s*syntax error`), Subject: 1},
		{Code: session.CodeSyntaxError, Pattern: regexp.MustCompile(`(?i)syntax error|incomplete input|unrecognized token`)},
		{Code: session.CodeTypeMismatch, Pattern: regexp.MustCompile(`(?i)datatype mismatch|type mismatch`)},
		{Code: session.CodeTimeout, Pattern: regexp.MustCompile(`(?i)interrupted|deadline exceeded|timed? ?out`)},
		{
			Code:       session.CodeUnclassified,
			Pattern:    regexp.MustCompile(`(?i)ambiguous column name:?\s*([\w.$]+)`),
			Subject:    1,
			Suggestion: "Prefix column names with table names or aliases to clarify which table the column belongs to.",
		},
		{
			Code:       session.CodeUnclassified,
			Pattern:    regexp.MustCompile(`(?i)no such function:?\s*(\w+)`),
			Subject:    1,
			Suggestion: "The function may not be supported in this database. Use SQLite functions only.",
		},
		{
			Code:       session.CodeUnclassified,
			Kind:       session.KindConstraint,
			Suggestion: "The query attempted to change data. Only read-only SELECT queries are allowed.",
		},
		{
			Code:       session.CodeUnclassified,
			Pattern:    regexp.MustCompile(`(?i)constraint`),
			Suggestion: "Check for constraint violations like NOT NULL, UNIQUE, or FOREIGN KEY constraints.",
		},
	}
}

// Classifier is immutable once built and safe for concurrent use
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over the given rules
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// NewDefaultClassifier creates a classifier over DefaultRules
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules())
}

// Classify assigns a category to a stage error. The result depends only
// on the error, so identical messages always classify identically.
func (c *Classifier) Classify(err session.StageError) Classification {
	for _, r := range c.rules {
		if r.Kind != "" && r.Kind != err.Kind {
			continue
		}
		subject := ""
		if r.Pattern != nil {
			m := r.Pattern.FindStringSubmatch(err.Message)
			if m == nil {
				continue
			}
			if r.Subject > 0 && r.Subject < len(m) {
				subject = strings.Trim(m[r.Subject], `"'`+"`")
			}
		}
		suggestion := r.Suggestion
		if suggestion == "" {
			suggestion = SuggestionFor(r.Code)
		}
		return Classification{Code: r.Code, Subject: subject, Suggestion: suggestion}
	}

	return Classification{Code: session.CodeUnclassified, Suggestion: SuggestionFor(session.CodeUnclassified)}
}

// Failure classifies a stage error into a history entry for the given attempt
func (c *Classifier) Failure(attempt int, err session.StageError) session.Failure {
	cl := c.Classify(err)
	return session.Failure{
		Attempt:    attempt,
		Stage:      err.Stage,
		Code:       cl.Code,
		Message:    err.Message,
		Subject:    cl.Subject,
		Suggestion: cl.Suggestion,
	}
}
