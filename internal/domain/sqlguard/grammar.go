package sqlguard

import (
	"regexp"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// grammarMarkers identify errors raised by SQLite's parser. Any other
// prepare error (unknown table, column or function) comes from name
// resolution against the empty scratch database and says nothing about
// the grammar.
var grammarMarkers = []string{"syntax error", "incomplete input", "unrecognized token"}

var (
	nearPattern  = regexp.MustCompile(`near "((?:[^"]|"")*)"`)
	tokenPattern = regexp.MustCompile(`unrecognized token: "((?:[^"]|"")*)"`)
)

// parseResult is what SQLite reports when compiling one statement
type parseResult struct {
	syntax   string // parser error, empty when the statement is well formed
	near     string
	resolved bool // the statement compiled, readonly is meaningful
	readonly bool
}

// parse compiles stmt against an empty in-memory database. The error is
// only non-nil when the scratch database cannot be opened.
func parse(stmt string) (parseResult, error) {
	conn, err := (&sqlite3.SQLiteDriver{}).Open(":memory:")
	if err != nil {
		return parseResult{}, err
	}
	defer conn.Close()

	prepared, err := conn.Prepare(stmt)
	if err != nil {
		msg := err.Error()
		if !isGrammarError(msg) {
			return parseResult{}, nil
		}
		return parseResult{syntax: syntaxDetail(msg), near: nearFragment(msg)}, nil
	}
	defer prepared.Close()

	res := parseResult{resolved: true, readonly: true}
	if s, ok := prepared.(*sqlite3.SQLiteStmt); ok {
		res.readonly = s.Readonly()
	}
	return res, nil
}

func isGrammarError(msg string) bool {
	for _, marker := range grammarMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func syntaxDetail(msg string) string {
	if strings.Contains(msg, "syntax error") {
		return msg
	}
	return "syntax error: " + msg
}

func nearFragment(msg string) string {
	for _, p := range []*regexp.Regexp{nearPattern, tokenPattern} {
		if m := p.FindStringSubmatch(msg); m != nil {
			return strings.ReplaceAll(m[1], `""`, `"`)
		}
	}
	return ""
}
