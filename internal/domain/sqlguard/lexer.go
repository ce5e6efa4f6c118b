package sqlguard

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokString
	tokNumber
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexError reports an unterminated literal or comment
type lexError struct {
	what string
	pos  int
	near string
}

func (e *lexError) Error() string {
	return fmt.Sprintf("unterminated %s at position %d", e.what, e.pos)
}

// statement is one ';'-separated piece of the input
type statement struct {
	text   string
	tokens []token
}

// lex tokenizes SQL text. Comments and whitespace are dropped; quoted
// literals and identifiers are kept whole so that separators and
// keywords inside them are never seen.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case strings.HasPrefix(src[i:], "--"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
			} else {
				i += end + 1
			}

		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, &lexError{what: "comment", pos: i, near: snippet(src, i)}
			}
			i += 2 + end + 2

		case r == '\'':
			end, err := scanQuoted(src, i, '\'', "string literal")
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: src[i:end], pos: i})
			i = end

		case r == '"' || r == '`':
			end, err := scanQuoted(src, i, byte(r), "quoted identifier")
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokQuoted, text: src[i:end], pos: i})
			i = end

		case r == '[':
			end, err := scanQuoted(src, i, ']', "bracketed identifier")
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokQuoted, text: src[i:end], pos: i})
			i = end

		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokWord, text: src[start:i], pos: start})

		case unicode.IsDigit(r):
			start := i
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})

		default:
			toks = append(toks, token{kind: tokSymbol, text: src[i : i+size], pos: i})
			i += size
		}
	}
	return toks, nil
}

// scanQuoted returns the index just past the closing quote. A doubled
// closing quote is an escaped quote.
func scanQuoted(src string, start int, closing byte, what string) (int, error) {
	i := start + 1
	for i < len(src) {
		if src[i] == closing {
			if closing != ']' && i+1 < len(src) && src[i+1] == closing {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, &lexError{what: what, pos: start, near: snippet(src, start)}
}

func snippet(src string, pos int) string {
	s := src[pos:]
	if len(s) > 24 {
		s = s[:24]
	}
	return strings.TrimSpace(s)
}

// split groups tokens into statements at top-level semicolons and drops
// empty statements
func split(src string) ([]statement, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	var out []statement
	var cur []token
	flush := func() {
		if len(cur) > 0 {
			first, last := cur[0], cur[len(cur)-1]
			out = append(out, statement{text: src[first.pos : last.pos+len(last.text)], tokens: cur})
		}
		cur = nil
	}
	for _, tok := range toks {
		if tok.kind == tokSymbol && tok.text == ";" {
			flush()
			continue
		}
		cur = append(cur, tok)
	}
	flush()
	return out, nil
}

// SplitStatements splits SQL text into its non-empty statements,
// honouring quotes and comments
func SplitStatements(src string) ([]string, error) {
	stmts, err := split(src)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(stmts))
	for i, st := range stmts {
		out[i] = st.text
	}
	return out, nil
}
