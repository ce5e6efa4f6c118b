package sqlguard

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var closers = map[string]rune{"'": '\'', `"`: '"', "`": '`', "[": ']'}

// Normalize applies NFKC to src outside string literals and quoted
// identifiers, so full-width separators and keywords become ASCII while
// literal values are copied byte for byte. A literal opened with a
// full-width quote may also be closed by one.
func Normalize(src string) string {
	rs := []rune(src)
	var out, code strings.Builder
	flush := func() {
		out.WriteString(norm.NFKC.String(code.String()))
		code.Reset()
	}

	for i := 0; i < len(rs); {
		n := nfkc(rs[i])
		next := ""
		if i+1 < len(rs) {
			next = nfkc(rs[i+1])
		}

		switch {
		case n == "-" && next == "-":
			end := i + 2
			for end < len(rs) && rs[end] != '\n' {
				end++
			}
			code.WriteString(string(rs[i:end]))
			i = end

		case n == "/" && next == "*":
			end := i + 2
			for end < len(rs) && !(nfkc(rs[end]) == "*" && end+1 < len(rs) && nfkc(rs[end+1]) == "/") {
				end++
			}
			if end < len(rs) {
				end += 2
			}
			code.WriteString(string(rs[i:end]))
			i = end

		case closers[n] != 0:
			flush()
			i = copyLiteral(&out, rs, i, n, closers[n])

		default:
			code.WriteRune(rs[i])
			i++
		}
	}
	flush()
	return out.String()
}

// copyLiteral writes the literal opening at rs[start] and returns the
// index just past it. An unterminated literal is copied to the end.
func copyLiteral(out *strings.Builder, rs []rune, start int, open string, closer rune) int {
	wide := string(rs[start]) != open
	closes := func(r rune) bool {
		return r == closer || (wide && nfkc(r) == string(closer))
	}

	out.WriteString(open)
	i := start + 1
	for i < len(rs) {
		if !closes(rs[i]) {
			out.WriteRune(rs[i])
			i++
			continue
		}
		if closer != ']' && i+1 < len(rs) && closes(rs[i+1]) {
			out.WriteRune(closer)
			out.WriteRune(closer)
			i += 2
			continue
		}
		out.WriteRune(closer)
		return i + 1
	}
	return i
}

func nfkc(r rune) string {
	return norm.NFKC.String(string(r))
}

// Canonical returns the text that runs once candidate passes
// validation: its normalized first statement without the trailing
// separator. Input that does not tokenize is returned normalized and
// trimmed.
func Canonical(candidate string) string {
	text := strings.TrimSpace(Normalize(candidate))
	stmts, err := split(text)
	if err != nil || len(stmts) == 0 {
		return text
	}
	return stmts[0].text
}
