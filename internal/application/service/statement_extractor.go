package service

import (
	"regexp"
	"strings"
)

var (
	fencePattern  = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\n(.*?)```")
	inlineFence   = regexp.MustCompile("(?s)```(.*?)```")
	labelPattern  = regexp.MustCompile(`(?i)^\s*(sql|query)\s*:\s*`)
	ctePattern    = regexp.MustCompile(`(?i)^with\s+(recursive\s+)?\w+\s*(\([^)]*\)\s*)?as\s*\(`)
	keywordStarts = []string{"select", "insert", "update", "delete", "drop", "create", "alter", "pragma", "attach"}
)

// ExtractStatement pulls the SQL out of a model reply. Code fences win;
// otherwise a leading "SQL:" label and any prose before the first SQL
// keyword are dropped. Non-read-only statements are kept as-is so that
// validation can reject them.
func ExtractStatement(output string) string {
	text := strings.TrimSpace(output)
	if text == "" {
		return ""
	}

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	} else if m := inlineFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	} else {
		// An unterminated fence is still a fence
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(text, "```sql"), "```"))
	}

	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		candidate := labelPattern.ReplaceAllString(line, "")
		if startsWithKeyword(candidate) {
			lines[i] = candidate
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimSpace(labelPattern.ReplaceAllString(text, ""))
	}
	lines = lines[start:]

	// A statement ends at a semicolon or a blank line. Later lines are kept
	// only while they start another statement, so prose is dropped but a
	// multi-statement reply stays visible to validation.
	end, open := 0, true
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			open = false
			continue
		}
		if !open {
			if !startsWithKeyword(t) {
				break
			}
			open = true
		}
		end = i + 1
		if strings.HasSuffix(t, ";") {
			open = false
		}
	}

	return strings.TrimSpace(strings.Join(lines[:end], "\n"))
}

func startsWithKeyword(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	if ctePattern.MatchString(lower) {
		return true
	}
	for _, kw := range keywordStarts {
		if strings.HasPrefix(lower, kw) {
			rest := lower[len(kw):]
			if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '(' || rest[0] == '*' {
				return true
			}
		}
	}
	return false
}
