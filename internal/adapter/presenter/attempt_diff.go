package presenter

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// statementDiff renders an inline word diff between two statements:
// removed text as [-text-], inserted text as {+text+}
func statementDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		}
	}
	return b.String()
}

// attemptDiffs returns the diff of each statement against the one
// before it. Entry 0 is always empty; blank statements get no diff.
func attemptDiffs(statements []string) []string {
	out := make([]string, len(statements))
	for i := 1; i < len(statements); i++ {
		prev, cur := statements[i-1], statements[i]
		if prev == "" || cur == "" || prev == cur {
			continue
		}
		out[i] = statementDiff(prev, cur)
	}
	return out
}
