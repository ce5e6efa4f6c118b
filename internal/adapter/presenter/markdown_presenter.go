package presenter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// MarkdownPresenter renders GitHub-flavored markdown
type MarkdownPresenter struct {
	opts Options
}

// NewMarkdownPresenter creates a new markdown presenter
func NewMarkdownPresenter(opts Options) output.Presenter {
	return &MarkdownPresenter{opts: opts}
}

// PresentAnswer renders the statement and a result table, or the
// clarification as a list
func (p *MarkdownPresenter) PresentAnswer(w io.Writer, out *dto.AskOutput) error {
	fmt.Fprintf(w, "### %s\n\n", escapeMarkdown(out.Question))

	if c := out.Clarification; c != nil {
		fmt.Fprintf(w, "**%s**\n\n", c.Headline)
		var diffs []string
		if p.opts.ShowDiff {
			diffs = attemptDiffs(out.Statements)
		}
		for _, a := range c.Attempts {
			fmt.Fprintf(w, "%d. %s\n", a.Attempt, a.Reason)
			if a.Statement != "" {
				fmt.Fprintf(w, "   - SQL: `%s`\n", a.Statement)
			}
			if i := a.Attempt - 1; i >= 0 && i < len(diffs) && diffs[i] != "" {
				fmt.Fprintf(w, "   - Changed: `%s`\n", diffs[i])
			}
			if a.Suggestion != "" {
				fmt.Fprintf(w, "   - Hint: %s\n", a.Suggestion)
			}
		}
		fmt.Fprintln(w, "\nTry:")
		for _, g := range c.Guidance {
			fmt.Fprintf(w, "- %s\n", g)
		}
		return nil
	}

	if out.Result == nil {
		fmt.Fprintf(w, "_No result (%s)_\n", out.Status)
		return nil
	}

	fmt.Fprintf(w, "```sql\n%s\n```\n\n", out.Statement)
	if out.Result.RowCount() == 0 {
		fmt.Fprintln(w, "_No results found._")
		return nil
	}
	rows := make([][]string, len(out.Result.Rows))
	for i, row := range out.Result.Rows {
		rows[i] = formatRow(row)
	}
	writeMarkdownTable(w, out.Result.Columns, rows)
	if out.Result.Truncated {
		fmt.Fprintf(w, "\n_%s_\n", out.Result.Summary())
	}
	return nil
}

// PresentBatch renders a summary table
func (p *MarkdownPresenter) PresentBatch(w io.Writer, out *dto.BatchOutput) error {
	rows := make([][]string, 0, len(out.Items))
	for _, item := range out.Items {
		status, stmt := "error", item.Error
		if item.Output != nil {
			status = string(item.Output.Status)
			stmt = item.Output.Statement
			if stmt != "" {
				stmt = "`" + stmt + "`"
			}
		}
		rows = append(rows, []string{fmt.Sprintf("%d", item.Index+1), item.Question, status, stmt})
	}
	writeMarkdownTable(w, []string{"#", "Question", "Status", "SQL"}, rows)
	fmt.Fprintf(w, "\n%d succeeded, %d exhausted, %d failed\n", out.Succeeded, out.Exhausted, out.Failed)
	return nil
}

// PresentSchema renders one section per table
func (p *MarkdownPresenter) PresentSchema(w io.Writer, catalog schema.Catalog) error {
	for i, t := range catalog.Tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "#### %s\n\n", escapeMarkdown(t.Name))
		rows := make([][]string, len(t.Columns))
		for j, c := range t.Columns {
			rows[j] = []string{c.Name, c.Type, constraints(c)}
		}
		writeMarkdownTable(w, []string{"Column", "Type", "Constraints"}, rows)
	}
	return nil
}

// PresentHistory renders archived sessions as a table
func (p *MarkdownPresenter) PresentHistory(w io.Writer, items []dto.SessionSummary) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "_No archived sessions._")
		return nil
	}
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{it.SessionID, it.CreatedAt.UTC().Format(time.RFC3339), string(it.Status), fmt.Sprintf("%d", it.Attempts), it.Question}
	}
	writeMarkdownTable(w, []string{"Session", "Created", "Status", "Attempts", "Question"}, rows)
	return nil
}

func writeMarkdownTable(w io.Writer, headers []string, rows [][]string) {
	esc := func(cells []string) []string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = escapeMarkdown(c)
		}
		return out
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(esc(headers), " | "))
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(sep, " | "))
	for _, row := range rows {
		fmt.Fprintf(w, "| %s |\n", strings.Join(esc(row), " | "))
	}
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
