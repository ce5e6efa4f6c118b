package presenter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// TextPresenter implements output.Presenter for terminal output
type TextPresenter struct {
	opts Options
}

// NewTextPresenter creates a new text presenter
func NewTextPresenter(opts Options) output.Presenter {
	return &TextPresenter{opts: opts}
}

// PresentAnswer prints the statement and result table, or the
// clarification for an exhausted session
func (p *TextPresenter) PresentAnswer(w io.Writer, out *dto.AskOutput) error {
	if out.Clarification != nil {
		return writeClarification(w, out, p.opts)
	}
	if out.Result == nil {
		fmt.Fprintf(w, "%s %s (%s)\n", failStyle.Render("✗"), out.Question, out.Status)
		return nil
	}

	fmt.Fprintf(w, "%s %s\n\n", okStyle.Render("✓"), out.Question)
	fmt.Fprintf(w, "SQL: %s\n", out.Statement)
	fmt.Fprintf(w, "%s\n\n", dimStyle.Render(fmt.Sprintf("attempt %d/%d, session %s", out.Attempts, out.MaxAttempts, out.SessionID)))

	if len(out.Result.Columns) > 0 {
		rows := make([][]string, len(out.Result.Rows))
		for i, row := range out.Result.Rows {
			rows[i] = formatRow(row)
		}
		fmt.Fprintln(w, renderTable(out.Result.Columns, rows))
	}
	fmt.Fprintln(w, out.Result.Summary())
	return nil
}

// PresentBatch prints one line per question and a summary
func (p *TextPresenter) PresentBatch(w io.Writer, out *dto.BatchOutput) error {
	rows := make([][]string, 0, len(out.Items))
	for _, item := range out.Items {
		status, detail := "error", item.Error
		if item.Output != nil {
			status = string(item.Output.Status)
			detail = item.Output.Statement
			if item.Output.Result != nil {
				detail = fmt.Sprintf("%s (%d rows)", detail, item.Output.Result.RowCount())
			}
		}
		rows = append(rows, []string{fmt.Sprintf("%d", item.Index+1), item.Question, status, detail})
	}

	fmt.Fprintln(w, renderTable([]string{"#", "Question", "Status", "Result"}, rows))
	fmt.Fprintf(w, "Batch %s: %d succeeded, %d exhausted, %d failed in %s\n",
		out.BatchID, out.Succeeded, out.Exhausted, out.Failed, out.Duration.Round(time.Millisecond))
	return nil
}

// PresentSchema prints every table with its columns
func (p *TextPresenter) PresentSchema(w io.Writer, catalog schema.Catalog) error {
	if catalog.IsEmpty() {
		fmt.Fprintln(w, "No tables found.")
		return nil
	}
	var rows [][]string
	for _, t := range catalog.Tables {
		for _, c := range t.Columns {
			rows = append(rows, []string{t.Name, c.Name, c.Type, constraints(c)})
		}
	}
	fmt.Fprintln(w, renderTable([]string{"Table", "Column", "Type", "Constraints"}, rows))
	return nil
}

// PresentHistory prints archived sessions, newest first
func (p *TextPresenter) PresentHistory(w io.Writer, items []dto.SessionSummary) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No archived sessions.")
		return nil
	}
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{
			it.SessionID,
			it.CreatedAt.Format("2006-01-02 15:04:05"),
			string(it.Status),
			fmt.Sprintf("%d", it.Attempts),
			it.Question,
		}
	}
	fmt.Fprintln(w, renderTable([]string{"Session", "Created", "Status", "Attempts", "Question"}, rows))
	return nil
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func constraints(c schema.Column) string {
	var parts []string
	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, ", ")
}

// writeClarification prints the clarification of an exhausted session.
// Only categorized reasons are shown, never raw engine messages.
func writeClarification(w io.Writer, out *dto.AskOutput, opts Options) error {
	c := out.Clarification
	fmt.Fprintf(w, "%s %s\n\n", failStyle.Render("✗"), c.Headline)
	fmt.Fprintf(w, "Question: %s\n\n", c.Request)

	var diffs []string
	if opts.ShowDiff {
		diffs = attemptDiffs(out.Statements)
	}

	fmt.Fprintln(w, "Attempts:")
	for _, a := range c.Attempts {
		fmt.Fprintf(w, "  %d. %s\n", a.Attempt, a.Reason)
		stmt := a.Statement
		if stmt == "" {
			stmt = "(no statement produced)"
		}
		fmt.Fprintf(w, "     SQL: %s\n", stmt)
		if i := a.Attempt - 1; i >= 0 && i < len(diffs) && diffs[i] != "" {
			fmt.Fprintf(w, "     Changed: %s\n", diffs[i])
		}
		if a.Suggestion != "" {
			fmt.Fprintf(w, "     Hint: %s\n", a.Suggestion)
		}
	}

	fmt.Fprintln(w, "\nTry:")
	for _, g := range c.Guidance {
		fmt.Fprintf(w, "  - %s\n", g)
	}
	return nil
}

// summaryReason is the one-line reason of the last failed attempt
func summaryReason(c *session.Clarification) string {
	if c == nil || len(c.Attempts) == 0 {
		return ""
	}
	return c.Attempts[len(c.Attempts)-1].Reason
}
