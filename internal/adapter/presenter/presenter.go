// Package presenter renders finished sessions, batches, schemas and
// archived history for the CLI.
package presenter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
)

// Format names an output format
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// Options tune how answers are rendered
type Options struct {
	// ShowDiff adds a diff of consecutive statements to clarifications
	ShowDiff bool
}

// New returns the presenter for a format name
func New(format string, opts Options) (output.Presenter, error) {
	switch Format(strings.ToLower(format)) {
	case FormatText, "":
		return NewTextPresenter(opts), nil
	case FormatJSON:
		return NewJSONPresenter(), nil
	case FormatCSV:
		return NewCSVPresenter(opts), nil
	case FormatMarkdown, "md":
		return NewMarkdownPresenter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (supported: text, json, csv, markdown)", format)
	}
}

// formatCell renders one normalized result cell
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatRow(row []any) []string {
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = formatCell(v)
	}
	return cells
}
