package presenter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// CSVPresenter writes results as CSV with a header row.
// Clarifications have no tabular form and are rendered as text.
type CSVPresenter struct {
	opts Options
}

// NewCSVPresenter creates a new CSV presenter
func NewCSVPresenter(opts Options) output.Presenter {
	return &CSVPresenter{opts: opts}
}

// PresentAnswer writes the result set
func (p *CSVPresenter) PresentAnswer(w io.Writer, out *dto.AskOutput) error {
	if out.Result == nil {
		if out.Clarification != nil {
			return writeClarification(w, out, p.opts)
		}
		return fmt.Errorf("session %s has no result", out.SessionID)
	}

	records := make([][]string, 0, len(out.Result.Rows)+1)
	records = append(records, out.Result.Columns)
	for _, row := range out.Result.Rows {
		records = append(records, formatRow(row))
	}
	return writeCSV(w, records)
}

// PresentBatch writes one row per question
func (p *CSVPresenter) PresentBatch(w io.Writer, out *dto.BatchOutput) error {
	records := [][]string{{"index", "question", "status", "attempts", "statement", "rows", "reason"}}
	for _, item := range out.Items {
		rec := []string{strconv.Itoa(item.Index + 1), item.Question, "error", "", "", "", item.Error}
		if o := item.Output; o != nil {
			rec[2] = string(o.Status)
			rec[3] = strconv.Itoa(o.Attempts)
			rec[4] = o.Statement
			if o.Result != nil {
				rec[5] = strconv.Itoa(o.Result.RowCount())
			}
			rec[6] = summaryReason(o.Clarification)
		}
		records = append(records, rec)
	}
	return writeCSV(w, records)
}

// PresentSchema writes one row per column
func (p *CSVPresenter) PresentSchema(w io.Writer, catalog schema.Catalog) error {
	records := [][]string{{"table", "column", "type", "primary_key", "not_null"}}
	for _, t := range catalog.Tables {
		for _, c := range t.Columns {
			records = append(records, []string{
				t.Name, c.Name, c.Type,
				strconv.FormatBool(c.PrimaryKey), strconv.FormatBool(c.NotNull),
			})
		}
	}
	return writeCSV(w, records)
}

// PresentHistory writes one row per archived session
func (p *CSVPresenter) PresentHistory(w io.Writer, items []dto.SessionSummary) error {
	records := [][]string{{"session_id", "created_at", "status", "attempts", "question"}}
	for _, it := range items {
		records = append(records, []string{
			it.SessionID,
			it.CreatedAt.UTC().Format(time.RFC3339),
			string(it.Status),
			strconv.Itoa(it.Attempts),
			it.Question,
		})
	}
	return writeCSV(w, records)
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
