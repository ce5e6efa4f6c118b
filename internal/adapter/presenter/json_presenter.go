package presenter

import (
	"encoding/json"
	"io"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// JSONPresenter implements output.Presenter for JSON output
// Formats all output as JSON for programmatic consumption
type JSONPresenter struct{}

// NewJSONPresenter creates a new JSON presenter
func NewJSONPresenter() output.Presenter {
	return &JSONPresenter{}
}

// PresentAnswer encodes the whole terminal record
func (p *JSONPresenter) PresentAnswer(w io.Writer, out *dto.AskOutput) error {
	return encode(w, out)
}

// PresentBatch encodes the batch with every item
func (p *JSONPresenter) PresentBatch(w io.Writer, out *dto.BatchOutput) error {
	return encode(w, out)
}

// PresentSchema encodes the catalog
func (p *JSONPresenter) PresentSchema(w io.Writer, catalog schema.Catalog) error {
	return encode(w, catalog)
}

// PresentHistory encodes the summaries as an array, never null
func (p *JSONPresenter) PresentHistory(w io.Writer, items []dto.SessionSummary) error {
	if items == nil {
		items = []dto.SessionSummary{}
	}
	return encode(w, items)
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
