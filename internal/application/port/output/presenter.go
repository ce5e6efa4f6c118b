package output

import (
	"io"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// Presenter renders terminal session records.
// Different implementations format output as text, JSON, CSV or markdown
type Presenter interface {
	// PresentAnswer renders one finished session
	PresentAnswer(w io.Writer, out *dto.AskOutput) error

	// PresentBatch renders the results of a batch run
	PresentBatch(w io.Writer, out *dto.BatchOutput) error

	// PresentSchema renders the catalog of the data store
	PresentSchema(w io.Writer, catalog schema.Catalog) error

	// PresentHistory renders a list of archived sessions
	PresentHistory(w io.Writer, items []dto.SessionSummary) error
}
