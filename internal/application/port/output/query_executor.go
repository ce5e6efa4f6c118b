package output

import (
	"context"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// ExecuteRequest is one validated statement to run against the data store
type ExecuteRequest struct {
	Statement string
	Schema    schema.Catalog
	Timeout   time.Duration
}

// QueryExecutor is the only adapter between the data store and the
// session. It never returns a Go error: every failure is normalized
// into a failed outcome.
type QueryExecutor interface {
	Execute(ctx context.Context, req ExecuteRequest) session.Outcome
}

// SchemaProvider returns the table/column metadata of the data store
type SchemaProvider interface {
	Describe(ctx context.Context) (schema.Catalog, error)
}
