package input

import (
	"context"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// QueryUseCase defines the interface for question answering use cases
type QueryUseCase interface {
	// Ask answers one question, archiving the finished session
	Ask(ctx context.Context, in dto.AskInput) (*dto.AskOutput, error)

	// Batch answers independent questions concurrently
	Batch(ctx context.Context, in dto.BatchInput) (*dto.BatchOutput, error)

	// DescribeSchema returns the catalog the generator will see
	DescribeSchema(ctx context.Context) (schema.Catalog, error)

	// History lists archived sessions, newest first
	History(ctx context.Context, filter repository.SessionFilter) ([]dto.SessionSummary, error)

	// Show restores one archived session
	Show(ctx context.Context, sessionID string) (*dto.AskOutput, error)
}
