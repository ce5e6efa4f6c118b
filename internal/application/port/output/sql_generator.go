package output

import (
	"context"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
)

// SQLGenerator is the generation oracle. It may be called once per
// attempt and always receives the full history of the session.
type SQLGenerator interface {
	Generate(ctx context.Context, req dto.GenerateRequest) (string, error)
}

// SQLGeneratorFunc adapts a function to SQLGenerator
type SQLGeneratorFunc func(ctx context.Context, req dto.GenerateRequest) (string, error)

// Generate calls f
func (f SQLGeneratorFunc) Generate(ctx context.Context, req dto.GenerateRequest) (string, error) {
	return f(ctx, req)
}
