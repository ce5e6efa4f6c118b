package workflow

import (
	"context"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// Runner drives one request to a terminal session
type Runner interface {
	// Run uses the configured attempt ceiling
	Run(ctx context.Context, request string) (*session.Session, error)

	// RunAttempts overrides the attempt ceiling for one request
	RunAttempts(ctx context.Context, request string, maxAttempts int) (*session.Session, error)
}
