package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YoshitsuguKoike/deequery/internal/app"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/input"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/application/workflow"
	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// DefaultConcurrency is the batch concurrency when none is given
const DefaultConcurrency = 4

var (
	// ErrEmptyQuestion is returned for blank questions
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrArchiveDisabled is returned by History and Show without an archive
	ErrArchiveDisabled = errors.New("session archive is disabled")
)

// QueryUseCaseImpl implements the QueryUseCase interface
type QueryUseCaseImpl struct {
	runner  workflow.Runner
	schemas output.SchemaProvider
	archive repository.SessionRepository // nil disables archiving
	clock   func() time.Time
}

// NewQueryUseCaseImpl creates a new query use case implementation
func NewQueryUseCaseImpl(
	runner workflow.Runner,
	schemas output.SchemaProvider,
	archive repository.SessionRepository,
) *QueryUseCaseImpl {
	return &QueryUseCaseImpl{
		runner:  runner,
		schemas: schemas,
		archive: archive,
		clock:   time.Now,
	}
}

var _ input.QueryUseCase = (*QueryUseCaseImpl)(nil)

// Ask runs one session to completion
func (uc *QueryUseCaseImpl) Ask(ctx context.Context, in dto.AskInput) (*dto.AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	start := uc.clock()
	s, err := uc.runner.RunAttempts(ctx, question, in.MaxAttempts)
	if err != nil {
		return nil, err
	}
	elapsed := uc.clock().Sub(start)

	uc.archiveSession(ctx, s)
	return dto.NewAskOutput(s, elapsed), nil
}

// archiveSession stores terminal sessions. Archive failures never fail
// the request.
func (uc *QueryUseCaseImpl) archiveSession(ctx context.Context, s *session.Session) {
	if uc.archive == nil || s.Cancelled() || !s.Status().IsTerminal() {
		return
	}
	if err := uc.archive.Save(ctx, s); err != nil {
		app.GetLogger().Warn("failed to archive session %s: %v", s.ID(), err)
	}
}

// Batch answers every question with its own isolated session. One failing
// question does not stop the others.
func (uc *QueryUseCaseImpl) Batch(ctx context.Context, in dto.BatchInput) (*dto.BatchOutput, error) {
	if len(in.Questions) == 0 {
		return nil, errors.New("batch has no questions")
	}
	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	out := &dto.BatchOutput{
		BatchID: uuid.New().String(),
		Items:   make([]dto.BatchItem, len(in.Questions)),
	}
	app.GetLogger().Info("batch %s: %d questions, concurrency %d", out.BatchID, len(in.Questions), concurrency)

	start := uc.clock()
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, question := range in.Questions {
		g.Go(func() error {
			item := dto.BatchItem{Index: i, Question: question}
			res, err := uc.Ask(ctx, dto.AskInput{Question: question, MaxAttempts: in.MaxAttempts})
			if err != nil {
				item.Error = err.Error()
				app.GetLogger().Warn("batch %s: question %d failed: %v", out.BatchID, i+1, err)
			} else {
				item.Output = res
			}

			mu.Lock()
			out.Items[i] = item
			mu.Unlock()
			return nil
		})
	}
	// Items carry their own errors
	_ = g.Wait()

	for _, item := range out.Items {
		switch {
		case item.Output == nil:
			out.Failed++
		case item.Output.Succeeded():
			out.Succeeded++
		default:
			out.Exhausted++
		}
	}
	out.Duration = uc.clock().Sub(start)

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("batch %s interrupted: %w", out.BatchID, err)
	}
	return out, nil
}

// DescribeSchema returns the current catalog
func (uc *QueryUseCaseImpl) DescribeSchema(ctx context.Context) (schema.Catalog, error) {
	return uc.schemas.Describe(ctx)
}

// History lists archived sessions
func (uc *QueryUseCaseImpl) History(ctx context.Context, filter repository.SessionFilter) ([]dto.SessionSummary, error) {
	if uc.archive == nil {
		return nil, ErrArchiveDisabled
	}

	records, err := uc.archive.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]dto.SessionSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, dto.SessionSummary{
			SessionID: rec.ID.String(),
			Question:  rec.Request,
			Status:    rec.Status,
			Attempts:  rec.Attempts,
			CreatedAt: rec.CreatedAt,
		})
	}
	return summaries, nil
}

// Show restores one archived session
func (uc *QueryUseCaseImpl) Show(ctx context.Context, sessionID string) (*dto.AskOutput, error) {
	if uc.archive == nil {
		return nil, ErrArchiveDisabled
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, session.ErrInvalidArgument.WithDetails(map[string]interface{}{"field": "session_id"})
	}

	s, err := uc.archive.FindByID(ctx, session.ID(id))
	if err != nil {
		return nil, err
	}
	return dto.NewAskOutput(s, s.UpdatedAt().Sub(s.CreatedAt())), nil
}
