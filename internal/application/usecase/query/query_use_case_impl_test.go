package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/YoshitsuguKoike/deequery/internal/app"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/testutil"
)

func TestMain(m *testing.M) {
	app.SetLogger(app.NopLogger{})
	goleak.VerifyTestMain(m)
}

// fakeRunner answers from a function and tracks concurrency
type fakeRunner struct {
	run       func(ctx context.Context, request string, maxAttempts int) (*session.Session, error)
	active    int32
	maxActive int32
}

func (r *fakeRunner) Run(ctx context.Context, request string) (*session.Session, error) {
	return r.RunAttempts(ctx, request, 0)
}

func (r *fakeRunner) RunAttempts(ctx context.Context, request string, maxAttempts int) (*session.Session, error) {
	n := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		old := atomic.LoadInt32(&r.maxActive)
		if n <= old || atomic.CompareAndSwapInt32(&r.maxActive, old, n) {
			break
		}
	}
	return r.run(ctx, request, maxAttempts)
}

// memoryArchive is an in-memory SessionRepository
type memoryArchive struct {
	mu      sync.Mutex
	saved   map[session.ID]*session.Session
	saveErr error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{saved: map[session.ID]*session.Session{}}
}

func (a *memoryArchive) Save(_ context.Context, s *session.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved[s.ID()] = s
	return nil
}

func (a *memoryArchive) FindByID(_ context.Context, id session.ID) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.saved[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (a *memoryArchive) List(_ context.Context, filter repository.SessionFilter) ([]repository.SessionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []repository.SessionRecord
	for _, s := range a.saved {
		if rec := repository.RecordOf(s); filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type staticSchemas struct{}

func (staticSchemas) Describe(context.Context) (schema.Catalog, error) {
	return testutil.Catalog(), nil
}

func TestQueryUseCase_Ask_Succeeded(t *testing.T) {
	archive := newMemoryArchive()
	var gotMax int
	runner := &fakeRunner{run: func(_ context.Context, request string, maxAttempts int) (*session.Session, error) {
		gotMax = maxAttempts
		return testutil.SucceededSession(t, request, testutil.Epoch, "employees"), nil
	}}
	uc := NewQueryUseCaseImpl(runner, staticSchemas{}, archive)

	out, err := uc.Ask(context.Background(), dto.AskInput{Question: "  list employees ", MaxAttempts: 5})

	require.NoError(t, err)
	assert.Equal(t, 5, gotMax)
	assert.True(t, out.Succeeded())
	assert.Equal(t, "list employees", out.Question)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "SELECT name FROM customers", out.Statement)
	require.NotNil(t, out.Result)
	assert.Len(t, archive.saved, 1, "terminal sessions are archived")
}

func TestQueryUseCase_Ask_Exhausted(t *testing.T) {
	archive := newMemoryArchive()
	runner := &fakeRunner{run: func(_ context.Context, request string, _ int) (*session.Session, error) {
		return testutil.ExhaustedSession(t, request, testutil.Epoch, "employees", "staff", "workers"), nil
	}}
	uc := NewQueryUseCaseImpl(runner, staticSchemas{}, archive)

	out, err := uc.Ask(context.Background(), dto.AskInput{Question: "list employees"})

	require.NoError(t, err)
	assert.False(t, out.Succeeded())
	assert.Equal(t, session.StatusExhausted, out.Status)
	require.NotNil(t, out.Clarification)
	assert.Len(t, out.Clarification.Attempts, 3)
	assert.Empty(t, out.Statement)
	assert.Len(t, archive.saved, 1)
}

func TestQueryUseCase_Ask_ArchiveErrorIsNotSurfaced(t *testing.T) {
	archive := newMemoryArchive()
	archive.saveErr = errors.New("disk full")
	runner := &fakeRunner{run: func(_ context.Context, request string, _ int) (*session.Session, error) {
		return testutil.SucceededSession(t, request, testutil.Epoch), nil
	}}
	uc := NewQueryUseCaseImpl(runner, staticSchemas{}, archive)

	out, err := uc.Ask(context.Background(), dto.AskInput{Question: "list customers"})

	require.NoError(t, err)
	assert.True(t, out.Succeeded())
}

func TestQueryUseCase_Ask_Errors(t *testing.T) {
	archive := newMemoryArchive()
	runner := &fakeRunner{run: func(context.Context, string, int) (*session.Session, error) {
		return nil, session.ErrCancelled
	}}
	uc := NewQueryUseCaseImpl(runner, staticSchemas{}, archive)

	_, err := uc.Ask(context.Background(), dto.AskInput{Question: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = uc.Ask(context.Background(), dto.AskInput{Question: "list"})
	assert.True(t, session.IsCancelled(err))
	assert.Empty(t, archive.saved, "cancelled sessions are never archived")
}

func TestQueryUseCase_Batch(t *testing.T) {
	runner := &fakeRunner{run: func(_ context.Context, request string, _ int) (*session.Session, error) {
		time.Sleep(5 * time.Millisecond)
		switch {
		case strings.Contains(request, "fail"):
			return nil, errors.New("controller failed")
		case strings.Contains(request, "staff"):
			return testutil.ExhaustedSession(t, request, testutil.Epoch, "staff"), nil
		default:
			return testutil.SucceededSession(t, request, testutil.Epoch), nil
		}
	}}
	uc := NewQueryUseCaseImpl(runner, staticSchemas{}, nil)

	questions := []string{"customers 1", "staff", "customers 2", "fail", "customers 3", "customers 4"}
	out, err := uc.Batch(context.Background(), dto.BatchInput{Questions: questions, Concurrency: 2})

	require.NoError(t, err)
	assert.NotEmpty(t, out.BatchID)
	require.Len(t, out.Items, len(questions))
	for i, item := range out.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, questions[i], item.Question)
	}
	assert.Equal(t, 4, out.Succeeded)
	assert.Equal(t, 1, out.Exhausted)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "controller failed", out.Items[3].Error)
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.maxActive), int32(2))
}

func TestQueryUseCase_Batch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{run: func(ctx context.Context, request string, _ int) (*session.Session, error) {
		cancel()
		<-ctx.Done()
		return nil, session.ErrCancelled
	}}
	uc := NewQueryUseCaseImpl(runner, staticSchemas{}, nil)

	out, err := uc.Batch(ctx, dto.BatchInput{Questions: []string{"a", "b", "c"}, Concurrency: 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, 3, out.Failed)
}

func TestQueryUseCase_Batch_Empty(t *testing.T) {
	uc := NewQueryUseCaseImpl(&fakeRunner{}, staticSchemas{}, nil)

	_, err := uc.Batch(context.Background(), dto.BatchInput{})

	assert.Error(t, err)
}

func TestQueryUseCase_HistoryAndShow(t *testing.T) {
	archive := newMemoryArchive()
	s := testutil.SucceededSession(t, "list customers", testutil.Epoch)
	require.NoError(t, archive.Save(context.Background(), s))
	uc := NewQueryUseCaseImpl(&fakeRunner{}, staticSchemas{}, archive)

	history, err := uc.History(context.Background(), repository.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, s.ID().String(), history[0].SessionID)
	assert.Equal(t, "list customers", history[0].Question)
	assert.Equal(t, session.StatusSucceeded, history[0].Status)

	out, err := uc.Show(context.Background(), s.ID().String())
	require.NoError(t, err)
	assert.Equal(t, s.ID().String(), out.SessionID)
	assert.True(t, out.Succeeded())

	_, err = uc.Show(context.Background(), "missing")
	assert.True(t, session.IsNotFound(err))

	_, err = uc.Show(context.Background(), " ")
	assert.ErrorIs(t, err, session.ErrInvalidArgument)
}

func TestQueryUseCase_ArchiveDisabled(t *testing.T) {
	uc := NewQueryUseCaseImpl(&fakeRunner{}, staticSchemas{}, nil)

	_, err := uc.History(context.Background(), repository.SessionFilter{})
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	_, err = uc.Show(context.Background(), "01J0000000000000000000000")
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestQueryUseCase_DescribeSchema(t *testing.T) {
	uc := NewQueryUseCaseImpl(&fakeRunner{}, staticSchemas{}, nil)

	cat, err := uc.DescribeSchema(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, cat.TableNames())
}
