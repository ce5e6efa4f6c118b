package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/testutil"
)

func setupArchive(t *testing.T) repository.SessionRepository {
	t.Helper()
	db, err := OpenArchive(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSessionRepository(db)
}

func TestSessionRepository_SaveAndFind(t *testing.T) {
	repo := setupArchive(t)
	ctx := context.Background()

	s := testutil.SucceededSession(t, "top customers", testutil.Epoch, "employees", "staff")
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.FindByID(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), got.Snapshot())
	assert.Equal(t, session.StatusSucceeded, got.Status())
	assert.Equal(t, []string{"SELECT * FROM employees", "SELECT * FROM staff", "SELECT name FROM customers"}, got.HistoryStatements())
	assert.Equal(t, testutil.SampleResult(), *got.Result())
}

func TestSessionRepository_SaveReplaces(t *testing.T) {
	repo := setupArchive(t)
	ctx := context.Background()

	s := testutil.ExhaustedSession(t, "revenue by region", testutil.Epoch, "regions")
	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, repo.Save(ctx, s))

	records, err := repo.List(ctx, repository.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSessionRepository_FindMissing(t *testing.T) {
	repo := setupArchive(t)

	_, err := repo.FindByID(context.Background(), session.ID("01HZZZZZZZZZZZZZZZZZZZZZZZ"))
	require.Error(t, err)
	assert.True(t, session.IsNotFound(err))
}

func TestSessionRepository_List(t *testing.T) {
	repo := setupArchive(t)
	ctx := context.Background()

	older := testutil.SucceededSession(t, "first", testutil.Epoch)
	newer := testutil.ExhaustedSession(t, "second", testutil.Epoch.Add(time.Hour), "nope")
	newest := testutil.SucceededSession(t, "third", testutil.Epoch.Add(2*time.Hour), "missing")
	for _, s := range []*session.Session{older, newer, newest} {
		require.NoError(t, repo.Save(ctx, s))
	}

	all, err := repo.List(ctx, repository.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{all[0].Request, all[1].Request, all[2].Request})
	assert.Equal(t, 2, all[0].Attempts)
	assert.True(t, all[0].CreatedAt.Equal(newest.CreatedAt()))

	succeeded, err := repo.List(ctx, repository.SessionFilter{Status: session.StatusSucceeded})
	require.NoError(t, err)
	assert.Len(t, succeeded, 2)

	recent, err := repo.List(ctx, repository.SessionFilter{Since: testutil.Epoch.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := repo.List(ctx, repository.SessionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newest.ID(), limited[0].ID)
}
