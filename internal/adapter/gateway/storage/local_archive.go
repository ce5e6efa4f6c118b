package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// LocalArchive stores one JSON snapshot per session in a directory
// Layout: <baseDir>/<sessionID>.json
type LocalArchive struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalArchive creates an archive rooted at baseDir on fs
func NewLocalArchive(fs afero.Fs, baseDir string) (*LocalArchive, error) {
	if err := fs.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{fs: fs, baseDir: baseDir}, nil
}

var _ repository.SessionRepository = (*LocalArchive)(nil)

// Save writes the snapshot through a temp file and rename
func (a *LocalArchive) Save(ctx context.Context, s *session.Session) error {
	data, err := session.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	target := filepath.Join(a.baseDir, snapshotName(s.ID()))
	tmp := target + ".tmp"
	if err := afero.WriteFile(a.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := a.fs.Rename(tmp, target); err != nil {
		_ = a.fs.Remove(tmp)
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// FindByID restores one archived session
func (a *LocalArchive) FindByID(ctx context.Context, id session.ID) (*session.Session, error) {
	data, err := afero.ReadFile(a.fs, filepath.Join(a.baseDir, snapshotName(id)))
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return session.Unmarshal(data)
}

// List reads every snapshot in the directory
func (a *LocalArchive) List(ctx context.Context, filter repository.SessionFilter) ([]repository.SessionRecord, error) {
	entries, err := afero.ReadDir(a.fs, a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var records []repository.SessionRecord
	for _, entry := range entries {
		if entry.IsDir() || idFromName(entry.Name()) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Join(a.baseDir, entry.Name())
		data, err := afero.ReadFile(a.fs, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		rec, err := decodeRecord(name, data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return selectRecords(records, filter), nil
}
