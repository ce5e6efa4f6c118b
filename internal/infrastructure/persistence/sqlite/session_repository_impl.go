package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// SessionRepositoryImpl archives sessions in a SQLite database.
// The full record is stored as a JSON snapshot next to indexed columns.
type SessionRepositoryImpl struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// OpenArchive opens (creating if needed) the archive database at path
// and applies migrations
func OpenArchive(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if err := NewMigrator(db).Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive database: %w", err)
	}
	return db, nil
}

// Save inserts or replaces an archived session
func (r *SessionRepositoryImpl) Save(ctx context.Context, s *session.Session) error {
	data, err := session.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, request, status, attempts, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			updated_at = excluded.updated_at,
			snapshot = excluded.snapshot
	`
	rec := repository.RecordOf(s)
	_, err = r.db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.Request,
		rec.Status.String(),
		rec.Attempts,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByID restores one archived session
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, id session.ID) (*session.Session, error) {
	var snapshot string
	err := r.db.QueryRowContext(ctx, "SELECT snapshot FROM sessions WHERE id = ?", id.String()).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound.WithDetails(map[string]interface{}{"session_id": id.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	s, err := session.Unmarshal([]byte(snapshot))
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}
	return s, nil
}

// List returns archived sessions, newest first
func (r *SessionRepositoryImpl) List(ctx context.Context, filter repository.SessionFilter) ([]repository.SessionRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status.String())
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	query := "SELECT id, request, status, attempts, created_at, updated_at FROM sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []repository.SessionRecord
	for rows.Next() {
		var (
			rec                  repository.SessionRecord
			id, status           string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &rec.Request, &status, &rec.Attempts, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.ID = session.ID(id)
		rec.Status = session.Status(status)
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return records, nil
}

// Timestamps are stored as fixed-width UTC text so that they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
