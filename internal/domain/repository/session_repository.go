package repository

import (
	"context"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// SessionFilter narrows a listing of archived sessions
type SessionFilter struct {
	Status session.Status // empty matches any status
	Since  time.Time      // zero matches any time
	Limit  int            // 0 uses the repository default
}

// SessionRecord is the listing view of one archived session
type SessionRecord struct {
	ID        session.ID
	Request   string
	Status    session.Status
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRepository archives terminal session records for audit and replay
type SessionRepository interface {
	// Save stores a terminal session. Saving the same ID twice replaces it.
	Save(ctx context.Context, s *session.Session) error

	// FindByID restores an archived session, or returns session.ErrNotFound
	FindByID(ctx context.Context, id session.ID) (*session.Session, error)

	// List returns archived sessions, newest first
	List(ctx context.Context, filter SessionFilter) ([]SessionRecord, error)
}

// DefaultListLimit is used when a filter carries no limit
const DefaultListLimit = 20

// RecordOf builds the listing view of a session
func RecordOf(s *session.Session) SessionRecord {
	return SessionRecord{
		ID:        s.ID(),
		Request:   s.Request(),
		Status:    s.Status(),
		Attempts:  len(s.HistoryStatements()),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

// Matches reports whether a record passes the filter
func (f SessionFilter) Matches(r SessionRecord) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// EffectiveLimit returns the limit to apply
func (f SessionFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
