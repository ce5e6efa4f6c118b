package storage

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// snapshotExt is the suffix of every archived session object
const snapshotExt = ".json"

// snapshotName returns the object name for a session
func snapshotName(id session.ID) string {
	return id.String() + snapshotExt
}

// idFromName recovers the session ID from an object key, or "" when the
// key does not name a snapshot
func idFromName(key string) session.ID {
	name := path.Base(key)
	if !strings.HasSuffix(name, snapshotExt) {
		return ""
	}
	return session.ID(strings.TrimSuffix(name, snapshotExt))
}

// decodeRecord restores a snapshot and returns its listing view
func decodeRecord(key string, data []byte) (repository.SessionRecord, error) {
	s, err := session.Unmarshal(data)
	if err != nil {
		return repository.SessionRecord{}, fmt.Errorf("failed to restore %s: %w", key, err)
	}
	return repository.RecordOf(s), nil
}

// selectRecords applies the filter, orders newest first and truncates to
// the filter's limit
func selectRecords(records []repository.SessionRecord, filter repository.SessionFilter) []repository.SessionRecord {
	var out []repository.SessionRecord
	for _, r := range records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit := filter.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out
}

func notFound(id session.ID) error {
	return session.ErrNotFound.WithDetails(map[string]interface{}{"session_id": id.String()})
}
