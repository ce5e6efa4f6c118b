// Package testutil builds terminal session records for tests that need
// archived or presented sessions without running the workflow.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// Epoch is the fixed clock used by the builders
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Catalog returns a small customers/orders catalog
func Catalog() schema.Catalog {
	return schema.NewCatalog(
		schema.Table{Name: "customers", Columns: []schema.Column{
			{Name: "customer_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "name", Type: "TEXT", NotNull: true},
			{Name: "country", Type: "TEXT"},
		}},
		schema.Table{Name: "orders", Columns: []schema.Column{
			{Name: "order_id", Type: "INTEGER", PrimaryKey: true},
			{Name: "customer_id", Type: "INTEGER"},
			{Name: "total_amount", Type: "REAL"},
		}},
	)
}

// SampleResult returns a two-row result set with mixed cell types
func SampleResult() session.ResultSet {
	return session.NewResultSet(
		[]string{"name", "orders", "revenue", "vip"},
		[][]any{
			{"John Smith", int64(3), 1999.96, true},
			{"Emma Wilson", int64(2), 839.97, nil},
		},
		false,
	)
}

func apply(t *testing.T, s *session.Session, d session.Delta) {
	t.Helper()
	if err := s.Apply(d); err != nil {
		t.Fatalf("apply %s -> %s: %v", s.State(), d.State, err)
	}
}

func start(t *testing.T, request string, maxAttempts int, at time.Time) *session.Session {
	t.Helper()
	s, err := session.New(request, maxAttempts, at)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	cat := Catalog()
	apply(t, s, session.Delta{State: session.StateGenerating, Schema: &cat, At: at})
	return s
}

// failTable runs one attempt that fails execution on a missing table.
// The last permitted attempt ends in clarifying.
func failTable(t *testing.T, s *session.Session, table string, at time.Time) {
	t.Helper()
	stmt := fmt.Sprintf("SELECT * FROM %s", table)
	msg := "no such table: " + table
	attempt := s.Attempt()
	f := &session.Failure{
		Attempt:    attempt,
		Stage:      session.StageExecution,
		Code:       session.CodeTableNotFound,
		Message:    msg,
		Subject:    table,
		Suggestion: "Verify the table name exists in the database schema.",
	}
	out := session.Failed(session.StageExecution, session.KindUnknown, msg)

	apply(t, s, session.Delta{State: session.StateValidating, Candidate: &stmt, At: at})
	apply(t, s, session.Delta{State: session.StateExecuting, At: at})
	if attempt == s.MaxAttempts() {
		apply(t, s, session.Delta{
			State:       session.StateClarifying,
			Outcome:     &out,
			Failure:     f,
			NextAttempt: true,
			Status:      session.StatusExhausted,
			At:          at,
		})
		return
	}
	apply(t, s, session.Delta{State: session.StateAnalyzingFailure, Outcome: &out, At: at})
	apply(t, s, session.Delta{State: session.StateGenerating, Failure: f, NextAttempt: true, At: at})
}

// SucceededSession builds a session that fails once per missing table
// and then succeeds with SampleResult
func SucceededSession(t *testing.T, request string, at time.Time, missingTables ...string) *session.Session {
	t.Helper()
	s := start(t, request, len(missingTables)+1, at)
	for _, table := range missingTables {
		failTable(t, s, table, at)
	}

	stmt := "SELECT name FROM customers"
	out := session.Success(SampleResult())
	apply(t, s, session.Delta{State: session.StateValidating, Candidate: &stmt, At: at})
	apply(t, s, session.Delta{State: session.StateExecuting, At: at})
	apply(t, s, session.Delta{
		State:   session.StateFormatting,
		Outcome: &out,
		Status:  session.StatusSucceeded,
		At:      at,
	})
	return s
}

// ExhaustedSession builds a session whose attempts all fail on the
// given missing tables; the attempt ceiling is len(missingTables)
func ExhaustedSession(t *testing.T, request string, at time.Time, missingTables ...string) *session.Session {
	t.Helper()
	if len(missingTables) == 0 {
		t.Fatal("ExhaustedSession needs at least one table")
	}
	s := start(t, request, len(missingTables), at)
	for _, table := range missingTables {
		failTable(t, s, table, at)
	}
	return s
}
