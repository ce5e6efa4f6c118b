package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/domain/sqlguard"
)

const (
	// DefaultMaxRows caps the rows returned by one statement
	DefaultMaxRows = 100

	// DefaultExecutionTimeout bounds one statement when the request carries none
	DefaultExecutionTimeout = 10 * time.Second
)

// QueryExecutor runs validated statements against a SQLite file.
// Each call opens its own read-only connection and releases it on return.
type QueryExecutor struct {
	path    string
	maxRows int
}

// NewQueryExecutor creates an executor for the database at path
func NewQueryExecutor(path string, maxRows int) *QueryExecutor {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &QueryExecutor{path: path, maxRows: maxRows}
}

var _ output.QueryExecutor = (*QueryExecutor)(nil)

// ReadOnlyDSN builds a connection string that cannot write: the file is
// opened with mode=ro and the connection with query_only set.
func ReadOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Opaque: path}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("_query_only", "1")
	u.RawQuery = q.Encode()
	return u.String()
}

// openReadOnly opens a single read-only connection. A missing file is
// reported instead of being created.
func openReadOnly(ctx context.Context, path string) (*sql.DB, *sql.Conn, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("database file %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", ReadOnlyDSN(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return db, conn, nil
}

// Execute runs exactly one statement. Every failure, including a missing
// database, a timeout or a statement with side effects, comes back as a
// failed outcome.
func (e *QueryExecutor) Execute(ctx context.Context, req output.ExecuteRequest) session.Outcome {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stmts, err := sqlguard.SplitStatements(req.Statement)
	if err != nil {
		return failed(session.KindUnknown, err.Error())
	}
	if len(stmts) != 1 {
		return failed(session.KindUnknown, fmt.Sprintf("expected exactly one statement, got %d", len(stmts)))
	}

	db, conn, err := openReadOnly(ctx, e.path)
	if err != nil {
		return failed(kindOf(err), err.Error())
	}
	defer db.Close()
	defer conn.Close()

	before, err := totalChanges(ctx, conn)
	if err != nil {
		return failed(kindOf(err), err.Error())
	}

	rs, err := e.query(ctx, conn, stmts[0])
	if err != nil {
		return failed(kindOf(err), err.Error())
	}

	after, err := totalChanges(ctx, conn)
	if err != nil {
		return failed(kindOf(err), err.Error())
	}
	if after != before {
		return failed(session.KindConstraint, "statement produced side effects")
	}

	return session.Success(rs)
}

func (e *QueryExecutor) query(ctx context.Context, conn *sql.Conn, stmt string) (session.ResultSet, error) {
	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return session.ResultSet{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return session.ResultSet{}, fmt.Errorf("read columns: %w", err)
	}

	var (
		data      [][]any
		truncated bool
	)
	for rows.Next() {
		if len(data) == e.maxRows {
			truncated = true
			break
		}
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return session.ResultSet{}, fmt.Errorf("scan row %d: %w", len(data)+1, err)
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return session.ResultSet{}, err
	}
	if !truncated && rows.NextResultSet() {
		return session.ResultSet{}, errors.New("statement returned multiple result sets")
	}

	return session.NewResultSet(columns, data, truncated), nil
}

func totalChanges(ctx context.Context, conn *sql.Conn) (int64, error) {
	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT total_changes()").Scan(&n); err != nil {
		return 0, fmt.Errorf("read change counter: %w", err)
	}
	return n, nil
}

func failed(kind session.ErrorKind, message string) session.Outcome {
	return session.Failed(session.StageExecution, kind, message)
}

// kindOf maps an engine error onto a coarse kind using the SQLite result
// codes. Anything the engine does not tag is UNKNOWN and left to the
// classifier.
func kindOf(err error) session.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return session.KindTimeout
	}
	if errors.Is(err, os.ErrNotExist) {
		return session.KindNotFound
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrInterrupt, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return session.KindTimeout
		case sqlite3.ErrConstraint, sqlite3.ErrReadonly, sqlite3.ErrPerm, sqlite3.ErrAuth:
			return session.KindConstraint
		case sqlite3.ErrMismatch:
			return session.KindTypeError
		case sqlite3.ErrNotFound, sqlite3.ErrCantOpen:
			return session.KindNotFound
		}
	}

	if strings.Contains(strings.ToLower(err.Error()), "interrupted") {
		return session.KindTimeout
	}
	return session.KindUnknown
}
