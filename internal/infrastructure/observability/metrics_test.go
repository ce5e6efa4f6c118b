package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	r.RecordSession(session.StatusSucceeded, 1, false)
	r.RecordSession(session.StatusSucceeded, 2, false)
	r.RecordSession(session.StatusExhausted, 3, false)
	r.RecordSession(session.StatusExhausted, 1, true)
	r.RecordFailure(session.Failure{Stage: session.StageExecution, Code: session.CodeTableNotFound})
	r.RecordFailure(session.Failure{Stage: session.StageExecution, Code: session.CodeTableNotFound})
	r.ObserveStage(session.StageGeneration, 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.sessions.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions.WithLabelValues("exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessions.WithLabelValues("cancelled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.failures.WithLabelValues("execution", session.CodeTableNotFound.String())))

	expected := `
# HELP deequery_session_attempts Generation attempts consumed per finished session.
# TYPE deequery_session_attempts histogram
deequery_session_attempts_bucket{le="1"} 1
deequery_session_attempts_bucket{le="2"} 2
deequery_session_attempts_bucket{le="3"} 3
deequery_session_attempts_bucket{le="4"} 3
deequery_session_attempts_bucket{le="5"} 3
deequery_session_attempts_bucket{le="8"} 3
deequery_session_attempts_bucket{le="+Inf"} 3
deequery_session_attempts_sum 6
deequery_session_attempts_count 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "deequery_session_attempts"))

	count, err := testutil.GatherAndCount(reg, "deequery_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusRecorder_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)
	r.RecordSession(session.StatusSucceeded, 1, false)

	path := filepath.Join(t.TempDir(), "metrics", "deequery.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `deequery_sessions_total{status="succeeded"} 1`)
}
