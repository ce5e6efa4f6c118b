package output

import (
	"time"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// MetricsRecorder receives workflow events for monitoring
type MetricsRecorder interface {
	// ObserveStage records how long one stage took
	ObserveStage(stage session.Stage, d time.Duration)

	// RecordFailure counts one classified failure
	RecordFailure(f session.Failure)

	// RecordSession counts one finished session
	RecordSession(status session.Status, attempts int, cancelled bool)
}

// NopMetricsRecorder discards everything
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) ObserveStage(session.Stage, time.Duration) {}
func (NopMetricsRecorder) RecordFailure(session.Failure)             {}
func (NopMetricsRecorder) RecordSession(session.Status, int, bool)   {}
