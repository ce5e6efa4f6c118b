package service

import (
	"fmt"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/domain/sqlguard"
)

// ValidityRoute is the decision taken after validation
type ValidityRoute string

const (
	RouteProceedToExecute ValidityRoute = "proceed-to-execute"
	RouteRegenerate       ValidityRoute = "regenerate"
)

// RetryRoute is the decision taken after an external call
type RetryRoute string

const (
	RouteFormatSuccess   RetryRoute = "format-success"
	RouteAnalyzeAndRetry RetryRoute = "analyze-and-retry"
	RouteGiveUp          RetryRoute = "give-up"
)

// RoutingDecision carries a route and the reason it was taken
type RoutingDecision[R ~string] struct {
	Route  R
	Reason string // Decision reason for debugging
}

// RoutingService holds the pure routing decisions of the retry loop
type RoutingService struct {
	maxAttempts int
}

// NewRoutingService creates a routing service with the given attempt ceiling
func NewRoutingService(maxAttempts int) *RoutingService {
	if maxAttempts <= 0 {
		maxAttempts = 3 // Default
	}
	return &RoutingService{maxAttempts: maxAttempts}
}

// MaxAttempts returns the ceiling used when a session does not carry one
func (s *RoutingService) MaxAttempts() int {
	return s.maxAttempts
}

// RouteAfterValidation sends any failed verdict back to generation.
// There is no partial pass.
func (s *RoutingService) RouteAfterValidation(v sqlguard.Verdict) RoutingDecision[ValidityRoute] {
	if v.Passed {
		return RoutingDecision[ValidityRoute]{Route: RouteProceedToExecute, Reason: "validation passed"}
	}
	return RoutingDecision[ValidityRoute]{
		Route:  RouteRegenerate,
		Reason: fmt.Sprintf("validation failed: %s", v.Reason),
	}
}

// RouteAfterExecution decides between success, retry and giving up.
// Success always wins; a failure retries only while attempt < maxAttempts.
func (s *RoutingService) RouteAfterExecution(o session.Outcome, attempt, maxAttempts int) RoutingDecision[RetryRoute] {
	// Priority 1: success regardless of attempt count
	if o.Succeeded() {
		return RoutingDecision[RetryRoute]{Route: RouteFormatSuccess, Reason: fmt.Sprintf("attempt %d succeeded", attempt)}
	}

	// Priority 2: attempts remain
	if attempt < maxAttempts {
		return RoutingDecision[RetryRoute]{
			Route:  RouteAnalyzeAndRetry,
			Reason: fmt.Sprintf("attempt %d of %d failed, retrying", attempt, maxAttempts),
		}
	}

	// Priority 3: ceiling reached
	return RoutingDecision[RetryRoute]{
		Route:  RouteGiveUp,
		Reason: fmt.Sprintf("attempt %d of %d failed, ceiling reached", attempt, maxAttempts),
	}
}

// CanRegenerate reports whether a failed attempt may be followed by
// another generation step
func (s *RoutingService) CanRegenerate(sess *session.Session) bool {
	return sess.HasAttemptsRemaining()
}
