package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YoshitsuguKoike/deequery/internal/app"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/diagnosis"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
	"github.com/YoshitsuguKoike/deequery/internal/domain/service"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/domain/sqlguard"
)

// TracerName is the instrumentation scope of controller spans
const TracerName = "deequery.workflow"

// Controller runs the generate, validate, execute and analyze loop for
// one request at a time. A Controller holds no per-session state, so one
// instance may run many sessions concurrently.
type Controller struct {
	generator  output.SQLGenerator
	executor   output.QueryExecutor
	schemas    output.SchemaProvider
	validator  *sqlguard.Validator
	classifier *diagnosis.Classifier
	router     *service.RoutingService
	config     Config

	clock   func() time.Time
	logger  app.Logger
	metrics output.MetricsRecorder
	tracer  trace.Tracer
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger, app.GetLogger() by default
func WithLogger(logger app.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m output.MetricsRecorder) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracer sets the tracer, otel.Tracer(TracerName) by default
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithClassifier replaces the default rule table
func WithClassifier(cl *diagnosis.Classifier) Option {
	return func(c *Controller) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// NewController creates a controller. Zero config fields take defaults.
func NewController(
	generator output.SQLGenerator,
	executor output.QueryExecutor,
	schemas output.SchemaProvider,
	config Config,
	opts ...Option,
) (*Controller, error) {
	if generator == nil || executor == nil || schemas == nil {
		return nil, errors.New("controller needs a generator, an executor and a schema provider")
	}
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		generator:  generator,
		executor:   executor,
		schemas:    schemas,
		validator:  sqlguard.NewValidator(),
		classifier: diagnosis.NewDefaultClassifier(),
		router:     service.NewRoutingService(config.MaxAttempts),
		config:     config,
		clock:      time.Now,
		logger:     app.GetLogger(),
		metrics:    output.NopMetricsRecorder{},
		tracer:     otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ Runner = (*Controller)(nil)

// Config returns the effective limits
func (c *Controller) Config() Config {
	return c.config
}

// Run drives request to a terminal session using the configured ceiling
func (c *Controller) Run(ctx context.Context, request string) (*session.Session, error) {
	return c.RunAttempts(ctx, request, c.config.MaxAttempts)
}

// RunAttempts drives request to a terminal session. The returned session
// is either succeeded or exhausted. A cancelled run returns no session
// and an error matching session.ErrCancelled.
func (c *Controller) RunAttempts(ctx context.Context, request string, maxAttempts int) (*session.Session, error) {
	if maxAttempts <= 0 {
		maxAttempts = c.config.MaxAttempts
	}
	started := c.clock()

	s, err := session.New(request, maxAttempts, started)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "session",
		trace.WithAttributes(
			attribute.String("session.id", s.ID().String()),
			attribute.Int("session.max_attempts", maxAttempts),
		))
	defer span.End()

	c.logger.Debug("session %s started (max attempts %d)", s.ID(), maxAttempts)

	s, err = c.loop(ctx, s)

	switch {
	case session.IsCancelled(err):
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "controller failed")
		c.logger.Error("session failed: %v", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("session.status", s.Status().String()),
		attribute.Int("session.attempts", len(s.HistoryStatements())),
	)
	c.metrics.RecordSession(s.Status(), len(s.HistoryStatements()), false)
	c.logger.Info("session %s %s after %d attempt(s)", s.ID(), s.Status(), len(s.HistoryStatements()))
	return s, nil
}

func (c *Controller) loop(ctx context.Context, s *session.Session) (*session.Session, error) {
	limit := StepLimit(s.MaxAttempts())

	for step := 0; step < limit; step++ {
		if s.State().IsTerminal() {
			return s, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, c.abort(s, err)
		}

		from := s.State()
		d, err := c.step(ctx, s)
		if err != nil {
			return nil, err
		}
		// A stage that returned because its caller went away is discarded
		if err := ctx.Err(); err != nil {
			return nil, c.abort(s, err)
		}
		if d.At.IsZero() {
			d.At = c.clock()
		}

		if err := s.Apply(d); err != nil {
			return nil, fmt.Errorf("session %s: %s -> %s: %w", s.ID(), from, d.State, err)
		}
		c.logger.Debug("session %s: %s -> %s (attempt %d)", s.ID(), from, s.State(), s.Attempt())
	}

	if s.State().IsTerminal() {
		return s, nil
	}
	return nil, session.ErrInvariantViolation.WithDetails(map[string]interface{}{
		"session_id": s.ID().String(),
		"reason":     fmt.Sprintf("no terminal state after %d steps", limit),
	})
}

// step computes the delta for the current state. Only cancellation and
// programming errors are returned as errors; every stage failure is
// expressed in the delta.
func (c *Controller) step(ctx context.Context, s *session.Session) (session.Delta, error) {
	switch s.State() {
	case session.StateInit:
		return c.attachSchema(ctx, s), nil
	case session.StateGenerating:
		return c.generate(ctx, s), nil
	case session.StateValidating:
		return c.validate(ctx, s), nil
	case session.StateExecuting:
		return c.execute(ctx, s), nil
	case session.StateAnalyzingFailure:
		return c.analyze(ctx, s)
	default:
		return session.Delta{}, session.ErrInvalidTransition.WithDetails(map[string]interface{}{
			"from": s.State().String(),
		})
	}
}

// attachSchema fetches the catalog once. A provider failure leaves the
// session with an empty catalog rather than failing the request.
func (c *Controller) attachSchema(ctx context.Context, s *session.Session) session.Delta {
	ctx, span := c.startSpan(ctx, "schema", s)
	defer span.End()

	cat, err := c.schemas.Describe(ctx)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("session %s: schema unavailable, continuing without it: %v", s.ID(), err)
		cat = schema.NewCatalog()
	}
	span.SetAttributes(attribute.Int("schema.tables", len(cat.Tables)))

	return session.Delta{State: session.StateGenerating, Schema: &cat, At: c.clock()}
}

func (c *Controller) generate(ctx context.Context, s *session.Session) session.Delta {
	ctx, span := c.startSpan(ctx, "generate", s)
	defer span.End()

	start := c.clock()
	gctx, cancel := context.WithTimeout(ctx, c.config.GenerationTimeout)
	candidate, err := c.generator.Generate(gctx, dto.GenerateRequest{
		Request:           s.Request(),
		Schema:            s.Schema(),
		HistoryStatements: s.HistoryStatements(),
		HistoryFailures:   s.HistoryFailures(),
	})
	cancel()
	c.metrics.ObserveStage(session.StageGeneration, c.clock().Sub(start))

	if err == nil && strings.TrimSpace(candidate) != "" {
		return session.Delta{State: session.StateValidating, Candidate: &candidate, At: c.clock()}
	}

	// The failed call still occupies its slot in the statement history
	empty := ""
	kind := session.KindUnknown
	message := "generator returned an empty statement"
	if err != nil {
		message = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			kind = session.KindTimeout
		}
	}
	span.SetStatus(codes.Error, message)
	outcome := session.Failed(session.StageGeneration, kind, message)

	d := session.Delta{Candidate: &empty, Outcome: &outcome, At: c.clock()}
	if c.router.CanRegenerate(s) {
		d.State = session.StateAnalyzingFailure
		return d
	}
	return c.giveUp(d, s, c.classifier.Failure(s.Attempt(), *outcome.Error))
}

func (c *Controller) validate(ctx context.Context, s *session.Session) session.Delta {
	_, span := c.startSpan(ctx, "validate", s)
	defer span.End()

	start := c.clock()
	verdict := c.validator.Validate(s.Candidate())
	c.metrics.ObserveStage(session.StageValidation, c.clock().Sub(start))

	decision := c.router.RouteAfterValidation(verdict)
	c.logger.Debug("session %s attempt %d: %s", s.ID(), s.Attempt(), decision.Reason)
	if decision.Route == service.RouteProceedToExecute {
		return session.Delta{State: session.StateExecuting, At: c.clock()}
	}

	// Validation failures skip the classifier
	f := verdict.Failure(s.Attempt())
	span.SetAttributes(attribute.String("failure.code", f.Code.String()))
	span.SetStatus(codes.Error, f.Message)
	c.metrics.RecordFailure(f)

	if !c.router.CanRegenerate(s) {
		return c.giveUp(session.Delta{At: c.clock()}, s, f)
	}
	return session.Delta{State: session.StateGenerating, Failure: &f, NextAttempt: true, At: c.clock()}
}

func (c *Controller) execute(ctx context.Context, s *session.Session) session.Delta {
	ctx, span := c.startSpan(ctx, "execute", s)
	defer span.End()

	start := c.clock()
	ectx, cancel := context.WithTimeout(ctx, c.config.ExecutionTimeout)
	outcome := c.executor.Execute(ectx, output.ExecuteRequest{
		Statement: sqlguard.Canonical(s.Candidate()),
		Schema:    s.Schema(),
		Timeout:   c.config.ExecutionTimeout,
	})
	cancel()
	c.metrics.ObserveStage(session.StageExecution, c.clock().Sub(start))

	if !outcome.IsValid() {
		outcome = session.Failed(session.StageExecution, session.KindUnknown, "executor returned no result")
	}

	decision := c.router.RouteAfterExecution(outcome, s.Attempt(), s.MaxAttempts())
	c.logger.Debug("session %s: %s", s.ID(), decision.Reason)

	switch decision.Route {
	case service.RouteFormatSuccess:
		span.SetAttributes(attribute.Int("result.rows", outcome.Result.RowCount()))
		return session.Delta{
			State:   session.StateFormatting,
			Outcome: &outcome,
			Status:  session.StatusSucceeded,
			At:      c.clock(),
		}
	case service.RouteAnalyzeAndRetry:
		span.SetStatus(codes.Error, outcome.Error.Message)
		return session.Delta{State: session.StateAnalyzingFailure, Outcome: &outcome, At: c.clock()}
	default:
		span.SetStatus(codes.Error, outcome.Error.Message)
		return c.giveUp(session.Delta{Outcome: &outcome, At: c.clock()}, s, c.classifier.Failure(s.Attempt(), *outcome.Error))
	}
}

// analyze classifies the latest failed call before the next generation
func (c *Controller) analyze(ctx context.Context, s *session.Session) (session.Delta, error) {
	_, span := c.startSpan(ctx, "analyze", s)
	defer span.End()

	o := s.Outcome()
	if o == nil || o.Error == nil {
		return session.Delta{}, session.ErrInvariantViolation.WithDetails(map[string]interface{}{
			"session_id": s.ID().String(),
			"reason":     "analyzing without a failed outcome",
		})
	}

	f := c.classifier.Failure(s.Attempt(), *o.Error)
	span.SetAttributes(attribute.String("failure.code", f.Code.String()))
	c.metrics.RecordFailure(f)
	c.logger.Debug("session %s attempt %d classified as %s", s.ID(), f.Attempt, f.Code)

	return session.Delta{State: session.StateGenerating, Failure: &f, NextAttempt: true, At: c.clock()}, nil
}

// giveUp completes d as the terminal exhausted transition for the
// current attempt's failure f
func (c *Controller) giveUp(d session.Delta, s *session.Session, f session.Failure) session.Delta {
	if f.Stage != session.StageValidation {
		c.metrics.RecordFailure(f)
	}
	c.logger.Debug("session %s: giving up after attempt %d (%s)", s.ID(), s.Attempt(), f.Code)

	d.State = session.StateClarifying
	d.Failure = &f
	d.NextAttempt = true
	d.Status = session.StatusExhausted
	return d
}

// abort marks the session cancelled and discards it
func (c *Controller) abort(s *session.Session, cause error) error {
	if err := s.Abort(c.clock()); err != nil {
		c.logger.Warn("session %s: abort: %v", s.ID(), err)
	}
	c.metrics.RecordSession(s.Status(), len(s.HistoryStatements()), true)
	c.logger.Info("session %s cancelled in %s: %v", s.ID(), s.State(), cause)

	return fmt.Errorf("%w: %w", session.ErrCancelled.WithDetails(map[string]interface{}{
		"session_id": s.ID().String(),
		"state":      s.State().String(),
		"attempt":    s.Attempt(),
	}), cause)
}

func (c *Controller) startSpan(ctx context.Context, stage string, s *session.Session) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, stage, trace.WithAttributes(
		attribute.String("session.id", s.ID().String()),
		attribute.Int("session.attempt", s.Attempt()),
	))
}
