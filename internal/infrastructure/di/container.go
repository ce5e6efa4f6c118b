package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	agentgateway "github.com/YoshitsuguKoike/deequery/internal/adapter/gateway/agent"
	storagegateway "github.com/YoshitsuguKoike/deequery/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/deequery/internal/app"
	appconfig "github.com/YoshitsuguKoike/deequery/internal/app/config"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/input"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/application/service"
	queryusecase "github.com/YoshitsuguKoike/deequery/internal/application/usecase/query"
	"github.com/YoshitsuguKoike/deequery/internal/application/workflow"
	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/infrastructure/observability"
	sqliterepo "github.com/YoshitsuguKoike/deequery/internal/infrastructure/persistence/sqlite"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - Data store
	executor output.QueryExecutor
	schemas  output.SchemaProvider

	// Infrastructure Layer - Archive (nil when disabled)
	archive repository.SessionRepository

	// Infrastructure Layer - Gateways
	agentGateway output.AgentGateway
	agentErr     error // why no gateway could be built

	// Infrastructure Layer - Metrics
	registry *prometheus.Registry
	metrics  output.MetricsRecorder

	// Application Layer
	controller   *workflow.Controller
	queryUseCase input.QueryUseCase

	// Configuration
	config Options

	closers []func() error
}

// Options holds configuration for the container
type Options struct {
	Config *appconfig.AppConfig

	// AgentGateway replaces the configured backend when set
	AgentGateway output.AgentGateway

	// Fs is used for file-backed components, defaults to the OS filesystem
	Fs afero.Fs

	// Clock defaults to time.Now
	Clock func() time.Time
}

// NewContainer creates and initializes the DI container
func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("container needs a configuration")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Container{config: opts}

	// Initialize dependencies in dependency order
	if err := c.initializeInfrastructure(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	if err := c.initializeApplication(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	cfg := c.config.Config

	// 1. Data store
	c.executor = sqliterepo.NewQueryExecutor(cfg.DBPath(), cfg.MaxRows())
	c.schemas = sqliterepo.NewSchemaProvider(cfg.DBPath())

	// 2. Agent gateway. A missing credential only matters to commands
	// that generate statements.
	if c.config.AgentGateway != nil {
		c.agentGateway = c.config.AgentGateway
	} else {
		agent := cfg.Agent()
		c.agentGateway, c.agentErr = agentgateway.NewAgentGateway(agentgateway.Config{
			Type:       agent.Type,
			Model:      agent.Model,
			APIKey:     agent.APIKey,
			BaseURL:    agent.BaseURL,
			ClaudeBin:  agent.Bin,
			Timeout:    cfg.GenerationTimeout(),
			ScriptPath: agent.ScriptPath,
			Fs:         c.config.Fs,
		})
	}

	// 3. Archive
	archive, err := c.openArchive(ctx, cfg.Archive())
	if err != nil {
		return err
	}
	c.archive = archive

	// 4. Metrics
	c.registry = prometheus.NewRegistry()
	recorder, err := observability.NewPrometheusRecorder(c.registry)
	if err != nil {
		return err
	}
	c.metrics = recorder
	return nil
}

// openArchive builds the configured session archive
func (c *Container) openArchive(ctx context.Context, a appconfig.ArchiveSettings) (repository.SessionRepository, error) {
	switch a.Backend {
	case "", "none":
		return nil, nil

	case "sqlite":
		db, err := sqliterepo.OpenArchive(a.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
		return sqliterepo.NewSessionRepository(db), nil

	case "local":
		return storagegateway.NewLocalArchive(c.config.Fs, a.Dir)

	case "s3":
		return storagegateway.NewS3Archive(ctx, storagegateway.S3Config{
			BucketName: a.S3Bucket,
			Prefix:     a.S3Prefix,
			Region:     a.S3Region,
		})

	case "redis":
		archive, err := storagegateway.NewRedisArchive(ctx, storagegateway.RedisConfig{
			Addr:   a.RedisAddr,
			DB:     a.RedisDB,
			Prefix: "deequery",
			TTL:    time.Duration(a.RedisTTLSec) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, archive.Close)
		return archive, nil

	default:
		return nil, fmt.Errorf("unknown archive backend: %s", a.Backend)
	}
}

// initializeApplication initializes application layer components
func (c *Container) initializeApplication() error {
	cfg := c.config.Config

	var runner workflow.Runner = unavailableRunner{err: c.agentErr}
	if c.agentErr == nil {
		agent := cfg.Agent()
		pool := service.NewAgentPool()
		if agent.Concurrency > 0 {
			if err := pool.SetLimit(agent.Type, agent.Concurrency); err != nil {
				return err
			}
		}
		generator := service.NewSQLGenerationService(
			c.agentGateway,
			pool,
			service.NewPromptBuilderService(),
			service.SQLGenerationConfig{
				Timeout:     cfg.GenerationTimeout(),
				MaxTokens:   agent.MaxTokens,
				Temperature: agent.Temperature,
			},
		)

		controller, err := workflow.NewController(generator, c.executor, c.schemas,
			workflow.Config{
				MaxAttempts:       cfg.MaxAttempts(),
				GenerationTimeout: cfg.GenerationTimeout(),
				ExecutionTimeout:  cfg.ExecutionTimeout(),
			},
			workflow.WithClock(c.config.Clock),
			workflow.WithLogger(app.GetLogger()),
			workflow.WithMetrics(c.metrics),
		)
		if err != nil {
			return err
		}
		c.controller = controller
		runner = controller
	}

	c.queryUseCase = queryusecase.NewQueryUseCaseImpl(runner, c.schemas, c.archive)
	return nil
}

// GetQueryUseCase returns the query use case
func (c *Container) GetQueryUseCase() input.QueryUseCase {
	return c.queryUseCase
}

// GetController returns the workflow controller, nil when no agent is available
func (c *Container) GetController() *workflow.Controller {
	return c.controller
}

// GetAgentGateway returns the agent gateway and the reason it is missing
func (c *Container) GetAgentGateway() (output.AgentGateway, error) {
	return c.agentGateway, c.agentErr
}

// GetArchive returns the session archive, nil when disabled
func (c *Container) GetArchive() repository.SessionRepository {
	return c.archive
}

// GetRegistry returns the Prometheus registry holding workflow metrics
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Close releases every resource the container opened
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// unavailableRunner stands in for the controller when no agent gateway
// could be built, so that commands not generating SQL still work
type unavailableRunner struct {
	err error
}

func (r unavailableRunner) Run(ctx context.Context, request string) (*session.Session, error) {
	return nil, fmt.Errorf("no generation backend: %w", r.err)
}

func (r unavailableRunner) RunAttempts(ctx context.Context, request string, maxAttempts int) (*session.Session, error) {
	return r.Run(ctx, request)
}
