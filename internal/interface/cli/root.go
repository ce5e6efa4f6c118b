package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/app"
	appconfig "github.com/YoshitsuguKoike/deequery/internal/app/config"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	infraconfig "github.com/YoshitsuguKoike/deequery/internal/infra/config"
	"github.com/YoshitsuguKoike/deequery/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/deequery/internal/interface/cli/version"
)

// skipConfig marks commands that run without loading configuration
const skipConfig = "skip-config"

// rootOptions holds persistent flags and the configuration they produce
type rootOptions struct {
	configPath string
	logLevel   string
	dbPath     string

	cfg *appconfig.AppConfig

	// overridable in tests
	loader  *infraconfig.Loader
	fs      afero.Fs
	gateway output.AgentGateway
}

// NewRoot creates the deequery command tree
func NewRoot() *cobra.Command {
	return newRoot(&rootOptions{})
}

func newRoot(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deequery",
		Short: "DeeQuery CLI",
		Long: `Answer natural-language questions over a SQLite database.

Each question runs a bounded retry loop: a statement is generated, validated
and executed; failures are diagnosed and fed back into the next attempt.
When every attempt fails a clarification request is printed instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			if _, ok := c.Annotations[skipConfig]; ok {
				InitializeLoggers(InitGlobalLogger(opts.logLevel))
				return nil
			}
			return opts.load()
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml (default $DEE_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Stderr log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database to query (overrides db_path)")

	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newSchemaCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))

	versionCmd := version.NewCommand()
	versionCmd.Annotations = map[string]string{skipConfig: ""}
	cmd.AddCommand(versionCmd)

	return cmd
}

// load reads the configuration, applies flag overrides and sets up logging.
// Priority: flags > environment > config.yaml > defaults
func (o *rootOptions) load() error {
	loader := o.loader
	if loader == nil {
		loader = infraconfig.NewLoader()
	}
	cfg, err := loader.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.logLevel != "" || o.dbPath != "" {
		cfg, err = cfg.Override(func(v *appconfig.Values) {
			if o.logLevel != "" {
				v.Log.Level = o.logLevel
			}
			if o.dbPath != "" {
				v.DB.Path = o.dbPath
			}
		})
		if err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
	}
	o.cfg = cfg

	logger := InitGlobalLogger(cfg.StderrLevel())
	InitializeLoggers(logger)
	app.GetLogger().Debug("configuration loaded from %s %s", cfg.ConfigSource(), cfg.SettingPath())
	return nil
}

// container builds the dependency graph for one command run.
// The caller must Close it.
func (o *rootOptions) container(ctx context.Context) (*di.Container, error) {
	if o.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	c, err := di.NewContainer(ctx, di.Options{
		Config:       o.cfg,
		AgentGateway: o.gateway,
		Fs:           o.fs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return c, nil
}

func (o *rootOptions) fsOrOS() afero.Fs {
	if o.fs == nil {
		return afero.NewOsFs()
	}
	return o.fs
}
