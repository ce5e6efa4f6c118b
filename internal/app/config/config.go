package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (YAML, ENV, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Core settings
	Home() string   // Base directory for DeeQuery (DEE_HOME)
	DBPath() string // SQLite database queried by sessions (DEE_DB_PATH)
	MaxRows() int   // Row cap per statement (DEE_MAX_ROWS)

	// Workflow limits
	MaxAttempts() int                 // Attempt ceiling per session (DEE_MAX_ATTEMPTS)
	GenerationTimeout() time.Duration // Per generation call (DEE_TIMEOUT_SEC)
	ExecutionTimeout() time.Duration  // Per statement (DEE_EXEC_TIMEOUT)

	// Collaborators
	Agent() AgentSettings     // Generation backend (DEE_AGENT, DEE_MODEL, DEE_AGENT_BIN)
	Archive() ArchiveSettings // Session archive (DEE_ARCHIVE, ...)

	// Logging
	StderrLevel() string // Stderr log level (DEE_STDERR_LEVEL)

	// Metadata
	ConfigSource() string // Source of configuration: "yaml", "env", or "default"
	SettingPath() string  // Path to config.yaml if loaded from file
}

// Values is the typed, validated configuration tree
type Values struct {
	Home     string           `yaml:"home" validate:"required"`
	DB       DBSettings       `yaml:"db"`
	Workflow WorkflowSettings `yaml:"workflow"`
	Agent    AgentSettings    `yaml:"agent"`
	Archive  ArchiveSettings  `yaml:"archive"`
	Log      LogSettings      `yaml:"log"`
}

// DBSettings points at the queried database
type DBSettings struct {
	Path    string `yaml:"path" validate:"required"`
	MaxRows int    `yaml:"max_rows" validate:"gte=1,lte=100000"`
}

// WorkflowSettings bound the retry loop
type WorkflowSettings struct {
	MaxAttempts          int `yaml:"max_attempts" validate:"gte=1,lte=20"`
	GenerationTimeoutSec int `yaml:"generation_timeout_sec" validate:"gte=1"`
	ExecutionTimeoutSec  int `yaml:"execution_timeout_sec" validate:"gte=1"`
}

// AgentSettings selects the generation backend
type AgentSettings struct {
	Type        string  `yaml:"type" validate:"oneof=openai anthropic claude-code-cli scripted"`
	Model       string  `yaml:"model"`
	Bin         string  `yaml:"bin"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string  `yaml:"-"` // only from the environment
	ScriptPath  string  `yaml:"script_path" validate:"required_if=Type scripted"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	Concurrency int     `yaml:"agent_concurrency" validate:"gte=0"` // parallel calls per backend, 0 for the default
}

// ArchiveSettings selects where terminal sessions are archived
type ArchiveSettings struct {
	Backend     string `yaml:"backend" validate:"oneof=none sqlite local s3 redis"`
	Dir         string `yaml:"dir" validate:"required_if=Backend local"`
	SQLitePath  string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	S3Bucket    string `yaml:"s3_bucket" validate:"required_if=Backend s3"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3Region    string `yaml:"s3_region"`
	RedisAddr   string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB     int    `yaml:"redis_db" validate:"gte=0"`
	RedisTTLSec int    `yaml:"redis_ttl_sec" validate:"gte=0"`
}

// Enabled reports whether sessions are archived at all
func (a ArchiveSettings) Enabled() bool {
	return a.Backend != "" && a.Backend != "none"
}

// LogSettings configure stderr logging
type LogSettings struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports each violation by its path
func (v Values) Validate() error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Values.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// AppConfig is the concrete implementation of Config interface.
// It holds all configuration values loaded from various sources.
type AppConfig struct {
	values       Values
	configSource string
	settingPath  string
}

var _ Config = (*AppConfig)(nil)

// NewAppConfig validates the values and wraps them.
// This is typically called by the infrastructure layer after loading and merging configurations.
func NewAppConfig(values Values, configSource, settingPath string) (*AppConfig, error) {
	if err := values.Validate(); err != nil {
		return nil, err
	}
	return &AppConfig{values: values, configSource: configSource, settingPath: settingPath}, nil
}

// Override returns a copy with fn applied, validated again. Used for
// command-line flags, which take precedence over every other source.
func (c *AppConfig) Override(fn func(*Values)) (*AppConfig, error) {
	v := c.values
	fn(&v)
	return NewAppConfig(v, c.configSource, c.settingPath)
}

// Values returns a copy of the configuration tree
func (c *AppConfig) Values() Values {
	return c.values
}

// Home returns the base directory for DeeQuery
func (c *AppConfig) Home() string {
	return c.values.Home
}

// DBPath returns the path of the queried database
func (c *AppConfig) DBPath() string {
	return c.values.DB.Path
}

// MaxRows returns the row cap per statement
func (c *AppConfig) MaxRows() int {
	return c.values.DB.MaxRows
}

// MaxAttempts returns the attempt ceiling per session
func (c *AppConfig) MaxAttempts() int {
	return c.values.Workflow.MaxAttempts
}

// GenerationTimeout returns the bound on one generation call
func (c *AppConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.values.Workflow.GenerationTimeoutSec) * time.Second
}

// ExecutionTimeout returns the bound on one statement
func (c *AppConfig) ExecutionTimeout() time.Duration {
	return time.Duration(c.values.Workflow.ExecutionTimeoutSec) * time.Second
}

// Agent returns the generation backend settings
func (c *AppConfig) Agent() AgentSettings {
	return c.values.Agent
}

// Archive returns the session archive settings
func (c *AppConfig) Archive() ArchiveSettings {
	return c.values.Archive
}

// StderrLevel returns the stderr log level
func (c *AppConfig) StderrLevel() string {
	return c.values.Log.Level
}

// ConfigSource returns the source of configuration
func (c *AppConfig) ConfigSource() string {
	return c.configSource
}

// SettingPath returns the path to config.yaml if loaded from file
func (c *AppConfig) SettingPath() string {
	return c.settingPath
}
