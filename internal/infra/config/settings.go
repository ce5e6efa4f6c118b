package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deequery/internal/app/config"
)

// Defaults
const (
	DefaultHome                 = ".deequery"
	DefaultDBPath               = "data/ecommerce.sqlite"
	DefaultMaxRows              = 100
	DefaultMaxAttempts          = 3
	DefaultGenerationTimeoutSec = 60
	DefaultExecutionTimeoutSec  = 10
	DefaultAgent                = "openai"
	DefaultArchive              = "none"
	DefaultStderrLevel          = "warn"
	SettingFileName             = "config.yaml"
)

// RawSettings represents the structure of config.yaml.
// Pointer fields distinguish "not set" from zero values.
type RawSettings struct {
	// Core settings
	Home    *string `yaml:"home"`
	DBPath  *string `yaml:"db_path"`
	MaxRows *int    `yaml:"max_rows"`

	// Workflow limits
	MaxAttempts          *int `yaml:"max_attempts"`
	GenerationTimeoutSec *int `yaml:"timeout_sec"`
	ExecutionTimeoutSec  *int `yaml:"exec_timeout_sec"`

	// Generation backend
	Agent       *string  `yaml:"agent"`
	Model       *string  `yaml:"model"`
	AgentBin    *string  `yaml:"agent_bin"`
	BaseURL     *string  `yaml:"base_url"`
	ScriptPath  *string  `yaml:"script_path"`
	MaxTokens   *int     `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	Concurrency *int     `yaml:"agent_concurrency"`

	// Session archive
	Archive     *string `yaml:"archive"`
	ArchiveDir  *string `yaml:"archive_dir"`
	ArchiveDB   *string `yaml:"archive_db"`
	S3Bucket    *string `yaml:"s3_bucket"`
	S3Prefix    *string `yaml:"s3_prefix"`
	S3Region    *string `yaml:"s3_region"`
	RedisAddr   *string `yaml:"redis_addr"`
	RedisDB     *int    `yaml:"redis_db"`
	RedisTTLSec *int    `yaml:"redis_ttl_sec"`

	// Logging
	StderrLevel *string `yaml:"stderr_level"`
}

// Loader merges defaults, config.yaml and the environment
type Loader struct {
	Fs     afero.Fs
	Getenv func(string) string
}

// NewLoader returns a loader over the OS filesystem and environment
func NewLoader() *Loader {
	return &Loader{Fs: afero.NewOsFs(), Getenv: os.Getenv}
}

// Load builds the application configuration from the OS filesystem and
// environment. Priority: environment > config.yaml > defaults.
func Load(path string) (*config.AppConfig, error) {
	return NewLoader().Load(path)
}

// Load reads path, or <home>/config.yaml when path is empty. An explicit
// path must exist; the default one is optional.
func (l *Loader) Load(path string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	explicit := path != ""
	if !explicit {
		home := l.getenv("DEE_HOME")
		if home == "" {
			home = DefaultHome
		}
		path = filepath.Join(home, SettingFileName)
	}

	data, err := afero.ReadFile(l.Fs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		configSource = "yaml"
		settingPath = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file is fine
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if applyEnv(settings, l.getenv) && configSource == "default" {
		configSource = "env"
	}

	applyDefaults(settings)
	values := buildValues(settings)
	values.Agent.APIKey = apiKeyFor(values.Agent.Type, l.getenv)

	cfg, err := config.NewAppConfig(values, configSource, settingPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) getenv(k string) string {
	if l.Getenv == nil {
		return ""
	}
	return l.Getenv(k)
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(s *RawSettings) {
	setString(&s.Home, DefaultHome)
	setString(&s.DBPath, DefaultDBPath)
	setInt(&s.MaxRows, DefaultMaxRows)

	setInt(&s.MaxAttempts, DefaultMaxAttempts)
	setInt(&s.GenerationTimeoutSec, DefaultGenerationTimeoutSec)
	setInt(&s.ExecutionTimeoutSec, DefaultExecutionTimeoutSec)

	setString(&s.Agent, DefaultAgent)
	setString(&s.Model, "")
	setString(&s.AgentBin, "claude")
	setString(&s.BaseURL, "")
	setString(&s.ScriptPath, "")
	setInt(&s.MaxTokens, 0)
	setInt(&s.Concurrency, 0) // 0 keeps the per-backend default
	if s.Temperature == nil {
		v := 0.0
		s.Temperature = &v
	}

	setString(&s.Archive, DefaultArchive)
	setString(&s.ArchiveDir, filepath.Join(*s.Home, "sessions"))
	setString(&s.ArchiveDB, filepath.Join(*s.Home, "archive.db"))
	setString(&s.S3Bucket, "")
	setString(&s.S3Prefix, "deequery")
	setString(&s.S3Region, "")
	setString(&s.RedisAddr, "")
	setInt(&s.RedisDB, 0)
	setInt(&s.RedisTTLSec, 0)

	setString(&s.StderrLevel, DefaultStderrLevel) // Default to WARN level
}

func setString(p **string, v string) {
	if *p == nil {
		*p = &v
	}
}

func setInt(p **int, v int) {
	if *p == nil {
		*p = &v
	}
}

// buildValues converts defaulted RawSettings into the typed tree
func buildValues(s *RawSettings) config.Values {
	return config.Values{
		Home: *s.Home,
		DB: config.DBSettings{
			Path:    *s.DBPath,
			MaxRows: *s.MaxRows,
		},
		Workflow: config.WorkflowSettings{
			MaxAttempts:          *s.MaxAttempts,
			GenerationTimeoutSec: *s.GenerationTimeoutSec,
			ExecutionTimeoutSec:  *s.ExecutionTimeoutSec,
		},
		Agent: config.AgentSettings{
			Type:        *s.Agent,
			Model:       *s.Model,
			Bin:         *s.AgentBin,
			BaseURL:     *s.BaseURL,
			ScriptPath:  *s.ScriptPath,
			MaxTokens:   *s.MaxTokens,
			Temperature: *s.Temperature,
			Concurrency: *s.Concurrency,
		},
		Archive: config.ArchiveSettings{
			Backend:     *s.Archive,
			Dir:         *s.ArchiveDir,
			SQLitePath:  *s.ArchiveDB,
			S3Bucket:    *s.S3Bucket,
			S3Prefix:    *s.S3Prefix,
			S3Region:    *s.S3Region,
			RedisAddr:   *s.RedisAddr,
			RedisDB:     *s.RedisDB,
			RedisTTLSec: *s.RedisTTLSec,
		},
		Log: config.LogSettings{Level: *s.StderrLevel},
	}
}

// CreateDefaultSettings creates a default config.yaml content
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings)

	data, _ := yaml.Marshal(settings)
	return data
}
