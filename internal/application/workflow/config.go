package workflow

import (
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts       = 3
	DefaultGenerationTimeout = 60 * time.Second
	DefaultExecutionTimeout  = 10 * time.Second
)

// Config holds the limits of one controller
type Config struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	ExecutionTimeout  time.Duration `yaml:"execution_timeout"`
}

// DefaultConfig returns the default limits
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       DefaultMaxAttempts,
		GenerationTimeout: DefaultGenerationTimeout,
		ExecutionTimeout:  DefaultExecutionTimeout,
	}
}

// withDefaults fills zero fields
func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.GenerationTimeout == 0 {
		c.GenerationTimeout = DefaultGenerationTimeout
	}
	if c.ExecutionTimeout == 0 {
		c.ExecutionTimeout = DefaultExecutionTimeout
	}
	return c
}

// Validate checks the limits
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got: %d", c.MaxAttempts)
	}
	if c.GenerationTimeout < 0 || c.ExecutionTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// StepLimit bounds the controller loop for a given attempt ceiling.
// One attempt takes at most four steps, plus the init step.
func StepLimit(maxAttempts int) int {
	return 4*maxAttempts + 4
}
