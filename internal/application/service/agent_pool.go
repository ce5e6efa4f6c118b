package service

import (
	"context"
	"fmt"
	"sync"
)

// AgentPool manages per-agent concurrency limits.
// It tracks how many concurrent generation requests each agent type can
// handle, so that concurrent sessions never overload one backend.
type AgentPool struct {
	maxPerAgent map[string]int // agent -> max concurrent executions allowed
	current     map[string]int // agent -> current number of active executions
	released    chan struct{}  // closed and replaced on every Release
	mu          sync.Mutex
}

// AgentPoolConfig holds configuration for agent concurrency limits
type AgentPoolConfig struct {
	MaxPerAgent map[string]int
}

// NewAgentPool creates a new agent pool with default limits
func NewAgentPool() *AgentPool {
	return NewAgentPoolWithConfig(AgentPoolConfig{
		MaxPerAgent: map[string]int{
			"openai":          4, // HTTP APIs tolerate a few parallel requests
			"anthropic":       4,
			"claude-code-cli": 1, // CLI runs one at a time
			"scripted":        8,
		},
	})
}

// NewAgentPoolWithConfig creates an agent pool with custom configuration
func NewAgentPoolWithConfig(config AgentPoolConfig) *AgentPool {
	pool := &AgentPool{
		maxPerAgent: make(map[string]int),
		current:     make(map[string]int),
		released:    make(chan struct{}),
	}

	// Copy config to avoid external modifications
	for agent, max := range config.MaxPerAgent {
		pool.maxPerAgent[agent] = max
	}

	return pool
}

func (p *AgentPool) limitLocked(agent string) int {
	max, exists := p.maxPerAgent[agent]
	if !exists {
		return 1 // Default to 1 concurrent execution for unknown agents
	}
	return max
}

// Acquire blocks until a slot is free or ctx is done
func (p *AgentPool) Acquire(ctx context.Context, agent string) error {
	for {
		p.mu.Lock()
		if p.current[agent] < p.limitLocked(agent) {
			p.current[agent]++
			p.mu.Unlock()
			return nil
		}
		wait := p.released
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// Release releases a slot for the specified agent
func (p *AgentPool) Release(agent string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current[agent] > 0 {
		p.current[agent]--
	}
	close(p.released)
	p.released = make(chan struct{})
}

// SetLimit updates the maximum concurrent executions for an agent
func (p *AgentPool) SetLimit(agent string, max int) error {
	if max < 1 {
		return fmt.Errorf("max must be >= 1, got: %d", max)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.maxPerAgent[agent] = max
	close(p.released)
	p.released = make(chan struct{})
	return nil
}
