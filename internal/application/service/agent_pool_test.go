package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inUse(p *AgentPool, agent string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current[agent]
}

func limitOf(p *AgentPool, agent string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limitLocked(agent)
}

// take acquires a slot without waiting
func take(p *AgentPool, agent string) bool {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return p.Acquire(ctx, agent) == nil
}

func TestNewAgentPool(t *testing.T) {
	pool := NewAgentPool()
	require.NotNil(t, pool)

	// Verify default limits
	assert.Equal(t, 4, limitOf(pool, "openai"))
	assert.Equal(t, 4, limitOf(pool, "anthropic"))
	assert.Equal(t, 1, limitOf(pool, "claude-code-cli"))
	assert.Equal(t, 8, limitOf(pool, "scripted"))

	// Verify initial current counts are 0
	assert.Equal(t, 0, inUse(pool, "openai"))
	assert.Equal(t, 0, inUse(pool, "claude-code-cli"))
}

func TestNewAgentPoolWithConfig(t *testing.T) {
	config := AgentPoolConfig{
		MaxPerAgent: map[string]int{
			"openai":       5,
			"custom-agent": 3,
		},
	}

	pool := NewAgentPoolWithConfig(config)
	require.NotNil(t, pool)

	assert.Equal(t, 5, limitOf(pool, "openai"))
	assert.Equal(t, 3, limitOf(pool, "custom-agent"))
	assert.Equal(t, 1, limitOf(pool, "unknown-agent")) // Default
}

func TestAgentPool_AcquireUpToLimit(t *testing.T) {
	pool := NewAgentPool()

	ok := take(pool, "claude-code-cli")
	assert.True(t, ok, "First acquire should succeed")
	assert.Equal(t, 1, inUse(pool, "claude-code-cli"))

	ok = take(pool, "claude-code-cli")
	assert.False(t, ok, "Second acquire should fail when limit is 1")

	pool.Release("claude-code-cli")
	assert.Equal(t, 0, inUse(pool, "claude-code-cli"))

	ok = take(pool, "claude-code-cli")
	assert.True(t, ok)
}

func TestAgentPool_Release_WhenZero(t *testing.T) {
	pool := NewAgentPool()

	// Release when count is already 0 should not go negative
	pool.Release("openai")
	assert.Equal(t, 0, inUse(pool, "openai"))
}

func TestAgentPool_Acquire_WaitsForRelease(t *testing.T) {
	pool := NewAgentPool()
	require.True(t, take(pool, "claude-code-cli"))

	acquired := make(chan error, 1)
	go func() {
		acquired <- pool.Acquire(context.Background(), "claude-code-cli")
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned while the pool was full")
	case <-time.After(20 * time.Millisecond):
	}

	pool.Release("claude-code-cli")

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}
	assert.Equal(t, 1, inUse(pool, "claude-code-cli"))
}

func TestAgentPool_Acquire_ContextCancelled(t *testing.T) {
	pool := NewAgentPool()
	require.True(t, take(pool, "claude-code-cli"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := pool.Acquire(ctx, "claude-code-cli")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inUse(pool, "claude-code-cli"))
}

func TestAgentPool_SetLimit(t *testing.T) {
	pool := NewAgentPool()

	err := pool.SetLimit("claude-code-cli", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, limitOf(pool, "claude-code-cli"))

	for i := 0; i < 3; i++ {
		assert.True(t, take(pool, "claude-code-cli"), "Acquire %d should succeed", i+1)
	}
	assert.False(t, take(pool, "claude-code-cli"), "Acquire beyond new limit should fail")
}

func TestAgentPool_SetLimit_InvalidValue(t *testing.T) {
	pool := NewAgentPool()

	err := pool.SetLimit("openai", 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max must be >= 1")

	err = pool.SetLimit("openai", -1)
	assert.Error(t, err)
}

func TestAgentPool_SetLimit_WakesWaiters(t *testing.T) {
	pool := NewAgentPool()
	require.True(t, take(pool, "claude-code-cli"))

	acquired := make(chan error, 1)
	go func() {
		acquired <- pool.Acquire(context.Background(), "claude-code-cli")
	}()

	require.NoError(t, pool.SetLimit("claude-code-cli", 2))

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("raising the limit did not wake the waiter")
	}
}

func TestAgentPool_ConcurrentAcquire(t *testing.T) {
	pool := NewAgentPool()
	require.NoError(t, pool.SetLimit("test-agent", 3))

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		maxConcurrent int
		active        int
	)

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := pool.Acquire(context.Background(), "test-agent"); err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			active++
			if active > maxConcurrent {
				maxConcurrent = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			pool.Release("test-agent")
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, maxConcurrent, 3, "Max concurrent should not exceed limit")
	assert.Greater(t, maxConcurrent, 0)
	assert.Equal(t, 0, inUse(pool, "test-agent"))
}
