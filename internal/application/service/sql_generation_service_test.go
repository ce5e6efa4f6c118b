package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/testutil"
)

// fakeAgentGateway records requests and replies with canned output
type fakeAgentGateway struct {
	mu         sync.Mutex
	capability output.AgentCapability
	replies    []string
	err        error
	requests   []output.AgentRequest
}

func (f *fakeAgentGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	return &output.AgentResponse{Output: reply, AgentType: f.capability.AgentType}, nil
}

func (f *fakeAgentGateway) GetCapability() output.AgentCapability {
	return f.capability
}

func (f *fakeAgentGateway) HealthCheck(ctx context.Context) error {
	return nil
}

func newFakeGateway(replies ...string) *fakeAgentGateway {
	return &fakeAgentGateway{
		capability: output.AgentCapability{SupportsSystemPrompt: true, AgentType: "scripted"},
		replies:    replies,
	}
}

func TestSQLGenerationService_Generate(t *testing.T) {
	gateway := newFakeGateway("```sql\nSELECT name FROM customers\n```")
	svc := NewSQLGenerationService(gateway, NewAgentPool(), nil, SQLGenerationConfig{
		Timeout:     5 * time.Second,
		MaxTokens:   512,
		Temperature: 0,
	})

	statement, err := svc.Generate(context.Background(), dto.GenerateRequest{
		Request: "list customer names",
		Schema:  testutil.Catalog(),
	})

	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM customers", statement)

	require.Len(t, gateway.requests, 1)
	req := gateway.requests[0]
	assert.Equal(t, generationRules, req.System)
	assert.Contains(t, req.Prompt, "list customer names")
	assert.Equal(t, 5*time.Second, req.Timeout)
	assert.Equal(t, 512, req.MaxTokens)
	assert.Equal(t, "1", req.Context["attempt"])
	assert.Equal(t, "list customer names", req.Context["question"])
}

func TestSQLGenerationService_HistoryReachesPrompt(t *testing.T) {
	gateway := newFakeGateway("SELECT * FROM orders")
	svc := NewSQLGenerationService(gateway, nil, nil, SQLGenerationConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateRequest{
		Request:           "show purchases",
		Schema:            testutil.Catalog(),
		HistoryStatements: []string{"SELECT * FROM purchases"},
		HistoryFailures: []session.Failure{
			{Attempt: 1, Stage: session.StageExecution, Code: session.CodeTableNotFound, Message: "no such table: purchases"},
		},
	})

	require.NoError(t, err)
	require.Len(t, gateway.requests, 1)
	assert.Contains(t, gateway.requests[0].Prompt, "SQL: SELECT * FROM purchases")
	assert.Equal(t, "2", gateway.requests[0].Context["attempt"])
}

func TestSQLGenerationService_InlinesSystemPrompt(t *testing.T) {
	gateway := newFakeGateway("SELECT 1")
	gateway.capability = output.AgentCapability{AgentType: "claude-code-cli"}
	svc := NewSQLGenerationService(gateway, NewAgentPool(), nil, SQLGenerationConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateRequest{Request: "one", Schema: testutil.Catalog()})

	require.NoError(t, err)
	req := gateway.requests[0]
	assert.Empty(t, req.System)
	assert.Contains(t, req.Prompt, "ONLY the SQL query")
	assert.Contains(t, req.Prompt, "Database Schema:")
}

func TestSQLGenerationService_PromptTooLarge(t *testing.T) {
	gateway := newFakeGateway("SELECT 1")
	gateway.capability.MaxPromptSize = 10
	svc := NewSQLGenerationService(gateway, nil, nil, SQLGenerationConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateRequest{Request: "one", Schema: testutil.Catalog()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds scripted limit")
	assert.Empty(t, gateway.requests)
}

func TestSQLGenerationService_Errors(t *testing.T) {
	t.Run("Gateway error is wrapped", func(t *testing.T) {
		gateway := newFakeGateway()
		gateway.err = context.DeadlineExceeded
		svc := NewSQLGenerationService(gateway, NewAgentPool(), nil, SQLGenerationConfig{})

		_, err := svc.Generate(context.Background(), dto.GenerateRequest{Request: "q"})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Empty reply", func(t *testing.T) {
		svc := NewSQLGenerationService(newFakeGateway("  "), nil, nil, SQLGenerationConfig{})

		_, err := svc.Generate(context.Background(), dto.GenerateRequest{Request: "q"})

		assert.True(t, errors.Is(err, ErrNoStatement))
	})

	t.Run("Cancelled while waiting for a slot", func(t *testing.T) {
		pool := NewAgentPool()
		require.True(t, take(pool, "claude-code-cli"))
		gateway := newFakeGateway("SELECT 1")
		gateway.capability.AgentType = "claude-code-cli"
		svc := NewSQLGenerationService(gateway, pool, nil, SQLGenerationConfig{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Generate(ctx, dto.GenerateRequest{Request: "q"})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, gateway.requests)
	})
}

func TestSQLGenerationService_ReleasesSlot(t *testing.T) {
	pool := NewAgentPool()
	svc := NewSQLGenerationService(newFakeGateway("SELECT 1", "SELECT 2"), pool, nil, SQLGenerationConfig{})

	for i := 0; i < 2; i++ {
		_, err := svc.Generate(context.Background(), dto.GenerateRequest{Request: "q"})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, inUse(pool, "scripted"))
}
