package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workmate-core-poc/server/internal/agent/graph/conversations"
	"github.com/workmate-core-poc/server/internal/agent/graph/strategy"
	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/model"
	"github.com/workmate-core-poc/server/internal/agent/repo"
)

func sanitized(t *testing.T, tool, args string) map[string]any {
	t.Helper()
	out, err := sanitizeToolArguments(context.Background(), tool, args)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	return m
}

func TestSanitizeToolArgumentsTrimsStrings(t *testing.T) {
	m := sanitized(t, tools.ToolGetDocument, `{"name":"  Q3 Roadmap  "}`)
	assert.Equal(t, "Q3 Roadmap", m["name"])
}

func TestSanitizeToolArgumentsClampsNumbers(t *testing.T) {
	m := sanitized(t, tools.ToolWebSearch, `{"query":"pricing","max_results":500}`)
	assert.Equal(t, float64(10), m["max_results"])

	m = sanitized(t, tools.ToolCalendarEvents, `{"days":"90"}`)
	assert.Equal(t, float64(30), m["days"])
}

func TestSanitizeToolArgumentsDropsUnusableNumbers(t *testing.T) {
	m := sanitized(t, tools.ToolListDocuments, `{"max_results":"lots"}`)
	assert.NotContains(t, m, "max_results")
}

func TestSanitizeToolArgumentsPassesThroughNonJSON(t *testing.T) {
	out, err := sanitizeToolArguments(context.Background(), tools.ToolWebSearch, "not json")
	require.NoError(t, err)
	assert.Equal(t, "not json", out)
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 1, clampInt(0, 1, 20))
	assert.Equal(t, 20, clampInt(99, 1, 20))
	assert.Equal(t, 7, clampInt(7, 1, 20))
}

// memoryRepo is an in-memory ConversationRepository for turn runner tests.
type memoryRepo struct {
	messages map[string][]*schema.Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{messages: map[string][]*schema.Message{}}
}

func (r *memoryRepo) AddMessage(ctx context.Context, id string, m *schema.Message) error {
	r.messages[id] = append(r.messages[id], m)
	return nil
}

func (r *memoryRepo) LoadHistory(ctx context.Context, id string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationID: id, Messages: r.messages[id]}, nil
}

func (r *memoryRepo) ClearHistory(ctx context.Context, id string) error {
	delete(r.messages, id)
	return nil
}

func (r *memoryRepo) GetMessageCount(ctx context.Context, id string) (int, error) {
	return len(r.messages[id]), nil
}

func (r *memoryRepo) byRole(id string, role schema.RoleType) []*schema.Message {
	var out []*schema.Message
	for _, m := range r.messages[id] {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type memoryCache struct {
	entries map[string]string
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	v, ok := c.entries[fingerprint]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, fingerprint, answer string, ttl time.Duration) error {
	c.entries[fingerprint] = answer
	c.sets++
	return nil
}

// stubRunnable stands in for the compiled graph.
type stubRunnable struct {
	out   *schema.Message
	err   error
	calls int
}

func (s *stubRunnable) Invoke(ctx context.Context, in model.TurnInput, opts ...compose.Option) (*schema.Message, error) {
	s.calls++
	return s.out, s.err
}

func (s *stubRunnable) Stream(ctx context.Context, in model.TurnInput, opts ...compose.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (s *stubRunnable) Collect(ctx context.Context, in *schema.StreamReader[model.TurnInput], opts ...compose.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRunnable) Transform(ctx context.Context, in *schema.StreamReader[model.TurnInput], opts ...compose.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newTestRunner(rn compose.Runnable[model.TurnInput, *schema.Message], store *memoryRepo, cache *memoryCache, cacheEnabled bool) *turnRunner {
	var convCfg model.ConversationConfig
	convCfg.History.MaxTurns = 20
	r := &turnRunner{
		runnable:     rn,
		conversation: store,
		messages:     conversations.NewMessagesManager(store, convCfg),
		cacheEnabled: cacheEnabled && cache != nil,
		cacheTTL:     time.Minute,
	}
	if cache != nil {
		r.cache = cache
	}
	return r
}

func TestTurnRunnerPersistsDirectAnswer(t *testing.T) {
	store := newMemoryRepo()
	cache := newMemoryCache()
	stub := &stubRunnable{out: schema.AssistantMessage("Glad it helped! Anything else?", nil)}
	runner := newTestRunner(stub, store, cache, true)

	answer, err := runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "conv-1",
		Query:          "thanks for all the help earlier",
	})

	require.NoError(t, err)
	assert.Equal(t, "Glad it helped! Anything else?", answer)
	assert.Equal(t, 1, stub.calls)

	persisted := store.byRole("conv-1", schema.Assistant)
	require.Len(t, persisted, 1, "a turn ending straight from the agent model must still save its answer")
	assert.Equal(t, answer, persisted[0].Content)
	assert.Equal(t, 1, cache.sets)
}

func TestTurnRunnerCacheHitSkipsGraph(t *testing.T) {
	store := newMemoryRepo()
	cache := newMemoryCache()
	fp := repo.Fingerprint([]*schema.Message{schema.UserMessage("hello again")})
	cache.entries[fp] = "cached answer"
	stub := &stubRunnable{out: schema.AssistantMessage("fresh answer", nil)}
	runner := newTestRunner(stub, store, cache, true)

	answer, err := runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "conv-1",
		Query:          "hello again",
	})

	require.NoError(t, err)
	assert.Equal(t, "cached answer", answer)
	assert.Equal(t, 0, stub.calls, "cache hit must not run the graph")

	history := store.messages["conv-1"]
	require.Len(t, history, 2, "short-circuited turns persist both sides")
	assert.Equal(t, schema.User, history[0].Role)
	assert.Equal(t, "hello again", history[0].Content)
	assert.Equal(t, schema.Assistant, history[1].Role)
	assert.Equal(t, "cached answer", history[1].Content)
}

func TestTurnRunnerCancellationDegrades(t *testing.T) {
	store := newMemoryRepo()
	stub := &stubRunnable{err: context.Canceled}
	runner := newTestRunner(stub, store, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	answer, err := runner.Invoke(ctx, model.TurnInput{ConversationID: "conv-1", Query: "tell me more"})

	require.NoError(t, err, "a cancelled turn still resolves to an answer")
	assert.Equal(t, strategy.ApologyMessage, answer)

	persisted := store.byRole("conv-1", schema.Assistant)
	require.Len(t, persisted, 1)
	assert.Equal(t, strategy.ApologyMessage, persisted[0].Content)
}

func TestTurnRunnerFailureDegradesToApology(t *testing.T) {
	store := newMemoryRepo()
	stub := &stubRunnable{err: errors.New("model backend exploded")}
	runner := newTestRunner(stub, store, nil, false)

	answer, err := runner.Invoke(context.Background(), model.TurnInput{ConversationID: "conv-1", Query: "compare our plans"})

	require.NoError(t, err, "turn failures degrade instead of propagating")
	assert.Equal(t, strategy.ApologyMessage, answer)

	persisted := store.byRole("conv-1", schema.Assistant)
	require.Len(t, persisted, 1)
	assert.Equal(t, strategy.ApologyMessage, persisted[0].Content)
}
