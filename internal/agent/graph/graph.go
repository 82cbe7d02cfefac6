package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/workmate-core-poc/server/internal/agent/graph/classify"
	"github.com/workmate-core-poc/server/internal/agent/graph/conversations"
	"github.com/workmate-core-poc/server/internal/agent/graph/nodes"
	"github.com/workmate-core-poc/server/internal/agent/graph/observers"
	"github.com/workmate-core-poc/server/internal/agent/graph/plan"
	"github.com/workmate-core-poc/server/internal/agent/graph/route"
	"github.com/workmate-core-poc/server/internal/agent/graph/sanitize"
	"github.com/workmate-core-poc/server/internal/agent/graph/strategy"
	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/graph/workflow"
	"github.com/workmate-core-poc/server/internal/agent/model"
	"github.com/workmate-core-poc/server/internal/agent/repo"
	logx "github.com/workmate-core-poc/server/pkg/logger"
)

// Runner executes one conversation turn against the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (string, error)
}

// Config holds everything needed to compose the full response graph
// end-to-end. This is a convenience layer over GraphConfig that also
// constructs ChatModels and the routing collaborators.
type Config struct {
	APIKey           string
	BaseURL          string
	AgentModel       model.AgentModelConfig
	PlannerModel     model.PlannerModelConfig
	Persona          model.PersonaConfig
	Orchestrator     model.OrchestratorConfig
	Conversation     model.ConversationConfig
	Sanitizer        model.SanitizerConfig
	Cache            model.CacheConfig
	ConversationRepo model.ConversationRepository
	ResponseCache    model.ResponseCache
}

// GraphConfig holds all collaborators needed to build the graph.
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	Planner         *plan.Planner
	Engine          *route.Engine
	Selector        *strategy.Selector
	Sanitizer       *sanitize.Sanitizer
	Classifier      classify.Classifier
	Orchestrator    model.OrchestratorConfig
	Persona         model.PersonaConfig
}

// GraphBuilder handles the construction of the turn orchestration graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *schema.Message]
}

// BuildResponseGraph composes chat models, routing collaborators, builds the
// graph and wraps it in a Runner with response caching and cancellation
// recovery.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		AgentConfig:   &cfg.AgentModel,
		PlannerConfig: &cfg.PlannerModel,
	})
	if err != nil {
		return nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	baseLog := logx.Base()
	classifier := classify.NewRuleClassifier()
	advisor := classify.NewAdvisor()
	checker := workflow.NewChecker(cfg.Orchestrator.RedundancyThreshold, baseLog)
	engine := route.NewEngine(cfg.Orchestrator, checker, classifier, advisor, route.NewHeuristicValidator(), baseLog)
	san := sanitize.New(cfg.Sanitizer, baseLog)

	planner, err := plan.NewPlanner(cms.Planner, cfg.PlannerModel.Enabled, baseLog)
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	selector := strategy.NewSelector(
		strategy.NewSynthesis(cms.Agent, cfg.Persona, baseLog),
		strategy.NewSimpleResponse(baseLog),
		strategy.NewConversational(cms.Agent, cfg.Persona, baseLog),
		baseLog,
	)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: mm,
		Planner:         planner,
		Engine:          engine,
		Selector:        selector,
		Sanitizer:       san,
		Classifier:      classifier,
		Orchestrator:    cfg.Orchestrator,
		Persona:         cfg.Persona,
	})
	if err != nil {
		return nil, err
	}

	cacheTTL := 5 * time.Minute
	if d, err := time.ParseDuration(cfg.Cache.TTL); err == nil && d > 0 {
		cacheTTL = d
	}

	logx.Debug().Msg("Response graph built successfully")
	return &turnRunner{
		runnable:     runnable,
		conversation: cfg.ConversationRepo,
		messages:     mm,
		cache:        cfg.ResponseCache,
		cacheEnabled: cfg.Cache.Enabled && cfg.ResponseCache != nil,
		cacheTTL:     cacheTTL,
	}, nil
}

// BuildGraph constructs and returns the compiled orchestration graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Agent == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Planner == nil || config.Engine == nil || config.Selector == nil || config.Sanitizer == nil {
		return nil, fmt.Errorf("routing collaborators are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.ConversationState {
				return &model.ConversationState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures the workspace tools and binds them to the agent model.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	workspaceTools := tools.QueryTools(b.config.Orchestrator.ToolConcurrency)
	toolInfos, err := tools.GetToolInfos(ctx, workspaceTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToAgentModel(ctx, toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to agent model")
		return fmt.Errorf("failed to bind tools to agent model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools: workspaceTools,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"success\":false,\"error\":\"unknown tool %q\",\"duration_ms\":0}", name), nil
		},
		ToolArgumentsHandler: sanitizeToolArguments,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler()),
		compose.WithStatePostHandler(nodes.NewToolExecutorPostHandler(b.config.Sanitizer)),
	)

	return nil
}

// sanitizeToolArguments normalizes model-produced arguments before dispatch.
// It never fails hard; unparseable arguments pass through unchanged.
func sanitizeToolArguments(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments, nil
	}

	trimString := func(key string) {
		if v, ok := m[key]; ok {
			m[key] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	clampNumber := func(key string, min, max int) {
		v, ok := m[key]
		if !ok {
			return
		}
		switch vv := v.(type) {
		case float64:
			m[key] = clampInt(int(vv), min, max)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(vv)); err == nil {
				m[key] = clampInt(n, min, max)
			} else {
				delete(m, key)
			}
		default:
			delete(m, key)
		}
	}

	switch name {
	case tools.ToolListDocuments:
		trimString("kind")
		clampNumber("max_results", 1, 20)
	case tools.ToolGetDocument:
		trimString("name")
	case tools.ToolWebSearch:
		trimString("query")
		clampNumber("max_results", 1, 10)
	case tools.ToolCalendarEvents:
		trimString("attendee")
		clampNumber("days", 1, 30)
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(b.config.MessagesManager),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler(b.config.Classifier)),
		compose.WithStatePostHandler(nodes.NewInputConverterPostHandler(b.config.Sanitizer)),
	)

	b.graph.AddLambdaNode(nodes.NodePlanner,
		nodes.NewPlannerNode(b.config.Planner, b.config.Persona),
	)

	b.graph.AddChatModelNode(nodes.NodeAgentModel,
		b.config.ChatModels.Agent,
		compose.WithStatePreHandler(nodes.NewAgentModelPreHandler(b.config.Sanitizer)),
		compose.WithStatePostHandler(nodes.NewAgentModelPostHandler(b.config.ChatModels.AgentModelName)),
	)

	b.graph.AddLambdaNode(nodes.NodeSynthesis,
		nodes.NewStrategyNode(b.config.Selector, model.RouteSynthesis),
	)
	b.graph.AddLambdaNode(nodes.NodeSimple,
		nodes.NewStrategyNode(b.config.Selector, model.RouteSimple),
	)
	b.graph.AddLambdaNode(nodes.NodeConversational,
		nodes.NewStrategyNode(b.config.Selector, model.RouteConversational),
	)
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodePlanner},
		{nodes.NodePlanner, nodes.NodeAgentModel},
		{nodes.NodeSynthesis, compose.END},
		{nodes.NodeSimple, compose.END},
		{nodes.NodeConversational, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the routing branches. After a model round the full
// decision space is open; after a tool round the history always carries tool
// messages, so only continuation and the post-tool answer paths are
// reachable.
func (b *GraphBuilder) addBranches() error {
	agentBranch := compose.NewGraphBranch(
		nodes.NewAgentRouteCondition(b.config.Engine),
		map[string]bool{
			nodes.NodeToolExecutor:   true,
			nodes.NodeSynthesis:      true,
			nodes.NodeSimple:         true,
			nodes.NodeConversational: true,
			compose.END:              true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAgentModel, agentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding agent routing branch")
		return fmt.Errorf("error adding agent routing branch: %w", err)
	}

	toolsBranch := compose.NewGraphBranch(
		nodes.NewToolsRouteCondition(b.config.Engine),
		map[string]bool{
			nodes.NodeAgentModel: true,
			nodes.NodeSynthesis:  true,
			nodes.NodeSimple:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeToolExecutor, toolsBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tools routing branch")
		return fmt.Errorf("error adding tools routing branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	// Each routing round costs at most two run steps (model + tools); leave
	// headroom for the fixed nodes so the step cap never fires before the
	// iteration circuit breaker does.
	maxSteps := 10 + b.config.Orchestrator.MaxIterations*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

type turnRunner struct {
	runnable     compose.Runnable[model.TurnInput, *schema.Message]
	conversation model.ConversationRepository
	messages     *conversations.MessagesManager
	cache        model.ResponseCache
	cacheEnabled bool
	cacheTTL     time.Duration
}

// Invoke runs one turn. The turn always resolves to a single assistant
// answer: a cache hit short-circuits the graph, a cancellation falls back to
// the best partial the models produced, and any other failure degrades to
// the apology message.
func (r *turnRunner) Invoke(ctx context.Context, in model.TurnInput) (string, error) {
	fingerprint := r.fingerprintFor(ctx, in)
	if fingerprint != "" {
		if answer, ok, err := r.cache.Get(ctx, fingerprint); err == nil && ok {
			logx.Debug().Str("conversation_id", in.ConversationID).Msg("response cache hit")
			r.persistTurn(ctx, in, answer)
			return answer, nil
		}
	}

	rec := observers.NewRecorder()
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewTurnCallbacks(rec)))
	if err != nil {
		if ctx.Err() != nil {
			answer := rec.Best()
			if answer == "" {
				answer = strategy.ApologyMessage
			}
			logx.Warn().Str("conversation_id", in.ConversationID).Msg("turn cancelled, answering with best partial")
			r.persistAnswer(context.WithoutCancel(ctx), in.ConversationID, answer)
			return answer, nil
		}
		logx.Error().Err(err).Str("conversation_id", in.ConversationID).Msg("turn failed")
		r.persistAnswer(ctx, in.ConversationID, strategy.ApologyMessage)
		return strategy.ApologyMessage, nil
	}

	answer := strategy.ApologyMessage
	if out != nil && strings.TrimSpace(out.Content) != "" {
		answer = out.Content
	}
	// The graph seeds the user message itself; the assistant side is saved
	// here so turns ending straight from the agent model persist too.
	r.persistAnswer(ctx, in.ConversationID, answer)

	if fingerprint != "" {
		if err := r.cache.Set(ctx, fingerprint, answer, r.cacheTTL); err != nil {
			logx.Warn().Err(err).Msg("failed to store response cache entry")
		}
	}
	return answer, nil
}

// fingerprintFor computes the cache key over the persisted history plus the
// incoming query. It returns "" when caching is off or history is
// unavailable.
func (r *turnRunner) fingerprintFor(ctx context.Context, in model.TurnInput) string {
	if !r.cacheEnabled {
		return ""
	}
	history, err := r.conversation.LoadHistory(ctx, in.ConversationID)
	if err != nil {
		logx.Warn().Err(err).Msg("history unavailable for cache fingerprint")
		return ""
	}
	msgs := append(append([]*schema.Message{}, history.Messages...), schema.UserMessage(in.Query))
	return repo.Fingerprint(msgs)
}

// persistTurn writes both sides of a short-circuited turn.
func (r *turnRunner) persistTurn(ctx context.Context, in model.TurnInput, answer string) {
	if err := r.conversation.AddMessage(ctx, in.ConversationID, schema.UserMessage(in.Query)); err != nil {
		logx.Warn().Err(err).Msg("failed to persist user message")
	}
	r.persistAnswer(ctx, in.ConversationID, answer)
}

func (r *turnRunner) persistAnswer(ctx context.Context, conversationID, answer string) {
	if err := r.messages.SaveResponse(ctx, conversationID, answer); err != nil {
		logx.Warn().Err(err).Msg("failed to persist assistant answer")
	}
}

// clampInt returns v limited to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
