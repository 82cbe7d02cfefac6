package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/workmate-core-poc/server/internal/agent/graph/classify"
	"github.com/workmate-core-poc/server/internal/agent/graph/conversations"
	"github.com/workmate-core-poc/server/internal/agent/graph/plan"
	"github.com/workmate-core-poc/server/internal/agent/graph/prompts"
	"github.com/workmate-core-poc/server/internal/agent/graph/route"
	"github.com/workmate-core-poc/server/internal/agent/graph/sanitize"
	"github.com/workmate-core-poc/server/internal/agent/graph/strategy"
	"github.com/workmate-core-poc/server/internal/agent/graph/workflow"
	"github.com/workmate-core-poc/server/internal/agent/model"
	logx "github.com/workmate-core-poc/server/pkg/logger"
)

// NewInputConverterPreHandler seeds the turn-scoped state from the input.
func NewInputConverterPreHandler(classifier classify.Classifier) func(context.Context, model.TurnInput, *model.ConversationState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.ConversationState) (model.TurnInput, error) {
		s.ConversationID = in.ConversationID
		s.TurnID = uuid.NewString()
		// fresh turn: counters start at zero, flags unset
		s.IterationCount = 0
		s.ToolForcingCount = 0
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		intent := classifier.Classify(in.Query)
		s.Intent = &intent
		if len(in.Metadata) > 0 {
			s.Apply(model.StateDelta{Metadata: in.Metadata})
		}
		s.Apply(model.StateDelta{
			Metadata: map[string]any{"request": in.Query},
			Trace:    []string{NodeInputConverter},
		})
		return in, nil
	}
}

// NewInputConverterNode seeds the turn history from the persistence
// collaborator.
func NewInputConverterNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.TurnInput) ([]*schema.Message, error) {
		history, err := mm.SeedHistory(ctx, input.ConversationID, input.Query)
		if err != nil {
			return nil, fmt.Errorf("seed conversation history: %w", err)
		}
		return history, nil
	})
}

// NewInputConverterPostHandler runs the ingress sanitizer pass over the
// seeded history: an analysis report first, then the mutating cleanup.
func NewInputConverterPostHandler(san *sanitize.Sanitizer) func(context.Context, []*schema.Message, *model.ConversationState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, s *model.ConversationState) ([]*schema.Message, error) {
		scratch := model.ConversationState{Messages: out, Metadata: s.Metadata}
		if rep := san.Analyze(&scratch); rep.DuplicatesRemoved > 0 {
			logx.Debug().
				Int("duplicates", rep.DuplicatesRemoved).
				Strs("issues", rep.IssuesDetected).
				Msg("ingress history carries duplicated user turns")
		}
		san.Clean(&scratch)
		return scratch.Messages, nil
	}
}

// NewPlannerNode asks the planner for an execution plan (heuristic fallback
// on any failure) and assembles the agent model's initial context.
func NewPlannerNode(planner *plan.Planner, persona model.PersonaConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) ([]*schema.Message, error) {
		query := latestUserContent(in)

		var planCtx map[string]any
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			planCtx = s.Metadata
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		p := planner.Plan(ctx, query, planCtx)

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.Apply(model.StateDelta{
				Plan:     p,
				Metadata: map[string]any{"plan": p},
				Trace:    []string{NodePlanner},
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store plan: %w", err)
		}

		system, err := prompts.RenderAgentSystem(ctx, persona, p)
		if err != nil {
			return nil, fmt.Errorf("render agent system prompt: %w", err)
		}

		out := make([]*schema.Message, 0, len(in)+1)
		out = append(out, schema.SystemMessage(system))
		out = append(out, in...)
		return out, nil
	})
}

// NewAgentModelPreHandler folds new messages into state, sanitizes, and
// returns the full context for the model call. Messages already folded in
// (tool results re-entering from the executor) are not duplicated.
func NewAgentModelPreHandler(san *sanitize.Sanitizer) func(context.Context, []*schema.Message, *model.ConversationState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, s *model.ConversationState) ([]*schema.Message, error) {
		appendNewMessages(s, in)
		san.Clean(s)
		logx.Debug().Int("context_len", len(s.Messages)).Msg("agent model thinking")
		return s.Messages, nil
	}
}

// NewAgentModelPostHandler records usage cost, normalizes tool-call ids and
// appends the model output to state.
func NewAgentModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.ConversationState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, s *model.ConversationState) (*schema.Message, error) {
		recordUsageCost(out, modelName, s, NodeAgentModel)

		// some providers omit tool_call ids; synthesize them so tool results
		// can be paired back
		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					s.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%s_%d", uuid.NewString()[:8], s.ToolCallIDSeq)
				}
			}
		}

		s.Messages = append(s.Messages, out)
		s.Trace = append(s.Trace, NodeAgentModel)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("agent requested tools")
		} else {
			logx.Debug().Msg("agent response ready")
		}
		return out, nil
	}
}

// NewAgentRouteCondition evaluates the routing engine after a model round.
func NewAgentRouteCondition(engine *route.Engine) func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, _ *schema.Message) (string, error) {
		return routeToNode(ctx, engine, map[model.RouteDecision]string{
			model.RouteUseTools:       NodeToolExecutor,
			model.RouteSynthesis:      NodeSynthesis,
			model.RouteSimple:         NodeSimple,
			model.RouteConversational: NodeConversational,
			model.RouteEnd:            compose.END,
		})
	}
}

// NewToolsRouteCondition evaluates the routing engine after a tool round.
// A tool round always leaves tool messages in history, so `end` and
// `conversational` cannot legitimately occur here; they fall back to the
// simple-response strategy so the turn still produces an answer.
func NewToolsRouteCondition(engine *route.Engine) func(context.Context, []*schema.Message) (string, error) {
	return func(ctx context.Context, _ []*schema.Message) (string, error) {
		return routeToNode(ctx, engine, map[model.RouteDecision]string{
			model.RouteUseTools:       NodeAgentModel,
			model.RouteSynthesis:      NodeSynthesis,
			model.RouteSimple:         NodeSimple,
			model.RouteConversational: NodeSimple,
			model.RouteEnd:            NodeSimple,
		})
	}
}

func routeToNode(ctx context.Context, engine *route.Engine, mapping map[model.RouteDecision]string) (string, error) {
	var decision route.Decision
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
		decision = engine.Decide(s)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to access state: %w", err)
	}
	next, ok := mapping[decision.Route]
	if !ok {
		return "", fmt.Errorf("no node mapped for decision %s", decision.Route)
	}
	return next, nil
}

// NewToolExecutorPreHandler logs the dispatch round.
func NewToolExecutorPreHandler() func(context.Context, *schema.Message, *model.ConversationState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, s *model.ConversationState) (*schema.Message, error) {
		logx.Debug().
			Int("tool_calls", len(in.ToolCalls)).
			Str("conversation_id", s.ConversationID).
			Msg("dispatching tool round")
		return in, nil
	}
}

// NewToolExecutorPostHandler folds tool results into state: messages append,
// workflow flags flip, raw outputs land in the bounded result cache, and the
// sanitizer runs at the boundary.
func NewToolExecutorPostHandler(san *sanitize.Sanitizer) func(context.Context, []*schema.Message, *model.ConversationState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, s *model.ConversationState) ([]*schema.Message, error) {
		calls := make(map[string]workflow.ExecutedCall)
		for _, m := range s.Messages {
			if m == nil || m.Role != schema.Assistant {
				continue
			}
			for _, tc := range m.ToolCalls {
				calls[tc.ID] = workflow.ExecutedCall{Name: tc.Function.Name, Args: tc.Function.Arguments}
			}
		}

		cache, _ := s.Metadata[sanitize.MetadataCacheKey].([]any)
		for _, m := range in {
			if m == nil || m.Role != schema.Tool {
				continue
			}
			s.Messages = append(s.Messages, m)
			if call, ok := calls[m.ToolCallID]; ok {
				workflow.ObserveToolResult(s, call.Name, call.Args)
			}
			cache = append(cache, m.Content)
		}
		s.Apply(model.StateDelta{
			Metadata: map[string]any{sanitize.MetadataCacheKey: cache},
			UI: []model.UIEntry{{
				ID:    fmt.Sprintf("tools-round-%d", s.IterationCount),
				Kind:  "progress",
				Label: "looking things up",
			}},
			Trace: []string{NodeToolExecutor},
		})
		san.Clean(s)
		return in, nil
	}
}

// NewStrategyNode executes the strategy named by the routing decision,
// applies its delta and emits the final answer as graph output. Persistence
// of the answer is the turn runner's job so every turn, including ones that
// end straight from the agent model, saves exactly once.
func NewStrategyNode(sel *strategy.Selector, decision model.RouteDecision) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ any) (*schema.Message, error) {
		var snapshot model.ConversationState
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			snapshot = *s
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		strat := sel.ByDecision(&snapshot, decision)
		if !strat.CanHandle(&snapshot) {
			strat = sel.Select(&snapshot)
		}

		delta, err := strat.Execute(ctx, &snapshot)
		if err != nil {
			// strategies degrade internally; an error here means even the
			// fallback path broke, so emit the apology directly
			logx.Error().Err(err).Str("strategy", strat.Name()).Msg("strategy execution failed")
			delta = model.StateDelta{
				Messages: []*schema.Message{schema.AssistantMessage(strategy.ApologyMessage, nil)},
			}
		}
		delta.UI = append(delta.UI, model.UIEntry{ID: "final-answer", Kind: "status", Label: "answer ready"})

		var final *schema.Message
		err = compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.Apply(delta)
			final = s.LastMessage()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to apply strategy delta: %w", err)
		}
		return final, nil
	})
}

func recordUsageCost(out *schema.Message, modelName string, s *model.ConversationState, node string) {
	if !model.CostEnabled() || out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
		"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
		"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	s.TotalCostUSD += totalC
	out.Extra["usage_cost_total_usd"] = s.TotalCostUSD
	logx.Debug().
		Str("conversation_id", s.ConversationID).
		Str("node", node).
		Str("model", modelName).
		Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

func latestUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

// appendNewMessages appends only messages not already present in state,
// comparing by pointer identity; re-entrant edges hand the same slices back.
func appendNewMessages(s *model.ConversationState, in []*schema.Message) {
	existing := make(map[*schema.Message]bool, len(s.Messages))
	for _, m := range s.Messages {
		existing[m] = true
	}
	for _, m := range in {
		if m == nil || existing[m] {
			continue
		}
		s.Messages = append(s.Messages, m)
	}
}
