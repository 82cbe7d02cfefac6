package route

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/workmate-core-poc/server/internal/agent/graph/classify"
	"github.com/workmate-core-poc/server/internal/agent/graph/workflow"
	"github.com/workmate-core-poc/server/internal/agent/model"
	"github.com/cloudwego/eino/schema"
)

// Decision is a routing verdict plus the rule that produced it.
type Decision struct {
	Route  model.RouteDecision
	Reason string
}

// Engine is the routing decision engine: given the current state it emits one
// decision per round. The rule ordering is the central design decision here:
// termination guarantees (circuit breaker, aggressive convergence, redundancy)
// dominate intent-based preferences so worst-case tool rounds stay bounded.
type Engine struct {
	cfg        model.OrchestratorConfig
	checker    *workflow.Checker
	classifier classify.Classifier
	advisor    *classify.Advisor
	validator  SynthesisValidator
	log        zerolog.Logger
}

func NewEngine(
	cfg model.OrchestratorConfig,
	checker *workflow.Checker,
	classifier classify.Classifier,
	advisor *classify.Advisor,
	validator SynthesisValidator,
	log zerolog.Logger,
) *Engine {
	if validator == nil {
		validator = NewHeuristicValidator()
	}
	if cfg.SynthesisConfidence <= 0 {
		cfg.SynthesisConfidence = 0.6
	}
	return &Engine{
		cfg:        cfg,
		checker:    checker,
		classifier: classifier,
		advisor:    advisor,
		validator:  validator,
		log:        log.With().Str("component", "router").Logger(),
	}
}

// Decide runs one routing round. It increments the iteration counter (the
// counter never decreases, and the circuit breaker keys off it) and evaluates
// the rules in strict priority order; the first match wins.
func (e *Engine) Decide(st *model.ConversationState) Decision {
	st.IterationCount++

	query := st.LatestUserQuery()
	intent := st.Intent
	if intent == nil {
		classified := e.classifier.Classify(query)
		intent = &classified
		st.Intent = intent
	}
	pending := st.PendingToolCalls()

	// Rule 1: circuit breaker. Forces synthesis regardless of pending tool
	// calls; this is what guarantees termination.
	if st.IterationCount > e.cfg.MaxIterations {
		e.log.Warn().
			Int("iteration", st.IterationCount).
			Int("max_iterations", e.cfg.MaxIterations).
			Msg("circuit breaker tripped, forcing synthesis")
		return e.decided(st, model.RouteSynthesis, "circuit_breaker")
	}

	// Rule 2: aggressive convergence. Both a broad external-search result and
	// an internal listing exist; stop oscillating between the two.
	if workflow.HasBroadAndInternalResults(st) && st.IterationCount >= e.cfg.ConvergenceMinRound {
		return e.decided(st, model.RouteSynthesis, "aggressive_convergence")
	}

	advice := e.advisor.Advise(query)

	// Rule 3: workflow-incompleteness continuation. High-priority suggested
	// tools remain unexecuted and the model is already in a tooling posture.
	if !e.checker.ReadyForSynthesis(st, advice) &&
		lastAssistantRequestedTools(st) &&
		st.ToolForcingCount < e.cfg.MaxToolForcing {
		st.ToolForcingCount++
		return e.decided(st, model.RouteUseTools, "workflow_incomplete")
	}

	// Rule 4: redundancy breaker. The requested calls duplicate work already
	// done; break the loop before dispatching them.
	if e.checker.IsRedundant(st, pending) {
		return e.decided(st, model.RouteSynthesis, "redundant_tools")
	}

	// Rule 5: tool dispatch, with a listing circuit breaker: re-listing an
	// already-listed workspace is skipped straight into synthesis.
	if len(pending) > 0 {
		if isListDocumentsQuery(query) && st.Workflow.DocumentsListed {
			return e.decided(st, model.RouteSynthesis, "listing_already_done")
		}
		return e.decided(st, model.RouteUseTools, "pending_tool_calls")
	}

	// Rule 6: natural completion. A finished assistant answer ends the turn;
	// anything else would duplicate the final message.
	if last := st.LastMessage(); last != nil &&
		last.Role == schema.Assistant &&
		strings.TrimSpace(last.Content) != "" {
		return e.decided(st, model.RouteEnd, "natural_completion")
	}

	// Rule 7: post-tool routing.
	if st.HasToolMessages() {
		needs := st.NeedsSynthesis
		multiDoc := workflow.DistinctDocumentsTouched(st) > 1
		if multiDoc {
			needs = true
		}
		if force, value, conf := e.validator.Override(st); force && conf >= 0.5 {
			needs = value
		}
		// The scored signal can outvote the intent table upward: a query the
		// advisor rates complex gets a synthesized answer even when the
		// pattern match landed on a simple intent.
		if intent.RequiresDeepAnalysis || advice.Confidence >= e.cfg.SynthesisConfidence {
			needs = true
		}
		if intent.Complexity == model.ComplexityLow &&
			intent.IntentType == model.IntentSimpleLookup && !multiDoc &&
			advice.Confidence < e.cfg.SynthesisConfidence {
			needs = false
		}
		st.NeedsSynthesis = needs
		if needs {
			return e.decided(st, model.RouteSynthesis, "post_tool_synthesis")
		}
		return e.decided(st, model.RouteSimple, "post_tool_simple")
	}

	// Rule 8: no tool results yet. Conversational queries converse; anything
	// else ends as a loop-safety default.
	if intent.IntentType == model.IntentConversational && intent.Complexity == model.ComplexityLow {
		return e.decided(st, model.RouteConversational, "conversational")
	}
	return e.decided(st, model.RouteEnd, "loop_safety_default")
}

func (e *Engine) decided(st *model.ConversationState, route model.RouteDecision, reason string) Decision {
	e.log.Debug().
		Str("route", route.String()).
		Str("reason", reason).
		Int("iteration", st.IterationCount).
		Msg("routing decision")
	return Decision{Route: route, Reason: reason}
}

func lastAssistantRequestedTools(st *model.ConversationState) bool {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		m := st.Messages[i]
		if m == nil || m.Role != schema.Assistant {
			continue
		}
		return len(m.ToolCalls) > 0
	}
	return false
}

func isListDocumentsQuery(query string) bool {
	lower := strings.ToLower(query)
	if !strings.Contains(lower, "list") && !strings.Contains(lower, "show") {
		return false
	}
	for _, hint := range []string{"document", "doc", "file"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
