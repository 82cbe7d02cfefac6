package strategy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

// Strategy turns an accumulated conversation state into the next assistant
// message. Execute always appends exactly one assistant message via the
// returned delta and never leaves the turn without one.
type Strategy interface {
	Name() string
	CanHandle(st *model.ConversationState) bool
	Execute(ctx context.Context, st *model.ConversationState) (model.StateDelta, error)
}

// Selector tries strategies in priority order: synthesis, simple response,
// conversational. The trailing conversational fallback should be unreachable
// given the routing engine always names a concrete decision, but it exists as
// a defensive default.
type Selector struct {
	ordered  []Strategy
	fallback Strategy
	log      zerolog.Logger
}

func NewSelector(synthesis, simple, conversational Strategy, log zerolog.Logger) *Selector {
	return &Selector{
		ordered:  []Strategy{synthesis, simple, conversational},
		fallback: conversational,
		log:      log.With().Str("component", "strategy_selector").Logger(),
	}
}

// Select returns the first strategy claiming the state.
func (s *Selector) Select(st *model.ConversationState) Strategy {
	for _, strat := range s.ordered {
		if strat.CanHandle(st) {
			return strat
		}
	}
	s.log.Warn().Msg("no strategy claimed the state, using conversational fallback")
	return s.fallback
}

// ByDecision maps a routing decision directly onto its strategy; Select is
// the fallback when the decision does not name one.
func (s *Selector) ByDecision(st *model.ConversationState, d model.RouteDecision) Strategy {
	switch d {
	case model.RouteSynthesis:
		return s.ordered[0]
	case model.RouteSimple:
		return s.ordered[1]
	case model.RouteConversational:
		return s.ordered[2]
	default:
		return s.Select(st)
	}
}
