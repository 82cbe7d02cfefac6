package strategy

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	errx "github.com/workmate-core-poc/server/internal/core/error"
	"github.com/workmate-core-poc/server/internal/agent/graph/prompts"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

// Conversational regenerates a response from the persona and the original
// user message, discarding any placeholder content a prior round appended.
type Conversational struct {
	model   einomodel.BaseChatModel
	persona model.PersonaConfig
	log     zerolog.Logger
}

func NewConversational(m einomodel.BaseChatModel, persona model.PersonaConfig, log zerolog.Logger) *Conversational {
	return &Conversational{model: m, persona: persona, log: log.With().Str("strategy", "conversational").Logger()}
}

func (c *Conversational) Name() string { return "conversational_response" }

// CanHandle requires no tool results and no synthesis demand.
func (c *Conversational) CanHandle(st *model.ConversationState) bool {
	return !st.HasToolMessages() && !st.NeedsSynthesis
}

func (c *Conversational) Execute(ctx context.Context, st *model.ConversationState) (model.StateDelta, error) {
	system, err := prompts.RenderConversationalSystem(ctx, c.persona)
	if err != nil {
		c.log.Error().Err(err).Msg("conversational prompt render failed")
		return c.finalize(ApologyMessage), nil
	}

	query := st.LatestUserQuery()
	msgs := []*schema.Message{schema.SystemMessage(system)}
	// replay only real user/assistant exchanges; placeholder assistant
	// content from earlier rounds is dropped
	for _, m := range st.Messages {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.User:
			msgs = append(msgs, m)
		case schema.Assistant:
			if len(m.ToolCalls) == 0 && strings.TrimSpace(m.Content) != "" && !isPlaceholder(m.Content) {
				msgs = append(msgs, m)
			}
		}
	}
	if len(msgs) == 1 && query != "" {
		msgs = append(msgs, schema.UserMessage(query))
	}

	out, err := c.model.Generate(ctx, msgs)
	if err != nil || out == nil || strings.TrimSpace(out.Content) == "" {
		c.log.Error().Err(errx.WrapSynthesis(err)).Msg("conversational model call failed")
		return c.finalize(ApologyMessage), nil
	}
	return c.finalize(out.Content), nil
}

func (c *Conversational) finalize(content string) model.StateDelta {
	no := false
	return model.StateDelta{
		Messages:       []*schema.Message{schema.AssistantMessage(content, nil)},
		NeedsSynthesis: &no,
		Trace:          []string{"conversational_response"},
	}
}

func isPlaceholder(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(lower, "thinking") || lower == "..."
}
