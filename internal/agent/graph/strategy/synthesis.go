package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	errx "github.com/workmate-core-poc/server/internal/core/error"
	"github.com/workmate-core-poc/server/internal/agent/graph/prompts"
	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/graph/workflow"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

// ApologyMessage is the single fallback answer when the final model call
// itself fails. A turn must never end without an assistant message.
const ApologyMessage = "I'm sorry, I ran into a problem while putting your answer together. Please try asking again in a moment."

// Synthesis integrates all gathered tool results into one analytical answer.
type Synthesis struct {
	model   einomodel.BaseChatModel
	persona model.PersonaConfig
	log     zerolog.Logger
}

func NewSynthesis(m einomodel.BaseChatModel, persona model.PersonaConfig, log zerolog.Logger) *Synthesis {
	return &Synthesis{model: m, persona: persona, log: log.With().Str("strategy", "synthesis").Logger()}
}

func (s *Synthesis) Name() string { return "synthesis" }

// CanHandle claims any state flagged for synthesis.
func (s *Synthesis) CanHandle(st *model.ConversationState) bool {
	return st.NeedsSynthesis || st.HasToolMessages()
}

// Execute builds a query-shaped system instruction, formats the tool results
// attributed to their sources and asks the model to integrate them. A model
// failure yields the apologetic fallback message, never an error turn.
func (s *Synthesis) Execute(ctx context.Context, st *model.ConversationState) (model.StateDelta, error) {
	query := st.LatestUserQuery()
	shape := prompts.ShapeForQuery(query)

	system, err := prompts.RenderSynthesisSystem(ctx, s.persona, shape)
	if err != nil {
		s.log.Error().Err(err).Msg("synthesis prompt render failed")
		return s.finalize(st, ApologyMessage), nil
	}

	material := FormatToolResults(st)
	var userContent string
	if material == "" {
		// zero tool results: fall back to a minimal instruction
		userContent = query
	} else {
		userContent = fmt.Sprintf("%s\n\nGathered material:\n%s", query, material)
	}

	out, err := s.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(userContent),
	})
	if err != nil || out == nil || strings.TrimSpace(out.Content) == "" {
		s.log.Error().Err(errx.WrapSynthesis(err)).Msg("synthesis model call failed")
		return s.finalize(st, ApologyMessage), nil
	}
	return s.finalize(st, out.Content), nil
}

func (s *Synthesis) finalize(st *model.ConversationState, content string) model.StateDelta {
	no := false
	delta := model.StateDelta{
		Messages:       []*schema.Message{schema.AssistantMessage(content, nil)},
		NeedsSynthesis: &no,
		Trace:          []string{"synthesis"},
	}
	if workflow.DistinctDocumentsTouched(st) > 1 {
		delta.Workflow = &model.WorkflowState{MultiDocAnalysisDone: true}
	}
	return delta
}

// FormatToolResults renders every tool result attributed to its source tool,
// unwrapping the invoke envelope where possible.
func FormatToolResults(st *model.ConversationState) string {
	toolMsgs := st.ToolMessages()
	if len(toolMsgs) == 0 {
		return ""
	}
	names := workflow.CallNamesByID(st.Messages)

	var b strings.Builder
	for i, m := range toolMsgs {
		source := names[m.ToolCallID]
		if source == "" {
			source = "tool"
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", source, unwrapResult(m.Content))
	}
	return b.String()
}

func unwrapResult(content string) string {
	var env tools.InvokeResult
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return content
	}
	if !env.Success {
		return fmt.Sprintf("(tool failed: %s)", env.Error)
	}
	return string(env.Result)
}
