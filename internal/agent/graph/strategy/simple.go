package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/graph/workflow"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

// SimpleResponse presents tool results near-verbatim, without analytical
// framing or a model call. Document listings become a plain bullet list.
type SimpleResponse struct {
	log zerolog.Logger
}

func NewSimpleResponse(log zerolog.Logger) *SimpleResponse {
	return &SimpleResponse{log: log.With().Str("strategy", "simple_response").Logger()}
}

func (s *SimpleResponse) Name() string { return "simple_response" }

// CanHandle requires tool results present and no synthesis demand.
func (s *SimpleResponse) CanHandle(st *model.ConversationState) bool {
	return st.HasToolMessages() && !st.NeedsSynthesis
}

func (s *SimpleResponse) Execute(ctx context.Context, st *model.ConversationState) (model.StateDelta, error) {
	toolMsgs := st.ToolMessages()
	var content string
	if len(toolMsgs) == 0 {
		content = "I didn't find anything to report for that request."
	} else {
		content = formatDirect(st, toolMsgs)
	}

	no := false
	return model.StateDelta{
		Messages:       []*schema.Message{schema.AssistantMessage(content, nil)},
		NeedsSynthesis: &no,
		Trace:          []string{"simple_response"},
	}, nil
}

func formatDirect(st *model.ConversationState, toolMsgs []*schema.Message) string {
	names := workflow.CallNamesByID(st.Messages)

	var parts []string
	for _, m := range toolMsgs {
		var env tools.InvokeResult
		if err := json.Unmarshal([]byte(m.Content), &env); err != nil || !env.Success {
			continue
		}
		switch names[m.ToolCallID] {
		case tools.ToolListDocuments:
			parts = append(parts, formatDocumentList(env.Result))
		default:
			parts = append(parts, strings.TrimSpace(string(env.Result)))
		}
	}
	if len(parts) == 0 {
		return "The lookup didn't return any usable results."
	}
	return strings.Join(parts, "\n\n")
}

func formatDocumentList(raw json.RawMessage) string {
	var out tools.ListDocumentsOutput
	if err := json.Unmarshal(raw, &out); err != nil || len(out.Documents) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are the %d documents in the workspace:\n", out.Total)
	for _, d := range out.Documents {
		fmt.Fprintf(&b, "- %s (%s, %s, last modified %s): %s\n", d.Name, d.Kind, d.Owner, d.Modified, d.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}
