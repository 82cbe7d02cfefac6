package nodes

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

func TestAppendNewMessagesSkipsAlreadyPresent(t *testing.T) {
	seeded := schema.UserMessage("hi")
	st := &model.ConversationState{Messages: []*schema.Message{seeded}}

	fresh := schema.AssistantMessage("hello", nil)
	appendNewMessages(st, []*schema.Message{seeded, fresh, nil})

	require.Len(t, st.Messages, 2, "re-entrant edge hands the same pointer back")
	assert.Same(t, fresh, st.Messages[1])

	appendNewMessages(st, []*schema.Message{seeded, fresh})
	assert.Len(t, st.Messages, 2)
}

func TestLatestUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.UserMessage("first"),
		schema.AssistantMessage("answer", nil),
		schema.UserMessage("second"),
		{Role: schema.Tool, ToolCallID: "c1", Content: "{}"},
	}
	assert.Equal(t, "second", latestUserContent(msgs))
	assert.Equal(t, "", latestUserContent(nil))
}

func TestRecordUsageCostAccumulates(t *testing.T) {
	st := &model.ConversationState{ConversationID: "conv-1"}
	out := &schema.Message{
		Role: schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000},
		},
	}

	recordUsageCost(out, "gemini-2.5-flash", st, NodeAgentModel)

	assert.InDelta(t, 2.80, st.TotalCostUSD, 0.001)
	require.Contains(t, out.Extra, "usage_cost")

	recordUsageCost(out, "gemini-2.5-flash", st, NodeAgentModel)
	assert.InDelta(t, 5.60, st.TotalCostUSD, 0.001)
}

func TestRecordUsageCostWithoutUsageIsNoop(t *testing.T) {
	st := &model.ConversationState{}

	recordUsageCost(nil, "gemini-2.5-flash", st, NodeAgentModel)
	recordUsageCost(&schema.Message{Role: schema.Assistant}, "gemini-2.5-flash", st, NodeAgentModel)

	assert.Zero(t, st.TotalCostUSD)
}
