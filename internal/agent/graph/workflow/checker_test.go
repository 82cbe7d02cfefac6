package workflow

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func toolResult(id, content string) *schema.Message {
	return &schema.Message{Role: schema.Tool, ToolCallID: id, Content: content}
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := Fingerprint("web_search", `{"query":"pricing","max_results":5}`)
	b := Fingerprint("web_search", `{"max_results":5,"query":"pricing"}`)
	assert.Equal(t, a, b)

	c := Fingerprint("web_search", `{"query":"roadmap","max_results":5}`)
	assert.NotEqual(t, a, c)
}

func TestFingerprintNonJSONArgsFallBackToRaw(t *testing.T) {
	a := Fingerprint("web_search", "  not json  ")
	assert.Equal(t, "web_search|not json", a)
}

func TestExecutedCallsRequireMatchingResult(t *testing.T) {
	msgs := []*schema.Message{
		schema.UserMessage("q"),
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("c1", tools.ToolListDocuments, "{}"),
			toolCall("c2", tools.ToolWebSearch, `{"query":"x"}`),
		}),
		toolResult("c1", `{"success":true}`),
	}

	calls := ExecutedCalls(msgs)
	require.Len(t, calls, 1, "c2 has no result yet")
	assert.Equal(t, tools.ToolListDocuments, calls[0].Name)
}

func TestIsRedundant(t *testing.T) {
	c := NewChecker(2, zerolog.Nop())

	st := &model.ConversationState{Messages: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c1", tools.ToolWebSearch, `{"query":"pricing"}`)}),
		toolResult("c1", "{}"),
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c2", tools.ToolWebSearch, `{"query":"pricing"}`)}),
		toolResult("c2", "{}"),
	}}

	same := []schema.ToolCall{toolCall("c3", tools.ToolWebSearch, `{"query":"pricing"}`)}
	assert.True(t, c.IsRedundant(st, same), "executed twice already")

	fresh := []schema.ToolCall{toolCall("c3", tools.ToolWebSearch, `{"query":"roadmap"}`)}
	assert.False(t, c.IsRedundant(st, fresh), "different arguments are not redundant")

	mixed := []schema.ToolCall{
		toolCall("c3", tools.ToolWebSearch, `{"query":"pricing"}`),
		toolCall("c4", tools.ToolListDocuments, "{}"),
	}
	assert.False(t, c.IsRedundant(st, mixed), "one novel call rescues the round")

	assert.False(t, c.IsRedundant(st, nil))
}

func TestIsRedundantBelowThreshold(t *testing.T) {
	c := NewChecker(2, zerolog.Nop())
	st := &model.ConversationState{Messages: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c1", tools.ToolWebSearch, `{"query":"pricing"}`)}),
		toolResult("c1", "{}"),
	}}

	pending := []schema.ToolCall{toolCall("c2", tools.ToolWebSearch, `{"query":"pricing"}`)}
	assert.False(t, c.IsRedundant(st, pending), "one prior execution is below the threshold")
}

func TestObserveToolResultFlipsFlags(t *testing.T) {
	st := &model.ConversationState{}

	ObserveToolResult(st, tools.ToolListDocuments, "{}")
	assert.True(t, st.Workflow.DocumentsListed)

	ObserveToolResult(st, tools.ToolGetDocument, `{"name":" Q3 Roadmap "}`)
	assert.True(t, st.Workflow.ExtractionDone)
	assert.True(t, st.Workflow.DocumentsRetrieved["q3 roadmap"])

	ObserveToolResult(st, tools.ToolWebSearch, `{"query":"x"}`)
	assert.True(t, st.Workflow.WebSearchDone)

	assert.Equal(t, 1, DistinctDocumentsTouched(st))
	assert.True(t, HasBroadAndInternalResults(st))
}

func TestCallNamesByID(t *testing.T) {
	msgs := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c1", tools.ToolGetDocument, "{}")}),
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c2", tools.ToolWebSearch, "{}")}),
	}
	names := CallNamesByID(msgs)
	assert.Equal(t, tools.ToolGetDocument, names["c1"])
	assert.Equal(t, tools.ToolWebSearch, names["c2"])
}

func TestUnexecutedHighPriority(t *testing.T) {
	c := NewChecker(2, zerolog.Nop())
	st := &model.ConversationState{}
	st.Workflow.DocumentsListed = true

	advice := model.ToolAdvice{RecommendedTools: []string{
		tools.ToolListDocuments,
		tools.ToolGetDocument,
		tools.ToolWebSearch,
	}}

	missing := c.UnexecutedHighPriority(st, advice)
	assert.Equal(t, []string{tools.ToolGetDocument, tools.ToolWebSearch}, missing)
	assert.False(t, c.ReadyForSynthesis(st, advice))

	st.Workflow.MarkRetrieved("q3 roadmap")
	st.Workflow.WebSearchDone = true
	assert.True(t, c.ReadyForSynthesis(st, advice))
}
