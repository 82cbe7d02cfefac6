package strategy

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

// stubModel returns a canned response or error for every Generate call.
type stubModel struct {
	content string
	err     error
	lastIn  []*schema.Message
}

func (s *stubModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	s.lastIn = in
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.content, nil), nil
}

func (s *stubModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

var testPersona = model.PersonaConfig{AssistantName: "Workmate", Workspace: "team workspace"}

func newTestSelector(m einomodel.BaseChatModel) *Selector {
	log := zerolog.Nop()
	return NewSelector(
		NewSynthesis(m, testPersona, log),
		NewSimpleResponse(log),
		NewConversational(m, testPersona, log),
		log,
	)
}

func toolExchange(id, name, args, result string) []*schema.Message {
	return []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}}}),
		{Role: schema.Tool, ToolCallID: id, Content: result},
	}
}

func TestSelectorPriorityOrder(t *testing.T) {
	sel := newTestSelector(&stubModel{content: "ok"})

	flagged := &model.ConversationState{NeedsSynthesis: true}
	assert.Equal(t, "synthesis", sel.Select(flagged).Name())

	withTools := &model.ConversationState{Messages: toolExchange("c1", tools.ToolWebSearch, "{}", `{"success":true}`)}
	assert.Equal(t, "synthesis", sel.Select(withTools).Name(), "tool results default to synthesis first")

	bare := &model.ConversationState{Messages: []*schema.Message{schema.UserMessage("hi")}}
	assert.Equal(t, "conversational_response", sel.Select(bare).Name())
}

func TestSelectorByDecision(t *testing.T) {
	sel := newTestSelector(&stubModel{content: "ok"})
	st := &model.ConversationState{}

	assert.Equal(t, "synthesis", sel.ByDecision(st, model.RouteSynthesis).Name())
	assert.Equal(t, "simple_response", sel.ByDecision(st, model.RouteSimple).Name())
	assert.Equal(t, "conversational_response", sel.ByDecision(st, model.RouteConversational).Name())
	assert.Equal(t, "conversational_response", sel.ByDecision(st, model.RouteEnd).Name(), "unmapped decision falls through Select")
}

func TestSynthesisIntegratesToolResults(t *testing.T) {
	m := &stubModel{content: "Integrated answer."}
	s := NewSynthesis(m, testPersona, zerolog.Nop())

	msgs := []*schema.Message{schema.UserMessage("compare the roadmap with pricing results")}
	msgs = append(msgs, toolExchange("c1", tools.ToolGetDocument,
		`{"name":"Q3 Roadmap"}`, `{"success":true,"result":{"document":{"name":"Q3 Roadmap"}},"duration_ms":5}`)...)
	st := &model.ConversationState{NeedsSynthesis: true, Messages: msgs}

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err)
	require.Len(t, delta.Messages, 1)
	assert.Equal(t, "Integrated answer.", delta.Messages[0].Content)
	require.NotNil(t, delta.NeedsSynthesis)
	assert.False(t, *delta.NeedsSynthesis)

	// the model saw the material attributed to its source tool
	require.Len(t, m.lastIn, 2)
	assert.Contains(t, m.lastIn[1].Content, "[get_document]")
	assert.Contains(t, m.lastIn[1].Content, "Q3 Roadmap")
}

func TestSynthesisModelFailureYieldsApology(t *testing.T) {
	s := NewSynthesis(&stubModel{err: errors.New("overloaded")}, testPersona, zerolog.Nop())
	st := &model.ConversationState{
		NeedsSynthesis: true,
		Messages:       []*schema.Message{schema.UserMessage("summarize everything")},
	}

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err, "model failure must not fail the turn")
	require.Len(t, delta.Messages, 1)
	assert.Equal(t, ApologyMessage, delta.Messages[0].Content)
}

func TestSynthesisToleratesZeroToolResults(t *testing.T) {
	m := &stubModel{content: "Answer from knowledge."}
	s := NewSynthesis(m, testPersona, zerolog.Nop())
	st := &model.ConversationState{
		NeedsSynthesis: true,
		Messages:       []*schema.Message{schema.UserMessage("explain our approach")},
	}

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "Answer from knowledge.", delta.Messages[0].Content)
	assert.Equal(t, "explain our approach", m.lastIn[1].Content, "no material section when no tools ran")
}

func TestSynthesisMarksMultiDocAnalysis(t *testing.T) {
	s := NewSynthesis(&stubModel{content: "done"}, testPersona, zerolog.Nop())
	st := &model.ConversationState{NeedsSynthesis: true,
		Messages: []*schema.Message{schema.UserMessage("compare docs")}}
	st.Workflow.MarkRetrieved("q3 roadmap")
	st.Workflow.MarkRetrieved("pricing experiment results")

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err)
	require.NotNil(t, delta.Workflow)
	assert.True(t, delta.Workflow.MultiDocAnalysisDone)
}

func TestFormatToolResultsUnwrapsEnvelope(t *testing.T) {
	msgs := toolExchange("c1", tools.ToolWebSearch, `{"query":"x"}`,
		`{"success":false,"error":"backend unavailable","duration_ms":10}`)
	st := &model.ConversationState{Messages: msgs}

	got := FormatToolResults(st)

	assert.Contains(t, got, "[web_search]")
	assert.Contains(t, got, "(tool failed: backend unavailable)")
}

func TestSimpleResponseFormatsDocumentList(t *testing.T) {
	s := NewSimpleResponse(zerolog.Nop())
	result := `{"success":true,"result":{"documents":[` +
		`{"name":"Q3 Roadmap","kind":"doc","owner":"maya","modified":"2026-08-01","summary":"quarterly goals"}],` +
		`"total":1},"duration_ms":2}`
	st := &model.ConversationState{Messages: toolExchange("c1", tools.ToolListDocuments, "{}", result)}

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err)
	content := delta.Messages[0].Content
	assert.Contains(t, content, "1 documents in the workspace")
	assert.Contains(t, content, "- Q3 Roadmap (doc, maya, last modified 2026-08-01): quarterly goals")
}

func TestSimpleResponseSkipsFailedResults(t *testing.T) {
	s := NewSimpleResponse(zerolog.Nop())
	st := &model.ConversationState{Messages: toolExchange("c1", tools.ToolWebSearch, "{}",
		`{"success":false,"error":"nope","duration_ms":1}`)}

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "The lookup didn't return any usable results.", delta.Messages[0].Content)
}

func TestSimpleResponseWithoutToolMessages(t *testing.T) {
	s := NewSimpleResponse(zerolog.Nop())
	st := &model.ConversationState{Messages: []*schema.Message{schema.UserMessage("hello")}}

	delta, err := s.Execute(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "I didn't find anything to report for that request.", delta.Messages[0].Content)
}

func TestConversationalReplaysRealExchanges(t *testing.T) {
	m := &stubModel{content: "Happy to help!"}
	c := NewConversational(m, testPersona, zerolog.Nop())
	st := &model.ConversationState{Messages: []*schema.Message{
		schema.UserMessage("hi"),
		schema.AssistantMessage("Hello! How can I help?", nil),
		schema.AssistantMessage("thinking...", nil),
		schema.UserMessage("thanks"),
	}}

	delta, err := c.Execute(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", delta.Messages[0].Content)

	require.Len(t, m.lastIn, 4, "system + two user turns + one real assistant turn")
	assert.Equal(t, schema.System, m.lastIn[0].Role)
	assert.Equal(t, "Hello! How can I help?", m.lastIn[2].Content)
}

func TestConversationalModelFailureYieldsApology(t *testing.T) {
	c := NewConversational(&stubModel{err: errors.New("down")}, testPersona, zerolog.Nop())
	st := &model.ConversationState{Messages: []*schema.Message{schema.UserMessage("hello")}}

	delta, err := c.Execute(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, delta.Messages[0].Content)
}
