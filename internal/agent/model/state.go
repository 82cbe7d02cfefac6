package model

import (
	"github.com/cloudwego/eino/schema"
)

// ConversationState is the per-turn aggregate owned by the orchestrator graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
//   - The state never outlives the turn; persistence goes through the
//     ConversationRepository collaborator instead.
type ConversationState struct {
	ConversationID string
	TurnID         string

	// Messages is insertion-ordered and append-only; only the sanitizer may
	// collapse duplicated user entries.
	Messages []*schema.Message

	// IterationCount increases once per routing round. The routing engine
	// force-terminates the turn once it exceeds the configured maximum.
	IterationCount int

	// ToolForcingCount tracks how many times the engine forced continued
	// tool use; bounded by config.
	ToolForcingCount int

	NeedsSynthesis bool

	Workflow WorkflowState

	// Intent and Plan are filled by the classifier and planner nodes.
	Intent *QueryIntent
	Plan   *ExecutionPlan

	// Metadata carries caller-supplied context; merged shallowly, never
	// replaced wholesale.
	Metadata map[string]any

	// UI holds out-of-band progress entries surfaced to the client.
	UI []UIEntry

	// Trace records the nodes executed this turn, for observability.
	Trace []string

	// ToolCallIDSeq synthesizes tool_call_id values when the provider omits
	// them.
	ToolCallIDSeq int

	// Accumulated total LLM cost (USD) across model invocations for this turn.
	TotalCostUSD float64
}

// UIEntry is a deduplicated progress indicator surfaced to the client.
type UIEntry struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// WorkflowState records which categories of tool work already completed this
// turn. Flags only ever flip false -> true within a turn.
type WorkflowState struct {
	DocumentsListed      bool
	DocumentsRetrieved   map[string]bool // document name -> retrieved
	WebSearchDone        bool
	ExtractionDone       bool
	MultiDocAnalysisDone bool
}

// Merge folds another snapshot in while keeping flags monotone.
func (w *WorkflowState) Merge(in WorkflowState) {
	w.DocumentsListed = w.DocumentsListed || in.DocumentsListed
	w.WebSearchDone = w.WebSearchDone || in.WebSearchDone
	w.ExtractionDone = w.ExtractionDone || in.ExtractionDone
	w.MultiDocAnalysisDone = w.MultiDocAnalysisDone || in.MultiDocAnalysisDone
	for name := range in.DocumentsRetrieved {
		if w.DocumentsRetrieved == nil {
			w.DocumentsRetrieved = make(map[string]bool)
		}
		w.DocumentsRetrieved[name] = true
	}
}

// MarkRetrieved records a retrieved document name.
func (w *WorkflowState) MarkRetrieved(name string) {
	if w.DocumentsRetrieved == nil {
		w.DocumentsRetrieved = make(map[string]bool)
	}
	w.DocumentsRetrieved[name] = true
}

// StateDelta is a partial update produced by a node or strategy. Zero fields
// leave the prior state untouched; see Apply for the per-field merge rules.
type StateDelta struct {
	Messages         []*schema.Message
	IterationCount   int
	ToolForcingCount int
	NeedsSynthesis   *bool
	Intent           *QueryIntent
	Plan             *ExecutionPlan
	Workflow         *WorkflowState
	Metadata         map[string]any
	UI               []UIEntry
	Trace            []string
}

// Apply merges the delta into the state. Message lists concatenate, counters
// never decrease, scalar flags take the incoming value only when set, the
// metadata map is shallow-merged and UI entries are deduplicated by ID.
// No message is ever removed here; that is the sanitizer's job.
func (s *ConversationState) Apply(d StateDelta) {
	s.Messages = append(s.Messages, d.Messages...)
	if d.IterationCount > s.IterationCount {
		s.IterationCount = d.IterationCount
	}
	if d.ToolForcingCount > s.ToolForcingCount {
		s.ToolForcingCount = d.ToolForcingCount
	}
	if d.NeedsSynthesis != nil {
		s.NeedsSynthesis = *d.NeedsSynthesis
	}
	if d.Intent != nil {
		s.Intent = d.Intent
	}
	if d.Plan != nil {
		s.Plan = d.Plan
	}
	if d.Workflow != nil {
		s.Workflow.Merge(*d.Workflow)
	}
	if len(d.Metadata) > 0 {
		if s.Metadata == nil {
			s.Metadata = make(map[string]any, len(d.Metadata))
		}
		for k, v := range d.Metadata {
			s.Metadata[k] = v
		}
	}
	s.UI = appendUIDedup(s.UI, d.UI)
	s.Trace = append(s.Trace, d.Trace...)
}

func appendUIDedup(prev, in []UIEntry) []UIEntry {
	if len(in) == 0 {
		return prev
	}
	seen := make(map[string]bool, len(prev))
	for _, e := range prev {
		seen[e.ID] = true
	}
	for _, e := range in {
		if e.ID != "" && seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		prev = append(prev, e)
	}
	return prev
}

// LastMessage returns the final message or nil when empty.
func (s *ConversationState) LastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// LatestUserQuery returns the content of the most recent user message.
func (s *ConversationState) LatestUserQuery() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

// PendingToolCalls returns the tool calls requested by the last message when
// it is an assistant message, else nil.
func (s *ConversationState) PendingToolCalls() []schema.ToolCall {
	last := s.LastMessage()
	if last == nil || last.Role != schema.Assistant {
		return nil
	}
	return last.ToolCalls
}

// HasToolMessages reports whether any tool results exist in history.
func (s *ConversationState) HasToolMessages() bool {
	for _, m := range s.Messages {
		if m != nil && m.Role == schema.Tool {
			return true
		}
	}
	return false
}

// ToolMessages returns all tool-result messages in order.
func (s *ConversationState) ToolMessages() []*schema.Message {
	var out []*schema.Message
	for _, m := range s.Messages {
		if m != nil && m.Role == schema.Tool {
			out = append(out, m)
		}
	}
	return out
}
