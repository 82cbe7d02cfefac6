package workflow

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

// ExecutedCall is one completed tool invocation reconstructed from history.
type ExecutedCall struct {
	Name string
	Args string
}

// Checker tracks which categories of tool work are already done and detects
// repeated or no-progress tool calls. It derives everything from the message
// history so it has no state of its own beyond configuration.
type Checker struct {
	redundancyThreshold int
	log                 zerolog.Logger
}

func NewChecker(redundancyThreshold int, log zerolog.Logger) *Checker {
	if redundancyThreshold <= 0 {
		redundancyThreshold = 2
	}
	return &Checker{
		redundancyThreshold: redundancyThreshold,
		log:                 log.With().Str("component", "workflow").Logger(),
	}
}

// CallNamesByID maps tool-call ids to the tool names requested by assistant
// messages. Tool messages carry only the originating id, so attribution goes
// through this map.
func CallNamesByID(msgs []*schema.Message) map[string]string {
	names := make(map[string]string)
	for _, m := range msgs {
		if m == nil || m.Role != schema.Assistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			if tc.ID != "" {
				names[tc.ID] = tc.Function.Name
			}
		}
	}
	return names
}

// ExecutedCalls reconstructs completed invocations: a call counts as executed
// once a Tool message with its id exists.
func ExecutedCalls(msgs []*schema.Message) []ExecutedCall {
	args := make(map[string]ExecutedCall)
	for _, m := range msgs {
		if m == nil || m.Role != schema.Assistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			if tc.ID != "" {
				args[tc.ID] = ExecutedCall{Name: tc.Function.Name, Args: tc.Function.Arguments}
			}
		}
	}
	var out []ExecutedCall
	for _, m := range msgs {
		if m == nil || m.Role != schema.Tool {
			continue
		}
		if call, ok := args[m.ToolCallID]; ok {
			out = append(out, call)
		}
	}
	return out
}

// Fingerprint canonicalizes a call into name plus argument JSON with sorted
// keys, so argument ordering differences do not defeat redundancy detection.
func Fingerprint(name, argsJSON string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &m); err == nil {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			v, _ := json.Marshal(m[k])
			b.WriteString(k)
			b.WriteByte('=')
			b.Write(v)
			b.WriteByte(';')
		}
		return name + "|" + b.String()
	}
	return name + "|" + strings.TrimSpace(argsJSON)
}

// IsRedundant reports whether the pending calls substantially duplicate
// already-executed ones: every pending call must have been executed at least
// the threshold number of times.
func (c *Checker) IsRedundant(st *model.ConversationState, pending []schema.ToolCall) bool {
	if len(pending) == 0 {
		return false
	}
	counts := make(map[string]int)
	for _, call := range ExecutedCalls(st.Messages) {
		counts[Fingerprint(call.Name, call.Args)]++
	}
	for _, tc := range pending {
		if counts[Fingerprint(tc.Function.Name, tc.Function.Arguments)] < c.redundancyThreshold {
			return false
		}
	}
	c.log.Debug().Int("pending", len(pending)).Msg("redundant tool round detected")
	return true
}

// ObserveToolResult flips the workflow flags for one completed call. Flags
// are monotone; nothing here ever resets one.
func ObserveToolResult(st *model.ConversationState, callName, callArgs string) {
	switch callName {
	case tools.ToolListDocuments:
		st.Workflow.DocumentsListed = true
	case tools.ToolGetDocument:
		var in struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(callArgs), &in); err == nil && in.Name != "" {
			st.Workflow.MarkRetrieved(strings.ToLower(strings.TrimSpace(in.Name)))
		}
		st.Workflow.ExtractionDone = true
	case tools.ToolWebSearch:
		st.Workflow.WebSearchDone = true
	}
}

// DistinctDocumentsTouched counts the documents retrieved so far this turn.
func DistinctDocumentsTouched(st *model.ConversationState) int {
	return len(st.Workflow.DocumentsRetrieved)
}

// HasBroadAndInternalResults reports whether both a broad external search
// result and an internal listing result are present, the oscillation signal
// behind aggressive convergence.
func HasBroadAndInternalResults(st *model.ConversationState) bool {
	return st.Workflow.WebSearchDone && st.Workflow.DocumentsListed
}

// UnexecutedHighPriority returns the advised tools whose work category is
// still incomplete, in advice order.
func (c *Checker) UnexecutedHighPriority(st *model.ConversationState, advice model.ToolAdvice) []string {
	executed := make(map[string]bool)
	for _, call := range ExecutedCalls(st.Messages) {
		executed[call.Name] = true
	}
	var out []string
	for _, name := range advice.RecommendedTools {
		if c.categoryDone(st, name, executed) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// ReadyForSynthesis reports whether the advised tool work has all completed.
func (c *Checker) ReadyForSynthesis(st *model.ConversationState, advice model.ToolAdvice) bool {
	return len(c.UnexecutedHighPriority(st, advice)) == 0
}

func (c *Checker) categoryDone(st *model.ConversationState, toolName string, executed map[string]bool) bool {
	switch toolName {
	case tools.ToolListDocuments:
		return st.Workflow.DocumentsListed
	case tools.ToolGetDocument:
		return len(st.Workflow.DocumentsRetrieved) > 0
	case tools.ToolWebSearch:
		return st.Workflow.WebSearchDone
	default:
		return executed[toolName]
	}
}
