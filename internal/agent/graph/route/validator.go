package route

import (
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

// SynthesisValidator may override the needs-synthesis verdict with a
// confidence score. Overrides below 0.5 confidence are ignored by the engine.
type SynthesisValidator interface {
	// Override returns (force, value, confidence). When force is false the
	// other return values are meaningless.
	Override(st *model.ConversationState) (bool, bool, float64)
}

// HeuristicValidator inspects the accumulated tool results: all-failed rounds
// drop to a simple response, while substantial multi-source material forces a
// synthesis.
type HeuristicValidator struct{}

func NewHeuristicValidator() *HeuristicValidator {
	return &HeuristicValidator{}
}

func (v *HeuristicValidator) Override(st *model.ConversationState) (bool, bool, float64) {
	toolMsgs := st.ToolMessages()
	if len(toolMsgs) == 0 {
		return false, false, 0
	}

	failed := 0
	totalLen := 0
	for _, m := range toolMsgs {
		if isErrorResult(m) {
			failed++
			continue
		}
		totalLen += len(m.Content)
	}

	if failed == len(toolMsgs) {
		// nothing usable to integrate
		return true, false, 0.8
	}
	if len(toolMsgs)-failed >= 2 && totalLen > 600 {
		return true, true, 0.7
	}
	return false, false, 0
}

func isErrorResult(m *schema.Message) bool {
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(m.Content), &env); err != nil {
		return false
	}
	return !env.Success && strings.TrimSpace(env.Error) != ""
}
