package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
)

func TestAdviseRecommendsToolsByHints(t *testing.T) {
	a := NewAdvisor()

	tests := []struct {
		name  string
		query string
		tools []string
	}{
		{
			name:  "listing hint",
			query: "list what documents are available",
			tools: []string{tools.ToolListDocuments, tools.ToolGetDocument},
		},
		{
			name:  "document retrieval",
			query: "pull up the incident report please",
			tools: []string{tools.ToolGetDocument},
		},
		{
			name:  "web research",
			query: "search online for the latest pricing news",
			tools: []string{tools.ToolWebSearch},
		},
		{
			name:  "calendar",
			query: "when are we meeting next week?",
			tools: []string{tools.ToolCalendarEvents},
		},
		{
			name:  "no hints",
			query: "thanks a lot!",
			tools: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Advise(tt.query)
			assert.Equal(t, tt.tools, got.RecommendedTools)
		})
	}
}

func TestAdviseConfidenceScoring(t *testing.T) {
	a := NewAdvisor()

	minimal := a.Advise("hi")
	assert.InDelta(t, 0.2, minimal.Confidence, 0.001, "base signal only")

	complex := a.Advise("Compare the Q3 Roadmap against the Hiring Plan? What should we change?")
	assert.Greater(t, complex.Confidence, 0.5)
	assert.LessOrEqual(t, complex.Confidence, 1.0)
}

func TestCountCapitalizedPhrasesIgnoresSentenceStart(t *testing.T) {
	assert.Equal(t, 0, countCapitalizedPhrases("Hello there everyone"))
	assert.Equal(t, 2, countCapitalizedPhrases("compare Roadmap with Pricing results"))
}
