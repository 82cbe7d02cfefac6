package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

func TestHeuristicPlanTaskTypes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  model.TaskType
	}{
		{
			name:  "hybrid when internal and external signals mix",
			query: "combine our roadmap with the latest market research",
			want:  model.TaskHybrid,
		},
		{
			name:  "research only",
			query: "what are the latest industry benchmarks?",
			want:  model.TaskResearchOnly,
		},
		{
			name:  "template only",
			query: "summarize our onboarding checklist",
			want:  model.TaskTemplateOnly,
		},
		{
			name:  "simple qa default",
			query: "how do I reset my password?",
			want:  model.TaskSimpleQA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicPlan(tt.query)
			require.NoError(t, got.Validate())
			assert.Equal(t, tt.want, got.TaskType)
		})
	}
}

func TestHeuristicPlanGuessesKnownDocuments(t *testing.T) {
	got := HeuristicPlan("compare our Q3 Roadmap against the Hiring Plan FY26")

	assert.Contains(t, got.RequiredInternalDocuments, "Q3 Roadmap")
	assert.Contains(t, got.RequiredInternalDocuments, "Hiring Plan FY26")
}

func TestHeuristicPlanResearchTopicsAreCapped(t *testing.T) {
	got := HeuristicPlan("research Alpha Beta, then Gamma Delta, then Epsilon Zeta, then Eta Theta trends")

	assert.Len(t, got.ExternalResearchTopics, maxResearchTopics)
}

func TestHeuristicPlanResearchTopicsFallBackToQuery(t *testing.T) {
	query := "research the latest pricing news"
	got := HeuristicPlan(query)

	require.Len(t, got.ExternalResearchTopics, 1)
	assert.Equal(t, query, got.ExternalResearchTopics[0])
}

func TestHeuristicPlanEmptyListsNotNil(t *testing.T) {
	got := HeuristicPlan("hi")

	assert.NotNil(t, got.RequiredInternalDocuments)
	assert.NotNil(t, got.ExternalResearchTopics)
	assert.Empty(t, got.ExternalResearchTopics)
	assert.NotEmpty(t, got.FinalOutputFormat)
}
