package plan

import (
	"regexp"
	"strings"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

const maxResearchTopics = 3

var templateIndicators = []string{
	"our", "internal", "workspace", "document", "doc", "roadmap", "plan",
	"checklist", "postmortem", "report", "using the", "based on",
}

var researchIndicators = []string{
	"research", "industry", "market", "latest", "trend", "benchmark",
	"competitor", "external", "web", "online", "news", "state of the art",
}

var capPhraseRe = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9'-]*(?:\s+[A-Z][a-zA-Z0-9'-]*)*\b`)

// HeuristicPlan builds a deterministic plan from keyword and entity signals.
// It is the recovery path for every planner failure, so it must always return
// a valid plan.
func HeuristicPlan(query string) *model.ExecutionPlan {
	lower := strings.ToLower(query)

	hasTemplate := containsAny(lower, templateIndicators)
	hasResearch := containsAny(lower, researchIndicators)

	var taskType model.TaskType
	switch {
	case hasTemplate && hasResearch:
		taskType = model.TaskHybrid
	case hasResearch:
		taskType = model.TaskResearchOnly
	case hasTemplate:
		taskType = model.TaskTemplateOnly
	default:
		taskType = model.TaskSimpleQA
	}

	return &model.ExecutionPlan{
		TaskType:                  taskType,
		RequiredInternalDocuments: guessDocuments(lower),
		ExternalResearchTopics:    researchTopics(query, hasResearch),
		FinalOutputFormat:         outputFormatFor(taskType),
	}
}

// researchTopics picks up to three topics: capitalized phrases first, then
// the raw query as a single catch-all topic.
func researchTopics(query string, hasResearch bool) []string {
	if !hasResearch {
		return []string{}
	}
	var topics []string
	seen := make(map[string]bool)
	for _, phrase := range capPhraseRe.FindAllString(query, -1) {
		p := strings.TrimSpace(phrase)
		if len(p) < 3 || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		topics = append(topics, p)
		if len(topics) == maxResearchTopics {
			return topics
		}
	}
	if len(topics) == 0 {
		topics = append(topics, strings.TrimSpace(query))
	}
	return topics
}

// guessDocuments matches query words against the known workspace document
// names.
func guessDocuments(lower string) []string {
	var out []string
	for _, d := range tools.MockDocuments {
		nameLower := strings.ToLower(d.Name)
		if strings.Contains(lower, nameLower) {
			out = append(out, d.Name)
			continue
		}
		// token-level match: any distinctive word of the document name
		for _, word := range strings.Fields(nameLower) {
			if len(word) >= 4 && strings.Contains(lower, word) {
				out = append(out, d.Name)
				break
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func outputFormatFor(t model.TaskType) string {
	switch t {
	case model.TaskHybrid:
		return "integrated brief combining workspace documents and external research"
	case model.TaskResearchOnly:
		return "research summary with cited sources"
	case model.TaskTemplateOnly:
		return "answer grounded in the referenced workspace documents"
	default:
		return "direct conversational answer"
	}
}

func containsAny(lower string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
