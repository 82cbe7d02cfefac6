package classify

import (
	"strings"

	"github.com/workmate-core-poc/server/internal/agent/model"
	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
)

// Advisor is the scored companion to the rule classifier: it estimates query
// complexity numerically and recommends tools to run. It agrees in spirit
// with RuleClassifier but feeds the workflow checker rather than the
// response-type table.
type Advisor struct{}

func NewAdvisor() *Advisor {
	return &Advisor{}
}

var complexKeywords = []string{
	"compare", "analyze", "analyse", "synthesize", "comprehensive",
	"across", "multiple", "combine", "report", "summarize all",
}

var (
	documentHints = []string{"document", "doc", "file", "report", "notes", "spec", "memo"}
	listingHints  = []string{"list", "show all", "what documents", "which files", "available"}
	searchHints   = []string{"search", "web", "online", "latest", "news", "research", "look up"}
	calendarHints = []string{"calendar", "meeting", "schedule", "event", "appointment", "when are we"}
)

// Advise scores the utterance into a 0-1 confidence and returns the tools it
// recommends, most relevant first.
func (a *Advisor) Advise(utterance string) model.ToolAdvice {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	score := 0.0
	if len([]rune(lower)) > longQueryRunes {
		score += 0.25
	}
	if strings.Count(lower, "?") >= multiQuestionMark {
		score += 0.2
	}
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
			break
		}
	}
	if countCapitalizedPhrases(utterance) >= 2 {
		score += 0.2
	}
	// base score so an empty heuristic still registers a minimal signal
	score += 0.2
	if score > 1 {
		score = 1
	}

	var recs []string
	if matchAny(lower, listingHints) {
		recs = append(recs, tools.ToolListDocuments)
	}
	if matchAny(lower, documentHints) {
		recs = appendUnique(recs, tools.ToolGetDocument)
	}
	if matchAny(lower, searchHints) {
		recs = appendUnique(recs, tools.ToolWebSearch)
	}
	if matchAny(lower, calendarHints) {
		recs = appendUnique(recs, tools.ToolCalendarEvents)
	}

	return model.ToolAdvice{Confidence: score, RecommendedTools: recs}
}

// countCapitalizedPhrases counts distinct mid-sentence capitalized words, a
// cheap proxy for named entities.
func countCapitalizedPhrases(s string) int {
	words := wordRe.FindAllString(s, -1)
	seen := make(map[string]bool)
	for i, w := range words {
		if i == 0 {
			continue // sentence-initial capitalization is not an entity signal
		}
		if w[0] >= 'A' && w[0] <= 'Z' {
			seen[strings.ToLower(w)] = true
		}
	}
	return len(seen)
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
