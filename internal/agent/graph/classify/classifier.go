package classify

import (
	"regexp"
	"strings"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

// Classifier maps the latest user utterance to an intent estimate. It is an
// interface so a statistical or model-based classifier can later replace the
// rule-based one without touching the routing engine.
type Classifier interface {
	Classify(utterance string) model.QueryIntent
}

// Length and question-mark thresholds for complexity escalation.
const (
	longQueryRunes    = 220
	multiQuestionMark = 2
)

// Ordered pattern sets. Priority: analysis > creative > research >
// simple_lookup; first match wins, no match defaults to conversational.
var (
	analysisPatterns = []string{
		"analyze", "analyse", "compare", "evaluate", "assess", "review",
		"implications", "trade-off", "tradeoff", "pros and cons", "breakdown",
		"in depth", "deep dive", "why does", "why is", "root cause",
	}
	creativePatterns = []string{
		"write a", "draft", "compose", "brainstorm", "imagine", "story",
		"poem", "slogan", "come up with", "generate a",
	}
	researchPatterns = []string{
		"research", "investigate", "find out", "look up", "latest", "recent",
		"search the web", "what's new", "state of the art", "sources",
	}
	lookupPatterns = []string{
		"list", "show me", "show all", "what is", "who is", "when is",
		"where is", "how many", "get the", "fetch", "display",
	}
)

var wordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]*`)

// RuleClassifier is the rule-based Classifier implementation.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify runs ordered case-insensitive pattern matching, escalates
// complexity for long or multi-question utterances, and derives the
// suggested response type from the fixed mapping.
func (c *RuleClassifier) Classify(utterance string) model.QueryIntent {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	intent := model.IntentConversational
	complexity := model.ComplexityLow
	switch {
	case matchAny(lower, analysisPatterns):
		intent = model.IntentAnalysis
		complexity = model.ComplexityMedium
	case matchAny(lower, creativePatterns):
		intent = model.IntentCreative
		complexity = model.ComplexityMedium
	case matchAny(lower, researchPatterns):
		intent = model.IntentResearch
		complexity = model.ComplexityMedium
	case matchAny(lower, lookupPatterns):
		intent = model.IntentSimpleLookup
		complexity = model.ComplexityLow
	}

	if len([]rune(lower)) > longQueryRunes || strings.Count(lower, "?") >= multiQuestionMark {
		complexity = complexity.Escalate()
	}

	deep := intent == model.IntentAnalysis || intent == model.IntentCreative || intent == model.IntentResearch

	return model.QueryIntent{
		IntentType:            intent,
		Complexity:            complexity,
		RequiresDeepAnalysis:  deep,
		SuggestedResponseType: suggestResponseType(deep, complexity, intent),
	}
}

// suggestResponseType encodes the classifier decision table:
//
//	deep=true  -> synthesis
//	deep=false, complexity>low -> simple_response
//	deep=false, complexity=low, simple_lookup -> simple_response
//	deep=false, complexity=low, else -> conversational_response
func suggestResponseType(deep bool, complexity model.Complexity, intent model.IntentType) model.ResponseType {
	if deep {
		return model.ResponseSynthesis
	}
	if complexity != model.ComplexityLow {
		return model.ResponseSimple
	}
	if intent == model.IntentSimpleLookup {
		return model.ResponseSimple
	}
	return model.ResponseConversational
}

func matchAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
