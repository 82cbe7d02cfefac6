package model

// IntentType is the coarse category the classifier assigns to a user query.
type IntentType string

const (
	IntentAnalysis       IntentType = "analysis"
	IntentResearch       IntentType = "research"
	IntentSimpleLookup   IntentType = "simple_lookup"
	IntentConversational IntentType = "conversational"
	IntentCreative       IntentType = "creative"
)

// Complexity is the classifier's effort estimate.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Escalate bumps the complexity one level, saturating at high.
func (c Complexity) Escalate() Complexity {
	switch c {
	case ComplexityLow:
		return ComplexityMedium
	case ComplexityMedium:
		return ComplexityHigh
	default:
		return ComplexityHigh
	}
}

// ResponseType is the classifier's suggestion for how to answer.
type ResponseType string

const (
	ResponseSynthesis      ResponseType = "synthesis"
	ResponseSimple         ResponseType = "simple_response"
	ResponseConversational ResponseType = "conversational_response"
)

// QueryIntent is the primary classifier output. SuggestedResponseType feeds,
// but does not solely determine, the final routing decision.
type QueryIntent struct {
	IntentType            IntentType
	Complexity            Complexity
	RequiresDeepAnalysis  bool
	SuggestedResponseType ResponseType
}

// ToolAdvice is the scored secondary classifier output: a 0-1 confidence and
// the tools it recommends running for the query.
type ToolAdvice struct {
	Confidence       float64
	RecommendedTools []string
}
