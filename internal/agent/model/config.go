package model

// ================ Config ================

// OrchestratorConfig bounds the tool-calling loop. The thresholds are tuning
// knobs, not algorithmic requirements.
type OrchestratorConfig struct {
	// MaxIterations is the routing-round circuit breaker. Once the iteration
	// count exceeds it, the turn is forced into synthesis.
	MaxIterations int `envconfig:"ORCH_MAX_ITERATIONS" default:"5"`
	// MaxToolForcing caps how many times the engine may force continued tool
	// use for workflow completeness.
	MaxToolForcing int `envconfig:"ORCH_MAX_TOOL_FORCING" default:"3"`
	// RedundancyThreshold is the number of prior equivalent executions after
	// which a repeated tool call is treated as redundant.
	RedundancyThreshold int `envconfig:"ORCH_REDUNDANCY_THRESHOLD" default:"2"`
	// ConvergenceMinRound is the earliest round at which aggressive
	// convergence may force synthesis.
	ConvergenceMinRound int `envconfig:"ORCH_CONVERGENCE_MIN_ROUND" default:"2"`
	// SynthesisConfidence is the advisor confidence at which post-tool
	// routing prefers synthesis even when the intent table says simple.
	SynthesisConfidence float64 `envconfig:"ORCH_SYNTHESIS_CONFIDENCE" default:"0.6"`
	// ToolConcurrency caps how many tool calls of one round run in parallel.
	ToolConcurrency int `envconfig:"ORCH_TOOL_CONCURRENCY" default:"4"`
}

// ConversationConfig controls history seeding and retention.
type ConversationConfig struct {
	TTL     string `envconfig:"CONVERSATION_TTL" default:"15m"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"20"`
	}
}

// CacheConfig controls the response cache keyed by message fingerprints.
type CacheConfig struct {
	Enabled bool   `envconfig:"RESPONSE_CACHE_ENABLED" default:"true"`
	TTL     string `envconfig:"RESPONSE_CACHE_TTL" default:"5m"`
}

// AgentModelConfig configures the tool-calling agent model.
type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.3"`
}

// PlannerModelConfig configures the strategic planning model.
type PlannerModelConfig struct {
	Model       string  `envconfig:"PLANNER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"PLANNER_MAX_TOKENS" default:"1500"`
	Temperature float32 `envconfig:"PLANNER_TEMPERATURE" default:"0.1"`
	Enabled     bool    `envconfig:"PLANNER_ENABLED" default:"true"`
}

// PersonaConfig parameterizes the assistant persona used by the response
// strategies.
type PersonaConfig struct {
	AssistantName string `envconfig:"PERSONA_NAME" default:"Workmate"`
	Workspace     string `envconfig:"PERSONA_WORKSPACE" default:"team workspace"`
}

// SanitizerConfig bounds metadata and cached tool-output growth.
type SanitizerConfig struct {
	MetadataMaxBytes   int `envconfig:"SANITIZER_METADATA_MAX_BYTES" default:"16384"`
	ToolResultCacheMax int `envconfig:"SANITIZER_TOOL_CACHE_MAX" default:"20"`
}
