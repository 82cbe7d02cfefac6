package nodes

// Graph node keys.
const (
	NodeInputConverter = "InputConverter"
	NodePlanner        = "Planner"
	NodeAgentModel     = "AgentChatModel"
	NodeToolExecutor   = "ToolExecutor"
	NodeSynthesis      = "SynthesisStrategy"
	NodeSimple         = "SimpleResponseStrategy"
	NodeConversational = "ConversationalStrategy"
)
