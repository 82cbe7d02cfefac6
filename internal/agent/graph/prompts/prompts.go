package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/workmate-core-poc/server/internal/agent/graph/tools"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

//go:embed template/agent_prompt.txt
var agentSystemPrompt string

//go:embed template/synthesis_prompt.txt
var synthesisSystemPrompt string

//go:embed template/conversational_prompt.txt
var conversationalSystemPrompt string

// SynthesisShape selects the instruction template for the synthesis strategy.
type SynthesisShape string

const (
	ShapeAnalytical     SynthesisShape = "analytical"
	ShapeResearchReport SynthesisShape = "research_report"
	ShapeRecommendation SynthesisShape = "recommendation"
	ShapeGeneral        SynthesisShape = "general"
)

var shapeInstructions = map[SynthesisShape]string{
	ShapeAnalytical:     "Produce an analytical answer: examine the gathered material, compare the relevant facts, call out trade-offs and explain the reasoning behind your conclusions.",
	ShapeResearchReport: "Produce a short research report: organize the gathered material by topic, cite which source each finding came from, and close with the key takeaways.",
	ShapeRecommendation: "Produce a recommendation: weigh the options present in the gathered material, state a clear recommended course of action and justify it.",
	ShapeGeneral:        "Produce a clear, complete answer grounded in the gathered material.",
}

// ShapeForQuery picks the synthesis shape from the query wording.
func ShapeForQuery(query string) SynthesisShape {
	lower := strings.ToLower(query)
	switch {
	case containsAny(lower, []string{"recommend", "should i", "should we", "which one", "best option"}):
		return ShapeRecommendation
	case containsAny(lower, []string{"research", "report", "overview", "landscape", "survey"}):
		return ShapeResearchReport
	case containsAny(lower, []string{"analyze", "analyse", "compare", "evaluate", "why", "assess"}):
		return ShapeAnalytical
	default:
		return ShapeGeneral
	}
}

// RenderAgentSystem renders the tool-calling agent's system prompt via the
// Eino prompt component so prompt callbacks fire.
func RenderAgentSystem(ctx context.Context, persona model.PersonaConfig, plan *model.ExecutionPlan) (string, error) {
	vars := map[string]any{
		"AssistantName": persona.AssistantName,
		"Workspace":     persona.Workspace,
		"ListTool":      tools.ToolListDocuments,
		"GetTool":       tools.ToolGetDocument,
		"SearchTool":    tools.ToolWebSearch,
		"CalendarTool":  tools.ToolCalendarEvents,
		"PlanSummary":   summarizePlan(plan),
	}
	return render(ctx, agentSystemPrompt, vars)
}

// RenderSynthesisSystem renders the synthesis instruction for the given query
// shape.
func RenderSynthesisSystem(ctx context.Context, persona model.PersonaConfig, shape SynthesisShape) (string, error) {
	instruction, ok := shapeInstructions[shape]
	if !ok {
		instruction = shapeInstructions[ShapeGeneral]
	}
	vars := map[string]any{
		"AssistantName":    persona.AssistantName,
		"Workspace":        persona.Workspace,
		"ShapeInstruction": instruction,
	}
	return render(ctx, synthesisSystemPrompt, vars)
}

// RenderConversationalSystem renders the persona prompt used when no tool
// work happened.
func RenderConversationalSystem(ctx context.Context, persona model.PersonaConfig) (string, error) {
	vars := map[string]any{
		"AssistantName": persona.AssistantName,
		"Workspace":     persona.Workspace,
	}
	return render(ctx, conversationalSystemPrompt, vars)
}

func render(ctx context.Context, tplText string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(tplText),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt render: empty result")
	}
	return msgs[0].Content, nil
}

func summarizePlan(p *model.ExecutionPlan) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- task type: %s\n", p.TaskType)
	if len(p.RequiredInternalDocuments) > 0 {
		fmt.Fprintf(&b, "- internal documents: %s\n", strings.Join(p.RequiredInternalDocuments, ", "))
	}
	if len(p.ExternalResearchTopics) > 0 {
		fmt.Fprintf(&b, "- research topics: %s\n", strings.Join(p.ExternalResearchTopics, ", "))
	}
	if p.FinalOutputFormat != "" {
		fmt.Fprintf(&b, "- expected output: %s", p.FinalOutputFormat)
	}
	return strings.TrimRight(b.String(), "\n")
}

func containsAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
