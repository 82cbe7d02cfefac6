package model

import "fmt"

// TaskType labels what kind of work an execution plan calls for.
type TaskType string

const (
	TaskSimpleQA     TaskType = "simple_qa"
	TaskResearchOnly TaskType = "research_only"
	TaskTemplateOnly TaskType = "template_only"
	TaskHybrid       TaskType = "hybrid"
)

// ExecutionPlan is the planner's structured output. The JSON field names are
// the wire contract validated against the planner schema.
type ExecutionPlan struct {
	TaskType                  TaskType `json:"task_type"`
	RequiredInternalDocuments []string `json:"required_internal_documents"`
	ExternalResearchTopics    []string `json:"external_research_topics"`
	FinalOutputFormat         string   `json:"final_output_format"`
}

// Validate checks the enum constraint that the JSON schema cannot express on
// the decoded Go value.
func (p *ExecutionPlan) Validate() error {
	switch p.TaskType {
	case TaskSimpleQA, TaskResearchOnly, TaskTemplateOnly, TaskHybrid:
		return nil
	default:
		return fmt.Errorf("invalid task_type %q", p.TaskType)
	}
}
