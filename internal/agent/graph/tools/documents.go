package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/workmate-core-poc/server/internal/agent/model"
)

// ===================================
// List Documents Tool
// ===================================

type ListDocumentsInput struct {
	Kind       string `json:"kind,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type ListDocumentsOutput struct {
	Documents []model.Document `json:"documents"`
	Total     int              `json:"total"`
}

func createListDocumentsTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolListDocuments,
			Desc: "List documents available in the team workspace. Returns name, kind, owner, last-modified date and a one-line summary for each document. Use this tool when the user asks what documents or files exist.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"kind": {
					Type: "string",
					Desc: "Optional kind filter: doc, sheet, slide, form",
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of documents to return (default: 20)",
				},
			}),
		},
		func(ctx context.Context, in *ListDocumentsInput) (*ListDocumentsOutput, error) {
			max := in.MaxResults
			if max <= 0 {
				max = 20
			}
			var matched []model.Document
			for _, d := range MockDocuments {
				if in.Kind != "" && !strings.EqualFold(d.Kind, in.Kind) {
					continue
				}
				listed := d
				listed.Body = "" // listings never carry full bodies
				matched = append(matched, listed)
			}
			if len(matched) > max {
				matched = matched[:max]
			}
			return &ListDocumentsOutput{Documents: matched, Total: len(matched)}, nil
		},
	)
}

// ===================================
// Get Document Tool
// ===================================

type GetDocumentInput struct {
	Name string `json:"name"`
}

type GetDocumentOutput struct {
	Document model.Document `json:"document"`
}

func createGetDocumentTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetDocument,
			Desc: "Retrieve the full content of a workspace document by its exact name as returned by list_documents. Use this tool when the user needs the contents of a specific document.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {
					Type:     "string",
					Desc:     "Exact document name from list_documents results, e.g. 'Q3 Roadmap'.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *GetDocumentInput) (*GetDocumentOutput, error) {
			if in.Name == "" {
				return nil, fmt.Errorf("name is required")
			}
			for _, d := range MockDocuments {
				if strings.EqualFold(d.Name, strings.TrimSpace(in.Name)) {
					return &GetDocumentOutput{Document: d}, nil
				}
			}
			return nil, fmt.Errorf("document %q not found", in.Name)
		},
	)
}

var MockDocuments = []model.Document{
	{
		Name:     "Q3 Roadmap",
		Kind:     "doc",
		Owner:    "maya",
		Modified: "2026-08-12",
		Summary:  "Quarterly product roadmap with milestones and staffing",
		Body:     "Q3 priorities: launch the billing revamp, ship the mobile onboarding flow, and reduce infra spend by 15%. Milestones: billing beta (July), onboarding GA (August), cost review (September).",
	},
	{
		Name:     "Incident Postmortem 2026-07-19",
		Kind:     "doc",
		Owner:    "deniz",
		Modified: "2026-07-22",
		Summary:  "Postmortem for the July 19 API outage",
		Body:     "Root cause: connection pool exhaustion after a deploy doubled per-request DB calls. Impact: 41 minutes of elevated 5xx. Actions: pool sizing alert, deploy canary on query counts.",
	},
	{
		Name:     "Hiring Plan FY26",
		Kind:     "sheet",
		Owner:    "rowan",
		Modified: "2026-06-30",
		Summary:  "Headcount plan per team for fiscal 2026",
		Body:     "Platform +3, Product +4, Design +1, Support +2. Freeze review scheduled for October.",
	},
	{
		Name:     "Onboarding Checklist",
		Kind:     "doc",
		Owner:    "maya",
		Modified: "2026-08-02",
		Summary:  "Checklist for onboarding new engineers",
		Body:     "Day 1: accounts, laptop, repo access. Week 1: dev environment, first PR, buddy pairing. Month 1: on-call shadowing, architecture walkthrough.",
	},
	{
		Name:     "Pricing Experiment Results",
		Kind:     "slide",
		Owner:    "deniz",
		Modified: "2026-08-20",
		Summary:  "A/B results for the usage-based pricing experiment",
		Body:     "Variant B (usage-based) improved conversion 8% but lowered ARPU 3%. Recommendation: adopt variant B with a raised floor tier.",
	},
}
