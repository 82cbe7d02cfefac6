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

type WebSearchInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type WebSearchOutput struct {
	Query string            `json:"query"`
	Hits  []model.SearchHit `json:"hits"`
	Total int               `json:"total"`
}

func createWebSearchTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolWebSearch,
			Desc: "Search the public web for up-to-date external information. Returns titles, URLs and snippets. Use this tool for questions about recent events, industry trends, or anything not covered by workspace documents.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search keywords, e.g. 'usage-based pricing SaaS benchmarks 2026'.",
					Required: true,
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of hits to return (default: 5, max: 10)",
				},
			}),
		},
		func(ctx context.Context, in *WebSearchInput) (*WebSearchOutput, error) {
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			max := in.MaxResults
			if max <= 0 {
				max = 5
			}
			if max > 10 {
				max = 10
			}
			hits := mockHitsFor(in.Query)
			if len(hits) > max {
				hits = hits[:max]
			}
			return &WebSearchOutput{Query: in.Query, Hits: hits, Total: len(hits)}, nil
		},
	)
}

// mockHitsFor fabricates deterministic hits so the loop behaves like a real
// backend without network access.
func mockHitsFor(query string) []model.SearchHit {
	q := strings.TrimSpace(query)
	return []model.SearchHit{
		{
			Title:   fmt.Sprintf("Overview: %s", q),
			URL:     "https://example.com/overview",
			Snippet: fmt.Sprintf("A broad overview of %s with recent developments and key players.", q),
		},
		{
			Title:   fmt.Sprintf("%s — 2026 industry report", q),
			URL:     "https://example.com/report-2026",
			Snippet: fmt.Sprintf("Benchmarks and survey data covering %s across mid-market companies.", q),
		},
		{
			Title:   fmt.Sprintf("Practitioner notes on %s", q),
			URL:     "https://example.com/notes",
			Snippet: "Hands-on lessons, pitfalls and adoption checklists from practitioners.",
		},
	}
}
