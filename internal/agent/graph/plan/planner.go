package plan

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	errx "github.com/workmate-core-poc/server/internal/core/error"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

//go:embed schema/execution_plan.json
var planSchemaBytes []byte

// Metrics holds the planner's observability counters. They are not part of
// the control contract.
type Metrics struct {
	mu         sync.Mutex
	Plans      int
	Successes  int
	Fallbacks  int
	avgLatency time.Duration
}

func (m *Metrics) record(latency time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Plans++
	if success {
		m.Successes++
	} else {
		m.Fallbacks++
	}
	// rolling average over all plans so far
	m.avgLatency += (latency - m.avgLatency) / time.Duration(m.Plans)
}

// Snapshot returns a copy of the counters for logging or inspection.
func (m *Metrics) Snapshot() (plans, successes, fallbacks int, avgLatency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Plans, m.Successes, m.Fallbacks, m.avgLatency
}

// Planner asks a language model for a structured execution plan and falls
// back to deterministic heuristics on any model, parse or validation failure.
// Plan never fails the turn.
type Planner struct {
	model     einomodel.BaseChatModel
	compiled  *jsonschema.Schema
	metrics   Metrics
	log       zerolog.Logger
	enabled   bool
	sysPrompt string
}

func NewPlanner(m einomodel.BaseChatModel, enabled bool, log zerolog.Logger) (*Planner, error) {
	var doc any
	if err := json.Unmarshal(planSchemaBytes, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal plan schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("execution_plan.json", doc); err != nil {
		return nil, fmt.Errorf("add plan schema resource: %w", err)
	}
	compiled, err := c.Compile("execution_plan.json")
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return &Planner{
		model:     m,
		compiled:  compiled,
		log:       log.With().Str("component", "planner").Logger(),
		enabled:   enabled,
		sysPrompt: planSystemPrompt,
	}, nil
}

// Metrics exposes the counters.
func (p *Planner) Metrics() *Metrics {
	return &p.metrics
}

// Plan produces an execution plan for the query. The primary path asks the
// model for plan-shaped JSON; the fallback derives one from keywords. The
// returned plan is never nil.
func (p *Planner) Plan(ctx context.Context, query string, planCtx map[string]any) *model.ExecutionPlan {
	start := time.Now()

	if !p.enabled || p.model == nil {
		p.metrics.record(time.Since(start), false)
		return HeuristicPlan(query)
	}

	plan, err := p.planWithModel(ctx, query, planCtx)
	if err != nil {
		p.log.Debug().Err(errx.WrapPlanning(err)).Msg("planner falling back to heuristics")
		p.metrics.record(time.Since(start), false)
		return HeuristicPlan(query)
	}
	p.metrics.record(time.Since(start), true)
	return plan
}

func (p *Planner) planWithModel(ctx context.Context, query string, planCtx map[string]any) (_ *model.ExecutionPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("planner panic: %v", r)
		}
	}()

	userContent := query
	if len(planCtx) > 0 {
		if b, merr := json.Marshal(planCtx); merr == nil {
			userContent = fmt.Sprintf("%s\n\nContext:\n%s", query, string(b))
		}
	}
	out, err := p.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(p.sysPrompt),
		schema.UserMessage(userContent),
	})
	if err != nil {
		return nil, fmt.Errorf("plan model call: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, fmt.Errorf("plan model returned empty response")
	}
	return p.parseAndValidate(out.Content)
}

// parseAndValidate first tries the whole response as JSON, then falls back to
// extracting a fenced or brace-delimited block, then validates against the
// plan schema.
func (p *Planner) parseAndValidate(content string) (*model.ExecutionPlan, error) {
	raw := strings.TrimSpace(content)

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		block, ok := extractJSONBlock(raw)
		if !ok {
			return nil, fmt.Errorf("no JSON object in plan response")
		}
		if err := json.Unmarshal([]byte(block), &doc); err != nil {
			return nil, fmt.Errorf("parse plan JSON: %w", err)
		}
		raw = block
	}

	if err := p.compiled.Validate(doc); err != nil {
		return nil, errx.WrapValidation(err)
	}

	var plan model.ExecutionPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, errx.WrapValidation(err)
	}
	return &plan, nil
}

// extractJSONBlock pulls a ```json fenced block or the first balanced brace
// span out of a prose response.
func extractJSONBlock(s string) (string, bool) {
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate, true
			}
		}
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

const planSystemPrompt = `You are a planning assistant. Given a user request, respond with ONLY a JSON object matching this schema:
{
  "task_type": "simple_qa" | "research_only" | "template_only" | "hybrid",
  "required_internal_documents": ["document names needed from the workspace"],
  "external_research_topics": ["topics requiring external web research"],
  "final_output_format": "short description of the expected answer shape"
}
Pick "hybrid" when both internal documents and external research are needed, "research_only" for purely external questions, "template_only" for work grounded solely in internal documents, and "simple_qa" otherwise. Do not add commentary.`
