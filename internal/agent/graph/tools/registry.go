package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Tool names form the uniform tool-call contract; the engine is agnostic to
// what each tool actually does.
const (
	ToolListDocuments  = "list_documents"
	ToolGetDocument    = "get_document"
	ToolWebSearch      = "web_search"
	ToolCalendarEvents = "calendar_events"
)

// InvokeResult is the envelope every tool invocation resolves to. Execution
// failures are recorded per call and never abort the round.
type InvokeResult struct {
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// QueryTools returns the workspace tools wrapped for bounded concurrency and
// error folding. All tools of one round share the semaphore.
func QueryTools(concurrency int) []tool.BaseTool {
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)
	inner := []tool.InvokableTool{
		createListDocumentsTool(),
		createGetDocumentTool(),
		createWebSearchTool(),
		createCalendarEventsTool(),
	}
	out := make([]tool.BaseTool, 0, len(inner))
	for _, t := range inner {
		out = append(out, &managedTool{inner: t, sem: sem})
	}
	return out
}

// GetToolInfos extracts ToolInfo from the provided tools for model binding.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// managedTool bounds parallelism via a shared semaphore and folds execution
// errors into the InvokeResult envelope instead of failing the round.
type managedTool struct {
	inner tool.InvokableTool
	sem   chan struct{}
}

func (m *managedTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return m.inner.Info(ctx)
}

func (m *managedTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return marshalResult(InvokeResult{Success: false, Error: ctx.Err().Error()}), nil
	}

	start := time.Now()
	raw, err := m.inner.InvokableRun(ctx, argumentsInJSON, opts...)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return marshalResult(InvokeResult{Success: false, Error: err.Error(), DurationMs: elapsed}), nil
	}
	return marshalResult(InvokeResult{Success: true, Result: json.RawMessage(raw), DurationMs: elapsed}), nil
}

func marshalResult(r InvokeResult) string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(b)
}

var _ tool.InvokableTool = (*managedTool)(nil)
