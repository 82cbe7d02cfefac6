package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingTool always errors so the envelope folding can be observed.
type failingTool struct{}

func (f *failingTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: "failing_tool", Desc: "always fails"}, nil
}

func (f *failingTool) InvokableRun(ctx context.Context, args string, opts ...tool.Option) (string, error) {
	return "", errors.New("backend unavailable")
}

func invokeManaged(t *testing.T, inner tool.InvokableTool, args string) InvokeResult {
	t.Helper()
	m := &managedTool{inner: inner, sem: make(chan struct{}, 1)}
	raw, err := m.InvokableRun(context.Background(), args)
	require.NoError(t, err, "the envelope absorbs tool failures")
	var env InvokeResult
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

func TestManagedToolWrapsSuccess(t *testing.T) {
	env := invokeManaged(t, createListDocumentsTool(), `{}`)

	assert.True(t, env.Success)
	assert.Empty(t, env.Error)

	var out ListDocumentsOutput
	require.NoError(t, json.Unmarshal(env.Result, &out))
	assert.Equal(t, len(MockDocuments), out.Total)
	for _, d := range out.Documents {
		assert.Empty(t, d.Body, "listings never include bodies")
	}
}

func TestManagedToolFoldsErrorsIntoEnvelope(t *testing.T) {
	env := invokeManaged(t, &failingTool{}, `{}`)

	assert.False(t, env.Success)
	assert.Equal(t, "backend unavailable", env.Error)
	assert.Nil(t, env.Result)
}

func TestManagedToolHonorsCancelledContext(t *testing.T) {
	sem := make(chan struct{}, 1)
	sem <- struct{}{} // semaphore full
	m := &managedTool{inner: &failingTool{}, sem: sem}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw, err := m.InvokableRun(ctx, `{}`)
	require.NoError(t, err)

	var env InvokeResult
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "context canceled")
}

func TestGetDocumentByName(t *testing.T) {
	env := invokeManaged(t, createGetDocumentTool(), `{"name":"q3 roadmap"}`)

	require.True(t, env.Success, "name matching is case-insensitive")
	var out GetDocumentOutput
	require.NoError(t, json.Unmarshal(env.Result, &out))
	assert.Equal(t, "Q3 Roadmap", out.Document.Name)
	assert.NotEmpty(t, out.Document.Body)
}

func TestGetDocumentUnknownNameFails(t *testing.T) {
	env := invokeManaged(t, createGetDocumentTool(), `{"name":"No Such Doc"}`)

	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "not found")
}

func TestListDocumentsKindFilter(t *testing.T) {
	env := invokeManaged(t, createListDocumentsTool(), `{"kind":"sheet"}`)

	require.True(t, env.Success)
	var out ListDocumentsOutput
	require.NoError(t, json.Unmarshal(env.Result, &out))
	require.Equal(t, 1, out.Total)
	assert.Equal(t, "Hiring Plan FY26", out.Documents[0].Name)
}

func TestQueryToolsExposeInfos(t *testing.T) {
	ts := QueryTools(2)
	require.Len(t, ts, 4)

	infos, err := GetToolInfos(context.Background(), ts)
	require.NoError(t, err)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{ToolListDocuments, ToolGetDocument, ToolWebSearch, ToolCalendarEvents}, names)
}
