package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewTurnCallbacks aggregates all observer handlers (prompt, tool, model)
// into one callbacks.Handler wired to the given recorder.
func NewTurnCallbacks(rec *Recorder) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler(rec)).
		Prompt(newPromptHandler()).
		Handler()
}
