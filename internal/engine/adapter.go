package engine

import "context"

// modelCompleter is the minimal surface a concrete LLM client exposes for
// model-routed completions; *llm.Client.CompleteModel satisfies this.
type modelCompleter interface {
	CompleteModel(ctx context.Context, spec, prompt string) (string, error)
}

// DiscussionAdapter adapts a model-routed completer (named CompleteModel,
// as *llm.Client implements it) to discussion.Completer's Complete(ctx,
// model, prompt) shape. Kept in this package rather than in internal/llm
// itself, following the teacher's preference for small consumer-side
// interfaces: internal/llm stays ignorant of the discussion package.
type DiscussionAdapter struct {
	client modelCompleter
}

// NewDiscussionAdapter wraps client so it satisfies discussion.Completer.
func NewDiscussionAdapter(client modelCompleter) *DiscussionAdapter {
	return &DiscussionAdapter{client: client}
}

// Complete implements discussion.Completer.
func (a *DiscussionAdapter) Complete(ctx context.Context, model, prompt string) (string, error) {
	return a.client.CompleteModel(ctx, model, prompt)
}
