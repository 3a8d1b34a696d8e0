// Package llm is the Agent Engine's LLM collaborator (spec §6): a thin
// streaming-chat abstraction over Eino-backed providers, with
// exponential-backoff retry and a simple text-in/text-out Completer
// facade for the handlers (Planner.Replan, Pre-flight corrections,
// Reflecting/Fixing/Synthesis/Review/Debate prompts) that don't need raw
// message/tool-call plumbing.
//
// Grounded on the teacher's internal/provider/{provider,anthropic,openai,
// registry}.go: same Provider interface shape (ID/Name/Models/ChatModel),
// same Eino ToolCallingChatModel abstraction, same CompletionRequest
// fields.
package llm

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ModelInfo describes one model a Provider exposes.
type ModelInfo struct {
	ID              string
	Name            string
	ProviderID      string
	ContextLength   int
	MaxOutputTokens int
	SupportsTools   bool
}

// Provider is an LLM backend exposing one or more models through a
// shared Eino ChatModel abstraction.
type Provider interface {
	ID() string
	Name() string
	Models() []ModelInfo
	ChatModel() model.ToolCallingChatModel
}

// CompletionRequest is a request to generate a completion.
type CompletionRequest struct {
	Model       string
	Messages    []*schema.Message
	Tools       []*schema.ToolInfo
	MaxTokens   int
	Temperature float64
}

// Stream wraps an Eino stream reader.
type Stream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewStream wraps reader.
func NewStream(reader *schema.StreamReader[*schema.Message]) *Stream {
	return &Stream{reader: reader}
}

// Recv receives the next message chunk.
func (s *Stream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *Stream) Close() {
	s.reader.Close()
}

// CreateCompletion starts a streaming completion against provider using
// req. Tool binding and max-tokens/temperature options mirror the
// teacher's CreateCompletion implementations in anthropic.go/openai.go.
func CreateCompletion(ctx context.Context, provider Provider, req *CompletionRequest) (*Stream, error) {
	chatModel := provider.ChatModel()
	if len(req.Tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(req.Tools)
		if err != nil {
			return nil, err
		}
	}

	stream, err := chatModel.Stream(ctx, req.Messages,
		model.WithMaxTokens(req.MaxTokens),
		model.WithTemperature(float32(req.Temperature)),
	)
	if err != nil {
		return nil, err
	}
	return NewStream(stream), nil
}
