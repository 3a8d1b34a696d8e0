package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/forgepilot/agentcore/internal/logging"
)

// Client is the Engine's LLM collaborator: a text-in/text-out façade
// over the Registry, retried with exponential backoff. It satisfies the
// planner.Completer and preflight.Completer interfaces (each package
// declares its own minimal interface). It does not satisfy
// discussion.Completer, whose Complete takes a model argument; the
// engine's DiscussionAdapter bridges that to CompleteModel.
//
// Grounded on the teacher's session/loop.go retry shape: cenkalti/backoff
// wraps the provider call, retrying on transient errors before giving up.
type Client struct {
	registry      *Registry
	defaultModel  string
	maxRetries    uint64
}

// NewClient returns a Client backed by registry. defaultModel is the
// "provider/model" spec used when a caller's model argument is empty
// (the planner.Completer/preflight.Completer interfaces don't carry a
// model argument at all).
func NewClient(registry *Registry, defaultModel string) *Client {
	return &Client{registry: registry, defaultModel: defaultModel, maxRetries: 3}
}

// Complete implements planner.Completer and preflight.Completer: a
// single request/response round trip against the default model.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteModel(ctx, c.defaultModel, prompt)
}

// CompleteModel is a single request/response round trip against an explicit "provider/model" spec (or the
// default model, if spec is empty).
func (c *Client) CompleteModel(ctx context.Context, spec, prompt string) (string, error) {
	if spec == "" {
		spec = c.defaultModel
	}
	provider, modelInfo, err := c.registry.Resolve(spec)
	if err != nil {
		return "", err
	}

	messages := []*schema.Message{schema.UserMessage(prompt)}

	var result string
	operation := func() error {
		msg, genErr := provider.ChatModel().Generate(ctx, messages, model.WithMaxTokens(modelInfo.MaxOutputTokens))
		if genErr != nil {
			return genErr
		}
		result = msg.Content
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, bo, func(err error, wait time.Duration) {
		logging.Warn().Err(err).Str("model", spec).Dur("retry_in", wait).Msg("llm: completion attempt failed, retrying")
	}); err != nil {
		return "", fmt.Errorf("llm: completion failed after retries: %w", err)
	}

	return result, nil
}

// StreamModel opens a streaming completion against spec, forwarding
// chunks to onChunk as they arrive (spec §5 Suspension point 1: "the
// stream is consumed chunk-by-chunk and incrementally forwarded", with
// ctx polled at each chunk boundary for cancellation).
func (c *Client) StreamModel(ctx context.Context, spec string, messages []*schema.Message, onChunk func(string)) (string, error) {
	if spec == "" {
		spec = c.defaultModel
	}
	provider, _, err := c.registry.Resolve(spec)
	if err != nil {
		return "", err
	}

	streamReader, err := provider.ChatModel().Stream(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm: stream start failed: %w", err)
	}
	defer streamReader.Close()

	var full string
	for {
		select {
		case <-ctx.Done():
			return full, ctx.Err()
		default:
		}

		chunk, err := streamReader.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return full, fmt.Errorf("llm: stream recv failed: %w", err)
		}
		full += chunk.Content
		if onChunk != nil {
			onChunk(chunk.Content)
		}
	}

	return full, nil
}
