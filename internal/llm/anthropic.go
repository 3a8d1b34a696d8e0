package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
)

// AnthropicConfig configures the Anthropic provider. Adapted from the
// teacher's provider.AnthropicConfig, trimmed of Bedrock-specific fields
// the orchestrator's supplemented feature set doesn't exercise.
type AnthropicConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Thinking  *claude.Thinking
}

// AnthropicProvider implements Provider over Anthropic's Claude models.
type AnthropicProvider struct {
	chatModel model.ToolCallingChatModel
	models    []ModelInfo
	id        string
}

// NewAnthropicProvider constructs an AnthropicProvider, defaulting the
// API key to ANTHROPIC_API_KEY and the model to Claude Sonnet 4.
func NewAnthropicProvider(ctx context.Context, cfg *AnthropicConfig) (*AnthropicProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: ANTHROPIC_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}

	chatCfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: cfg.MaxTokens,
		Thinking:  cfg.Thinking,
	}
	if cfg.BaseURL != "" {
		chatCfg.BaseURL = &cfg.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: creating Claude chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "anthropic"
	}

	return &AnthropicProvider{
		chatModel: chatModel,
		models:    anthropicModels(),
		id:        id,
	}, nil
}

func (p *AnthropicProvider) ID() string                          { return p.id }
func (p *AnthropicProvider) Name() string                        { return "Anthropic" }
func (p *AnthropicProvider) Models() []ModelInfo                  { return p.models }
func (p *AnthropicProvider) ChatModel() model.ToolCallingChatModel { return p.chatModel }

func anthropicModels() []ModelInfo {
	return []ModelInfo{
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ProviderID: "anthropic", ContextLength: 200000, MaxOutputTokens: 32000, SupportsTools: true},
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ProviderID: "anthropic", ContextLength: 200000, MaxOutputTokens: 64000, SupportsTools: true},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ProviderID: "anthropic", ContextLength: 200000, MaxOutputTokens: 8192, SupportsTools: true},
	}
}
