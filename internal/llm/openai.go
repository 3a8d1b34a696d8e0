package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// OpenAIConfig configures the OpenAI provider, adapted from the
// teacher's provider.OpenAIConfig.
type OpenAIConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAIProvider implements Provider over OpenAI-compatible chat models
// (used for the default/critic model slots when the operator configures
// a non-Anthropic backend for either role).
type OpenAIProvider struct {
	chatModel model.ToolCallingChatModel
	models    []ModelInfo
	id        string
}

// NewOpenAIProvider constructs an OpenAIProvider.
func NewOpenAIProvider(ctx context.Context, cfg *OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY not set")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = "gpt-4o"
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		chatCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: creating OpenAI chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "openai"
	}

	return &OpenAIProvider{
		chatModel: chatModel,
		models:    openaiModels(modelID),
		id:        id,
	}, nil
}

func (p *OpenAIProvider) ID() string                          { return p.id }
func (p *OpenAIProvider) Name() string                        { return "OpenAI" }
func (p *OpenAIProvider) Models() []ModelInfo                  { return p.models }
func (p *OpenAIProvider) ChatModel() model.ToolCallingChatModel { return p.chatModel }

func openaiModels(configured string) []ModelInfo {
	return []ModelInfo{
		{ID: configured, Name: configured, ProviderID: "openai", ContextLength: 128000, MaxOutputTokens: 16384, SupportsTools: true},
	}
}
