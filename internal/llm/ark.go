package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// ArkConfig configures the Volcengine ARK provider, adapted from the
// teacher's provider.ArkConfig.
type ArkConfig struct {
	ID        string
	APIKey    string
	BaseURL   string
	Model     string // Endpoint ID on the ARK platform
	MaxTokens int
}

// ArkProvider implements Provider over Volcengine's ARK endpoints (a
// third ToolCallingChatModel backend alongside Anthropic/OpenAI, for
// operators routing the default or critic model slot through ARK).
type ArkProvider struct {
	chatModel model.ToolCallingChatModel
	models    []ModelInfo
	id        string
}

// NewArkProvider constructs an ArkProvider, defaulting the API key to
// ARK_API_KEY and the endpoint ID to ARK_MODEL_ID.
func NewArkProvider(ctx context.Context, cfg *ArkConfig) (*ArkProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: ARK_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = os.Getenv("ARK_MODEL_ID")
	}
	if modelID == "" {
		return nil, fmt.Errorf("llm: ARK_MODEL_ID not set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("ARK_BASE_URL")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	chatCfg := &ark.ChatModelConfig{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: &maxTokens,
	}
	if baseURL != "" {
		chatCfg.BaseURL = baseURL
	}

	chatModel, err := ark.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: creating ARK chat model: %w", err)
	}

	id := cfg.ID
	if id == "" {
		id = "ark"
	}

	return &ArkProvider{
		chatModel: chatModel,
		models:    arkModels(modelID),
		id:        id,
	}, nil
}

func (p *ArkProvider) ID() string                          { return p.id }
func (p *ArkProvider) Name() string                        { return "ARK" }
func (p *ArkProvider) Models() []ModelInfo                  { return p.models }
func (p *ArkProvider) ChatModel() model.ToolCallingChatModel { return p.chatModel }

func arkModels(endpointID string) []ModelInfo {
	return []ModelInfo{
		{ID: endpointID, Name: "ARK Model", ProviderID: "ark", ContextLength: 128000, MaxOutputTokens: 4096, SupportsTools: true},
	}
}
