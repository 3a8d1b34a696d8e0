package llm

import (
	"context"
	"fmt"

	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/logging"
)

// InitializeProviders builds a Registry from cfg.Provider, constructing
// an Anthropic, OpenAI-compatible, or ARK provider per entry. Grounded
// on the teacher's provider.InitializeProviders name dispatch, carrying
// forward all three backends the teacher's provider package wires
// (Anthropic, OpenAI, ARK); a provider whose name doesn't match any of
// them is skipped with a warning rather than failing the whole registry.
func InitializeProviders(ctx context.Context, cfg *config.Config) (*Registry, error) {
	registry := NewRegistry()

	for name, pc := range cfg.Provider {
		if pc.Disable {
			continue
		}

		var (
			p   Provider
			err error
		)

		switch providerKind(name) {
		case "anthropic":
			p, err = NewAnthropicProvider(ctx, &AnthropicConfig{
				ID:      name,
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
			})
		case "openai":
			p, err = NewOpenAIProvider(ctx, &OpenAIConfig{
				ID:      name,
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
			})
		case "ark":
			p, err = NewArkProvider(ctx, &ArkConfig{
				ID:      name,
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
			})
		default:
			logging.Warn().Str("provider", name).Msg("llm: unrecognized provider name, skipping")
			continue
		}

		if err != nil {
			logging.Warn().Str("provider", name).Err(err).Msg("llm: provider initialization failed, skipping")
			continue
		}
		registry.Register(p)
	}

	if len(registry.providers) == 0 {
		return nil, fmt.Errorf("llm: no providers configured or all failed to initialize")
	}
	return registry, nil
}

// providerKind maps a configured provider name to the backend it
// resolves to. Each backend is recognized by exact name or a leading
// prefix (e.g. "anthropic-critic").
func providerKind(name string) string {
	switch {
	case hasAnthropicPrefix(name):
		return "anthropic"
	case hasOpenAIPrefix(name):
		return "openai"
	case hasArkPrefix(name):
		return "ark"
	default:
		return ""
	}
}

func hasAnthropicPrefix(name string) bool {
	return len(name) >= len("anthropic") && name[:len("anthropic")] == "anthropic"
}

func hasOpenAIPrefix(name string) bool {
	return len(name) >= len("openai") && name[:len("openai")] == "openai"
}

func hasArkPrefix(name string) bool {
	return len(name) >= len("ark") && name[:len("ark")] == "ark"
}
