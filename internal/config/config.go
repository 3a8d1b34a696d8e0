// Package config provides configuration loading and path management,
// adapted from the teacher's three-tier Load (global config dir ->
// project .agentcore/ dir -> environment overrides), replacing the
// teacher's hand-rolled JSONC regexp stripper with tidwall/jsonc and
// adding joho/godotenv so a .env file is loaded ahead of environment
// overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// AgentStrategy selects how the Reviewing/Debating stages assign
// discussion roles (spec §6 Configuration: agentStrategy).
type AgentStrategy string

const (
	AgentStrategyReview       AgentStrategy = "review"
	AgentStrategyPerspectives AgentStrategy = "perspectives"
)

// PlanStrategy selects how planning rounds are driven (spec §6
// Configuration: planStrategy).
type PlanStrategy string

const (
	PlanStrategyDebate       PlanStrategy = "debate"
	PlanStrategyPerspectives PlanStrategy = "perspectives"
)

// ProviderConfig holds per-provider credentials and overrides, matching
// the teacher's types.ProviderConfig shape.
type ProviderConfig struct {
	APIKey    string   `json:"apiKey,omitempty"`
	BaseURL   string   `json:"baseURL,omitempty"`
	Whitelist []string `json:"whitelist,omitempty"`
	Blacklist []string `json:"blacklist,omitempty"`
	Disable   bool     `json:"disable,omitempty"`
}

// AgentConfig holds per-agent-role overrides (teacher's
// types.AgentConfig shape, generalized to the Engine's critic/default
// model routing).
type AgentConfig struct {
	Model string `json:"model,omitempty"`
}

// Config is the Engine's construction-time configuration record. Its
// recognized top-level keys are exactly spec §6's Configuration list,
// plus provider credentials and agent-registry overrides in the
// teacher's types.Config shape.
type Config struct {
	// Engine behavior (spec §6 Configuration).
	MaxFixAttempts         int           `json:"maxFixAttempts,omitempty"`
	MaxReviewIterations    int           `json:"maxReviewIterations,omitempty"`
	MaxDebateIterations    int           `json:"maxDebateIterations,omitempty"`
	TokenBudget            int           `json:"tokenBudget,omitempty"`
	EnableMultiModelReview bool          `json:"enableMultiModelReview,omitempty"`
	ReviewerModel          string        `json:"reviewerModel,omitempty"`
	CriticModel            string        `json:"criticModel,omitempty"`
	AgentStrategy          AgentStrategy `json:"agentStrategy,omitempty"`
	PlanStrategy           PlanStrategy  `json:"planStrategy,omitempty"`
	CheckpointsEnabled     bool          `json:"checkpointsEnabled,omitempty"`

	// Model selection.
	Model      string `json:"model,omitempty"`
	SmallModel string `json:"smallModel,omitempty"`

	// Provider/agent registry overrides.
	Provider map[string]ProviderConfig `json:"provider,omitempty"`
	Agent    map[string]AgentConfig    `json:"agent,omitempty"`
}

// Defaults returns a Config populated with spec §6's stated defaults
// (maxFixAttempts=3, maxReviewIterations=3, maxDebateIterations=2,
// tokenBudget=4000).
func Defaults() *Config {
	return &Config{
		MaxFixAttempts:      3,
		MaxReviewIterations: 3,
		MaxDebateIterations: 2,
		TokenBudget:         4000,
		AgentStrategy:       AgentStrategyReview,
		PlanStrategy:        PlanStrategyDebate,
		Provider:            make(map[string]ProviderConfig),
		Agent:               make(map[string]AgentConfig),
	}
}

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/agentcore/)
//  2. Project config (directory/.agentcore/)
//  3. .env file in directory (joho/godotenv)
//  4. Environment variables
func Load(directory string) (*Config, error) {
	cfg := Defaults()

	globalPath := GetPaths().Config
	loadConfigFile(filepath.Join(globalPath, "agentcore.json"), cfg)
	loadConfigFile(filepath.Join(globalPath, "agentcore.jsonc"), cfg)

	if directory != "" {
		loadConfigFile(filepath.Join(directory, ".agentcore", "agentcore.json"), cfg)
		loadConfigFile(filepath.Join(directory, ".agentcore", "agentcore.jsonc"), cfg)

		envPath := filepath.Join(directory, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("config: loading .env: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadConfigFile loads a single JSON/JSONC config file, merging it into
// cfg. A missing or unreadable file is not an error.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	data = jsonc.ToJSON(data)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileConfig)
	return nil
}

// mergeConfig merges source into target, overwriting scalars and
// combining maps.
func mergeConfig(target, source *Config) {
	if source.MaxFixAttempts != 0 {
		target.MaxFixAttempts = source.MaxFixAttempts
	}
	if source.MaxReviewIterations != 0 {
		target.MaxReviewIterations = source.MaxReviewIterations
	}
	if source.MaxDebateIterations != 0 {
		target.MaxDebateIterations = source.MaxDebateIterations
	}
	if source.TokenBudget != 0 {
		target.TokenBudget = source.TokenBudget
	}
	if source.EnableMultiModelReview {
		target.EnableMultiModelReview = true
	}
	if source.ReviewerModel != "" {
		target.ReviewerModel = source.ReviewerModel
	}
	if source.CriticModel != "" {
		target.CriticModel = source.CriticModel
	}
	if source.AgentStrategy != "" {
		target.AgentStrategy = source.AgentStrategy
	}
	if source.PlanStrategy != "" {
		target.PlanStrategy = source.PlanStrategy
	}
	if source.CheckpointsEnabled {
		target.CheckpointsEnabled = true
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.SmallModel != "" {
		target.SmallModel = source.SmallModel
	}

	if source.Provider != nil {
		if target.Provider == nil {
			target.Provider = make(map[string]ProviderConfig)
		}
		for k, v := range source.Provider {
			target.Provider[k] = v
		}
	}

	if source.Agent != nil {
		if target.Agent == nil {
			target.Agent = make(map[string]AgentConfig)
		}
		for k, v := range source.Agent {
			target.Agent[k] = v
		}
	}
}

// applyEnvOverrides applies environment variable overrides, matching
// the teacher's provider-API-key and model-override env vars (renamed
// to the AGENTCORE_ prefix).
func applyEnvOverrides(cfg *Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			if cfg.Provider == nil {
				cfg.Provider = make(map[string]ProviderConfig)
			}
			p := cfg.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				cfg.Provider[provider] = p
			}
		}
	}

	if model := os.Getenv("AGENTCORE_MODEL"); model != "" {
		cfg.Model = model
	}
	if smallModel := os.Getenv("AGENTCORE_SMALL_MODEL"); smallModel != "" {
		cfg.SmallModel = smallModel
	}
}

// Save writes cfg as indented JSON to path, creating parent directories
// as needed.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
