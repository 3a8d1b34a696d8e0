package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	tmpHome := t.TempDir()
	oldHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpHome)
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	return tmpHome
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 3, d.MaxFixAttempts)
	assert.Equal(t, 3, d.MaxReviewIterations)
	assert.Equal(t, 2, d.MaxDebateIterations)
	assert.Equal(t, 4000, d.TokenBudget)
	assert.Equal(t, AgentStrategyReview, d.AgentStrategy)
	assert.Equal(t, PlanStrategyDebate, d.PlanStrategy)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	isolateHome(t)
	projectDir := t.TempDir()

	projectConfig := `{
		"maxFixAttempts": 5,
		"tokenBudget": 8000,
		"model": "anthropic/claude-sonnet-4-20250514"
	}`
	configPath := filepath.Join(projectDir, ".agentcore", "agentcore.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(projectConfig), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxFixAttempts)
	assert.Equal(t, 8000, cfg.TokenBudget)
	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	// Unset fields keep their defaults.
	assert.Equal(t, 3, cfg.MaxReviewIterations)
}

func TestLoad_JSONCComments(t *testing.T) {
	isolateHome(t)
	projectDir := t.TempDir()

	jsoncConfig := `{
		// reviewer uses a stronger model than the default
		"reviewerModel": "anthropic/claude-opus-4-20250514",
		/* multi-line
		   comment */
		"enableMultiModelReview": true
	}`
	configPath := filepath.Join(projectDir, ".agentcore", "agentcore.jsonc")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(jsoncConfig), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-opus-4-20250514", cfg.ReviewerModel)
	assert.True(t, cfg.EnableMultiModelReview)
}

func TestLoad_GlobalThenProjectMerge(t *testing.T) {
	tmpHome := isolateHome(t)
	projectDir := t.TempDir()

	globalConfig := `{
		"model": "anthropic/claude-sonnet-4-20250514",
		"provider": {"anthropic": {"apiKey": "global-key"}}
	}`
	globalDir := filepath.Join(tmpHome, ".config", "agentcore")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "agentcore.json"), []byte(globalConfig), 0644))

	projectConfig := `{"model": "openai/gpt-4o"}`
	projectConfigDir := filepath.Join(projectDir, ".agentcore")
	require.NoError(t, os.MkdirAll(projectConfigDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectConfigDir, "agentcore.json"), []byte(projectConfig), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, "global-key", cfg.Provider["anthropic"].APIKey)
}

func TestLoad_DotEnvLoadedBeforeEnvOverrides(t *testing.T) {
	isolateHome(t)
	projectDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".env"), []byte("ANTHROPIC_API_KEY=from-dotenv\n"), 0644))
	os.Unsetenv("ANTHROPIC_API_KEY")
	t.Cleanup(func() { os.Unsetenv("ANTHROPIC_API_KEY") })

	cfg, err := Load(projectDir)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Provider["anthropic"].APIKey)
}

func TestLoad_EnvVarOverridesConfigFile(t *testing.T) {
	isolateHome(t)
	projectDir := t.TempDir()

	os.Setenv("AGENTCORE_MODEL", "env-model")
	t.Cleanup(func() { os.Unsetenv("AGENTCORE_MODEL") })

	configPath := filepath.Join(projectDir, ".agentcore", "agentcore.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{"model": "file-model"}`), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model)
}

func TestMergeConfig_MapsCombineAcrossKeys(t *testing.T) {
	target := &Config{Provider: map[string]ProviderConfig{"anthropic": {APIKey: "a"}}}
	source := &Config{Provider: map[string]ProviderConfig{"openai": {APIKey: "b"}}}

	mergeConfig(target, source)

	assert.Len(t, target.Provider, 2)
	assert.Equal(t, "a", target.Provider["anthropic"].APIKey)
	assert.Equal(t, "b", target.Provider["openai"].APIKey)
}

func TestMergeConfig_ZeroValuesDoNotOverwrite(t *testing.T) {
	target := &Config{MaxFixAttempts: 7}
	source := &Config{}

	mergeConfig(target, source)

	assert.Equal(t, 7, target.MaxFixAttempts)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.json")

	original := Defaults()
	original.Model = "anthropic/claude-sonnet-4-20250514"
	require.NoError(t, Save(original, path))

	isolateHome(t)
	projectDir := t.TempDir()
	configPath := filepath.Join(projectDir, ".agentcore", "agentcore.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	loaded, err := Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", loaded.Model)
}
