// Package config provides configuration loading, merging, and path
// management for AGENTCORE.
//
// # Configuration Loading
//
// Load merges configuration from multiple sources in priority order:
//
//  1. Global config (~/.config/agentcore/agentcore.json[c])
//  2. Project config (directory/.agentcore/agentcore.json[c])
//  3. directory/.env (github.com/joho/godotenv), if present
//  4. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY,
//     AGENTCORE_MODEL, AGENTCORE_SMALL_MODEL)
//
// Later sources override scalar fields and merge into map fields
// (Provider, Agent) key by key.
//
// # Supported Formats
//
// Both agentcore.json and agentcore.jsonc (JSON with // and /* */
// comments, stripped via github.com/tidwall/jsonc) are recognized.
//
// # Path Management
//
// Paths follows the XDG Base Directory layout:
//   - Data: ~/.local/share/agentcore (XDG_DATA_HOME)
//   - Config: ~/.config/agentcore (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/agentcore (XDG_CACHE_HOME)
//   - State: ~/.local/state/agentcore (XDG_STATE_HOME)
//
// On Windows these fall back to APPDATA.
package config
