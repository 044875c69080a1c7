package cmd

import (
	"strings"

	"github.com/hydra-cli/hydra/internal/adapter"
	"github.com/hydra-cli/hydra/internal/config"
	"github.com/hydra-cli/hydra/internal/core"
)

// enabledAgentKeys returns the agent keys configured as enabled, in a
// stable order, used when --agents is omitted.
func enabledAgentKeys(cfg *config.Config) []core.AgentKey {
	var keys []core.AgentKey
	for _, pair := range []struct {
		key core.AgentKey
		ac  config.AdapterConfig
	}{
		{"claude", cfg.Adapters.Claude},
		{"codex", cfg.Adapters.Codex},
		{"gemini", cfg.Adapters.Gemini},
		{"copilot", cfg.Adapters.Copilot},
		{"opencode", cfg.Adapters.Opencode},
	} {
		if pair.ac.Enabled {
			keys = append(keys, pair.key)
		}
	}
	return keys
}

// applyAdapterOverrides configures binary path overrides on the registry
// from the loaded config's per-adapter settings.
func applyAdapterOverrides(reg *adapter.Registry, cfg *config.Config) {
	for key, ac := range map[core.AgentKey]config.AdapterConfig{
		"claude":   cfg.Adapters.Claude,
		"codex":    cfg.Adapters.Codex,
		"gemini":   cfg.Adapters.Gemini,
		"copilot":  cfg.Adapters.Copilot,
		"opencode": cfg.Adapters.Opencode,
	} {
		if ac.Path != "" {
			reg.SetBinaryOverride(key, ac.Path)
		}
	}
}

// parseAgentKeys splits a --agents csv flag value into agent keys,
// trimming whitespace and dropping empty entries.
func parseAgentKeys(csv string) []core.AgentKey {
	var keys []core.AgentKey
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keys = append(keys, core.AgentKey(part))
	}
	return keys
}
