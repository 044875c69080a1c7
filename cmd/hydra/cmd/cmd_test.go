package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hydra-cli/hydra/internal/config"
	"github.com/hydra-cli/hydra/internal/core"
)

func TestExitCodeForError(t *testing.T) {
	assert.Equal(t, 3, exitCodeForError(core.ErrReadiness("X", "not ready")))
	assert.Equal(t, 2, exitCodeForError(core.ErrValidation("X", "bad flag")))
	assert.Equal(t, 1, exitCodeForError(core.ErrExecution("X", "boom")))
	assert.Equal(t, 1, exitCodeForError(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "plain error" }

func TestParseAgentKeys(t *testing.T) {
	assert.Equal(t, []core.AgentKey{"claude", "codex"}, parseAgentKeys("claude, codex ,"))
	assert.Nil(t, parseAgentKeys(""))
}

func TestEnabledAgentKeys(t *testing.T) {
	cfg := &config.Config{
		Adapters: config.AdaptersConfig{
			Claude: config.AdapterConfig{Enabled: true},
			Codex:  config.AdapterConfig{Enabled: true},
			Gemini: config.AdapterConfig{Enabled: false},
		},
	}
	assert.Equal(t, []core.AgentKey{"claude", "codex"}, enabledAgentKeys(cfg))
}
