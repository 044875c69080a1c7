package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 0.25, cfg.Scoring.Weights["build"])
	assert.True(t, cfg.Adapters.Claude.Enabled)
	assert.False(t, cfg.Adapters.Opencode.Enabled)
	assert.Equal(t, 7, cfg.Worktree.RetentionDays)
}

func TestLoader_UnrecognizedTopLevelKeyFails(t *testing.T) {
	dir := t.TempDir()
	hydraDir := filepath.Join(dir, ".hydra")
	require.NoError(t, os.MkdirAll(hydraDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(hydraDir, "config.yaml"), []byte("not_a_real_section:\n  foo: bar\n"), 0o640))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	_, err = NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_real_section")
}

func TestLoader_ProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	hydraDir := filepath.Join(dir, ".hydra")
	require.NoError(t, os.MkdirAll(hydraDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(hydraDir, "config.yaml"), []byte("worktree:\n  retention_days: 3\n"), 0o640))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Worktree.RetentionDays)
}
